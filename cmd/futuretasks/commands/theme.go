package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/futuretasks/core/internal/domain/entities"
)

// NewThemeCommand creates the theme command
func NewThemeCommand() *cobra.Command {
	themeCmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the stored theme",
	}

	themeCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the active theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				fmt.Fprintln(cmd.OutOrStdout(), app.theme.Get(ctx))
				return nil
			})
		},
	})

	themeCmd.AddCommand(&cobra.Command{
		Use:       "set <dark|light>",
		Short:     "Select a theme",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(entities.ThemeDark), string(entities.ThemeLight)},
		RunE: func(cmd *cobra.Command, args []string) error {
			theme, ok := entities.ParseTheme(args[0])
			if !ok {
				return fmt.Errorf("%w: unknown theme %q", entities.ErrInvalidInput, args[0])
			}
			return withApp(cmd, func(ctx context.Context, app *application) error {
				if err := reportWarning(cmd, app.theme.Set(ctx, theme)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), theme)
				return nil
			})
		},
	})

	themeCmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch between dark and light",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				theme, err := app.theme.Toggle(ctx)
				if err := reportWarning(cmd, err); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), theme)
				return nil
			})
		},
	})

	return themeCmd
}
