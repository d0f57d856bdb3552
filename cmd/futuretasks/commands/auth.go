package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/futuretasks/core/internal/application/services"
)

// NewAuthCommand creates the auth helper command
func NewAuthCommand() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication helpers",
	}

	hashCmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash to put in AUTH_PASSWORD_HASH",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				return fmt.Errorf("--password is required")
			}

			hashed, err := services.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return nil
		},
	}
	hashCmd.Flags().String("password", "", "Owner password (required)")

	authCmd.AddCommand(hashCmd)
	return authCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print FutureTasks version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "FutureTasks Core v1.0.0")
		},
	}
}
