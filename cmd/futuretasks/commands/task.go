package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/futuretasks/core/internal/application/services"
	"github.com/futuretasks/core/internal/domain/entities"
	"github.com/futuretasks/core/internal/ports"
)

// NewTaskCommand creates the task management command
func NewTaskCommand() *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Task management commands",
		Long:  "Add, edit, list, complete, remove, reorder, export and import tasks in the configured storage",
	}

	taskCmd.AddCommand(
		newTaskAddCommand(),
		newTaskEditCommand(),
		newTaskListCommand(),
		newTaskDoneCommand(),
		newTaskRemoveCommand(),
		newTaskMoveCommand(),
		newTaskStatsCommand(),
		newTaskExportCommand(),
		newTaskImportCommand(),
		newTaskReportCommand(),
	)
	return taskCmd
}

// withApp runs fn against a bootstrapped application and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *application) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

// reportWarning prints persistence warnings and passes real failures through.
func reportWarning(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if entities.IsWarning(err) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		return nil
	}
	return err
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid task id %q", entities.ErrInvalidInput, arg)
	}
	return id, nil
}

func parseDue(value string) (*entities.Date, error) {
	if value == "" {
		return nil, nil
	}
	d, err := entities.ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func newTaskAddCommand() *cobra.Command {
	var priority, category, due string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task to the top of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := parseDue(due)
			if err != nil {
				return err
			}
			input := ports.TaskInput{
				Text:     strings.Join(args, " "),
				Priority: entities.Priority(priority),
				Category: entities.Category(category),
				DueDate:  dueDate,
			}

			return withApp(cmd, func(ctx context.Context, app *application) error {
				task, err := app.tasks.Add(ctx, input)
				if err := reportWarning(cmd, err); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added task %d\n", task.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&priority, "priority", "p", string(entities.PriorityMedium), "Priority (low, medium, high)")
	cmd.Flags().StringVarP(&category, "category", "c", string(entities.CategoryPersonal), "Category (personal, work, other)")
	cmd.Flags().StringVarP(&due, "due", "d", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newTaskEditCommand() *cobra.Command {
	var text, priority, category, due string
	var clearDue bool

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *application) error {
				current, err := app.tasks.Get(id)
				if err != nil {
					return err
				}

				input := ports.TaskInput{
					Text:     current.Text,
					Priority: current.Priority,
					Category: current.Category,
					DueDate:  current.DueDate,
				}
				if cmd.Flags().Changed("text") {
					input.Text = text
				}
				if cmd.Flags().Changed("priority") {
					input.Priority = entities.Priority(priority)
				}
				if cmd.Flags().Changed("category") {
					input.Category = entities.Category(category)
				}
				if cmd.Flags().Changed("due") {
					if input.DueDate, err = parseDue(due); err != nil {
						return err
					}
				}
				if clearDue {
					input.DueDate = nil
				}

				task, err := app.tasks.Update(ctx, id, input)
				if err := reportWarning(cmd, err); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d\n", task.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "New text")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority (low, medium, high)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category")
	cmd.Flags().StringVarP(&due, "due", "d", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	return cmd
}

func newTaskListCommand() *cobra.Command {
	var filter, category, search string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				tasks := app.tasks.Query(ports.TaskQuery{
					Filter:   entities.ParseFilterMode(filter),
					Category: category,
					Search:   search,
				})

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(tasks)
				}
				return printTasks(cmd.OutOrStdout(), tasks, entities.DateOf(app.tasks.Now()))
			})
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", string(entities.FilterAll), "Filter (all, completed, pending, high)")
	cmd.Flags().StringVarP(&category, "category", "c", entities.AllCategories, "Category to show")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive text search")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func printTasks(w io.Writer, tasks []entities.Task, today entities.Date) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tCATEGORY\tDUE\tTEXT")
	for i := range tasks {
		t := &tasks[i]
		done := " "
		if t.Completed {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.String()
			if t.IsOverdue(today) {
				due += " (overdue)"
			}
		}
		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\t%s\t%s\n", t.ID, done, t.Priority, t.Category, due, t.Text)
	}
	return tw.Flush()
}

func newTaskDoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle the completed flag of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *application) error {
				task, err := app.tasks.ToggleCompleted(ctx, id)
				if err := reportWarning(cmd, err); err != nil {
					return err
				}
				state := "pending"
				if task.Completed {
					state = "completed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %d is %s\n", task.ID, state)
				return nil
			})
		},
	}
}

func newTaskRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, app *application) error {
				if err := reportWarning(cmd, app.tasks.Delete(ctx, id)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
				return nil
			})
		},
	}
}

func newTaskMoveCommand() *cobra.Command {
	var before int64

	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move a task before another one, or to the end without --before",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var beforeID *int64
			if cmd.Flags().Changed("before") {
				beforeID = &before
			}
			return withApp(cmd, func(ctx context.Context, app *application) error {
				if err := reportWarning(cmd, app.tasks.Reorder(ctx, id, beforeID)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved task %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&before, "before", 0, "ID of the task to move in front of")
	return cmd
}

func newTaskStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				st := app.tasks.Stats()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total:       %d\n", st.Total)
				fmt.Fprintf(out, "Completed:   %d\n", st.Completed)
				fmt.Fprintf(out, "Pending:     %d\n", st.Pending)
				fmt.Fprintf(out, "Overdue:     %d\n", st.Overdue)
				fmt.Fprintf(out, "Completion:  %d%%\n", st.CompletionRate)
				return nil
			})
		},
	}
}

func newTaskExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole list to a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				data, err := app.tasks.ExportSnapshot()
				if err != nil {
					return err
				}
				if out == "-" {
					_, err := cmd.OutOrStdout().Write(data)
					return err
				}
				if out == "" {
					out = services.SnapshotFileName(app.tasks.Now())
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("failed to write snapshot: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default future-tasks-YYYY-MM-DD.json, - for stdout)")
	return cmd
}

func newTaskImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the list with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, app *application) error {
				if int64(len(blob)) > app.cfg.Security.MaxImportBytes && app.cfg.Security.MaxImportBytes > 0 {
					return fmt.Errorf("%w: snapshot exceeds %d bytes", entities.ErrInvalidInput, app.cfg.Security.MaxImportBytes)
				}
				count, err := app.tasks.ImportSnapshot(ctx, blob)
				if err := reportWarning(cmd, err); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks\n", count)
				return nil
			})
		},
	}
}

func newTaskReportCommand() *cobra.Command {
	var format, out, filter, category, search string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the filtered list as csv, xlsx, pdf or json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *application) error {
				tasks := app.tasks.Query(ports.TaskQuery{
					Filter:   entities.ParseFilterMode(filter),
					Category: category,
					Search:   search,
				})
				report, err := app.reports.Render(format, tasks, app.tasks.Stats())
				if err != nil {
					return err
				}
				if out == "" {
					out = report.FileName
				}
				if err := os.WriteFile(out, report.Body, 0o644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", services.FormatCSV, "Report format (csv, xlsx, pdf, json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default future-tasks-report-YYYY-MM-DD.<format>)")
	cmd.Flags().StringVarP(&filter, "filter", "f", string(entities.FilterAll), "Filter (all, completed, pending, high)")
	cmd.Flags().StringVarP(&category, "category", "c", entities.AllCategories, "Category to include")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Case-insensitive text search")
	return cmd
}
