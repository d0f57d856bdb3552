package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/futuretasks/core/cmd/futuretasks/commands"
)

// @title FutureTasks API
// @version 1.0
// @description Single-user task list with filtering, reordering, snapshots and reports

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:           "futuretasks",
		Short:         "FutureTasks task list manager",
		Long:          `FutureTasks keeps an ordered personal task list with priorities, categories and due dates, served over HTTP or managed from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewTaskCommand())
	rootCmd.AddCommand(commands.NewThemeCommand())
	rootCmd.AddCommand(commands.NewAuthCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
