package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reportmill",
	Short: "ReportMill CLI - manage scheduled reports",
	Long: `ReportMill CLI is a command-line tool for managing recurring report
schedules: create and inspect schedules, trigger manual runs, and browse the
execution history.`,
}

func init() {
	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newExecutionCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
