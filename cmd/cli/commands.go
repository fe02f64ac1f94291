package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/reportmill/internal/api/client"
	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/service"
)

func newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login and print an API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			c, err := client.NewClient()
			if err != nil {
				return err
			}
			token, err := c.Login(username, password)
			if err != nil {
				return fmt.Errorf("login failed: %v", err)
			}

			fmt.Println("Login successful. Export the token for subsequent commands:")
			fmt.Printf("  export REPORTMILL_TOKEN=%s\n", token)
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().StringP("password", "p", "", "Password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newScheduleCommand() *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedules",
		Short: "Manage report schedules",
	}

	var reportType, frequency, active string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List report schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return err
			}
			schedules, err := c.ListSchedules(reportType, frequency, active)
			if err != nil {
				return err
			}
			printSchedules(schedules)
			return nil
		},
	}
	listCmd.Flags().StringVar(&reportType, "type", "", "Filter by report type")
	listCmd.Flags().StringVar(&frequency, "frequency", "", "Filter by frequency")
	listCmd.Flags().StringVar(&active, "active", "", "Filter by active flag (true/false)")

	var name, rtype, freq, format, recipients string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a report schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return err
			}
			sched, err := c.CreateSchedule(service.CreateInput{
				Name:       name,
				ReportType: models.ReportType(rtype),
				Frequency:  models.Frequency(freq),
				Format:     models.ExportFormat(format),
				Recipients: strings.Split(recipients, ","),
			})
			if err != nil {
				return err
			}
			fmt.Printf("Schedule %d created, next run %s\n", sched.ID, sched.NextRun.Format(time.RFC3339))
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "Schedule name")
	createCmd.Flags().StringVar(&rtype, "type", "", "Report type")
	createCmd.Flags().StringVar(&freq, "frequency", "", "Frequency (daily/weekly/monthly/quarterly/semester/annual)")
	createCmd.Flags().StringVar(&format, "format", "csv", "Export format (json/csv/xlsx/pdf)")
	createCmd.Flags().StringVar(&recipients, "recipients", "", "Comma-separated recipient addresses")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("type")
	createCmd.MarkFlagRequired("frequency")
	createCmd.MarkFlagRequired("recipients")

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a report schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid schedule ID: %v", err)
			}
			c, err := client.NewClient()
			if err != nil {
				return err
			}
			if err := c.DeleteSchedule(uint(id)); err != nil {
				return err
			}
			fmt.Println("Schedule deleted")
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:   "run [id]",
		Short: "Run a schedule's report immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid schedule ID: %v", err)
			}
			c, err := client.NewClient()
			if err != nil {
				return err
			}
			outcome, err := c.RunSchedule(uint(id))
			if err != nil {
				return err
			}
			fmt.Printf("Report generated: %v (%v bytes)\n", outcome["FileName"], outcome["FileSize"])
			return nil
		},
	}

	scheduleCmd.AddCommand(listCmd, createCmd, deleteCmd, runCmd)
	return scheduleCmd
}

func newExecutionCommand() *cobra.Command {
	executionCmd := &cobra.Command{
		Use:   "executions",
		Short: "Browse execution history",
	}

	var scheduleID string
	var page, limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List report executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient()
			if err != nil {
				return err
			}
			execs, err := c.ListExecutions(scheduleID, page, limit)
			if err != nil {
				return err
			}
			printExecutions(execs)
			return nil
		},
	}
	listCmd.Flags().StringVar(&scheduleID, "schedule", "", "Filter by schedule ID")
	listCmd.Flags().IntVar(&page, "page", 1, "Page number")
	listCmd.Flags().IntVar(&limit, "limit", 50, "Page size")

	executionCmd.AddCommand(listCmd)
	return executionCmd
}

func printSchedules(schedules []models.ReportSchedule) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tFREQUENCY\tFORMAT\tACTIVE\tNEXT RUN\t")
	for _, s := range schedules {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\t%s\t\n",
			s.ID, s.Name, s.ReportType, s.Frequency, s.Format, s.Active,
			s.NextRun.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func printExecutions(execs []models.ReportExecution) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
	fmt.Fprintln(w, "ID\tTYPE\tFORMAT\tSTATUS\tTRIGGERED BY\tSIZE\tGENERATED\t")
	for _, e := range execs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
			e.ID[:8], e.ReportType, e.Format, e.Status, e.TriggeredBy, e.FileSize,
			e.GeneratedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
}
