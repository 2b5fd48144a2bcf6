package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect historical session reports",
}

var reportSessionFilter string

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List session reports",
	RunE:  runReportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show [report-id]",
	Short: "Show a single report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

func init() {
	reportCmd.AddCommand(reportListCmd, reportShowCmd)
	reportListCmd.Flags().StringVar(&reportSessionFilter, "session", "", "filter by session id")
}

func runReportList(cmd *cobra.Command, args []string) error {
	path := "/reports"
	if reportSessionFilter != "" {
		path += "?sessionId=" + reportSessionFilter
	}
	resp, err := apiGet(path)
	if err != nil {
		return err
	}

	var reports []map[string]interface{}
	if err := json.Unmarshal(resp, &reports); err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println("No reports found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSESSION\tITERATION\tSTRATEGY\tERROR\tCREATED")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%s\t%.0f\t%s\n",
			truncateID(fmt.Sprint(r["ID"])),
			truncateID(fmt.Sprint(r["SessionID"])),
			r["Iteration"],
			r["Strategy"],
			r["ErrorCode"],
			r["CreatedAt"])
	}
	w.Flush()
	return nil
}

func runReportShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/reports/" + args[0])
	if err != nil {
		return err
	}

	var r map[string]interface{}
	if err := json.Unmarshal(resp, &r); err != nil {
		return err
	}
	fmt.Printf("ID:        %s\n", r["ID"])
	fmt.Printf("Session:   %s\n", r["SessionID"])
	fmt.Printf("Iteration: %.0f\n", r["Iteration"])
	fmt.Printf("Strategy:  %s\n", r["Strategy"])
	fmt.Printf("ErrorCode: %.0f\n", r["ErrorCode"])
	fmt.Printf("Created:   %s\n", r["CreatedAt"])
	fmt.Println("\n--- TRACE ---")
	fmt.Println(r["TraceCSV"])
	return nil
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
