package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage scheduler sessions",
}

var (
	strategyType string
	replayTrace  string
)

var sessionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new scheduler session",
	RunE:  runSessionInit,
}

var sessionAttachCmd = &cobra.Command{
	Use:   "attach [schedulerId]",
	Short: "Attach a program under test to a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionAttach,
}

var sessionDetachCmd = &cobra.Command{
	Use:   "detach [schedulerId]",
	Short: "Detach the current program from a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDetach,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status [schedulerId]",
	Short: "Show a session's live status",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionStatus,
}

var sessionTraceCmd = &cobra.Command{
	Use:   "trace [schedulerId]",
	Short: "Print a session's recorded schedule trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionTrace,
}

func init() {
	sessionCmd.AddCommand(sessionInitCmd, sessionAttachCmd, sessionDetachCmd, sessionStatusCmd, sessionTraceCmd)

	sessionInitCmd.Flags().StringVar(&strategyType, "strategy", "random", "operation-selection strategy (random|probabilistic|pct|fairpct|replay)")
	sessionInitCmd.Flags().StringVar(&replayTrace, "trace", "", "CSV trace to replay (only used with --strategy replay)")
}

func runSessionInit(cmd *cobra.Command, args []string) error {
	reply, err := rpcCall("Initialize", map[string]interface{}{
		"strategyType": strategyType,
		"trace":        replayTrace,
	})
	if err != nil {
		return err
	}
	fmt.Printf("schedulerId: %s\n", reply["schedulerId"])
	return nil
}

func runSessionAttach(cmd *cobra.Command, args []string) error {
	reply, err := rpcCall("Attach", map[string]interface{}{"schedulerId": args[0]})
	if err != nil {
		return err
	}
	fmt.Printf("iteration:       %.0f\n", reply["iteration"])
	fmt.Printf("mainOperationId: %s\n", reply["mainOperationId"])
	return nil
}

func runSessionDetach(cmd *cobra.Command, args []string) error {
	if _, err := rpcCall("Detach", map[string]interface{}{"schedulerId": args[0]}); err != nil {
		return err
	}
	fmt.Println("detached")
	return nil
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/sessions/" + args[0] + "/status")
	if err != nil {
		return err
	}
	fmt.Println(string(resp))
	return nil
}

func runSessionTrace(cmd *cobra.Command, args []string) error {
	reply, err := rpcCall("GetTrace", map[string]interface{}{"schedulerId": args[0]})
	if err != nil {
		return err
	}
	fmt.Println(reply["trace"])
	return nil
}
