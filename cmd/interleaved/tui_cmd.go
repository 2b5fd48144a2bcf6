package main

import (
	"fmt"
	"strings"

	"github.com/fentz26/interleave/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [schedulerId]",
	Short: "Launch the live session monitor",
	Args:  cobra.ExactArgs(1),
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	if _, err := CheckHealth(); err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", apiAddr, err)
	}

	addr := strings.TrimSuffix(apiAddr, "/")
	app := tui.New(addr, args[0])
	return app.Run()
}
