package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fentz26/interleave/internal/config"
	"github.com/fentz26/interleave/internal/registry"
	"github.com/fentz26/interleave/internal/report"
	"github.com/fentz26/interleave/internal/rpc"
	"github.com/spf13/cobra"
)

var (
	listenAddr   string
	reportDBPath string
	configPath   string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the interleaved daemon",
	Long:  `Starts the daemon that exposes the scheduling engine's HTTP API.`,
	RunE:  runDaemon,
}

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultDB := filepath.Join(homeDir, ".interleave", "reports.db")
	defaultConfig := filepath.Join(homeDir, ".interleave", "config.yaml")

	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	daemonCmd.Flags().StringVar(&reportDBPath, "db", defaultDB, "path to the report SQLite database")
	daemonCmd.Flags().StringVar(&configPath, "config", defaultConfig, "path to the configuration file")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Println("starting interleaved daemon...")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if reportDBPath != "" {
		cfg.ReportDBPath = reportDBPath
	}

	reports, err := report.New(cfg.ReportDBPath)
	if err != nil {
		return err
	}

	reg := registry.New()
	server := rpc.NewServer(reg, reports, cfg, log.Default())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("received signal %v, shutting down...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("server error: %v", err)
			reports.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	log.Println("closing report database...")
	if err := reports.Close(); err != nil {
		log.Printf("report db close error: %v", err)
	}

	log.Println("shutdown complete")
	return nil
}
