// dqpipe runs one data quality pipeline pass over a client file and
// exits. The exit code distinguishes clean completion from aborted or
// failed runs so schedulers can react.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"dqpipe/internal/config"
	"dqpipe/internal/infrastructure"
	"dqpipe/internal/pipeline"
	"dqpipe/pkg/contracts/domain"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional, env vars override)")
	sourceFile := flag.String("file", "", "client data file to process (.csv or .xlsx)")
	dryRun := flag.Bool("dry-run", false, "evaluate notification without sending")
	flag.Parse()

	if *sourceFile == "" {
		fmt.Fprintln(os.Stderr, "usage: dqpipe -file <path> [-config <path>] [-dry-run]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *dryRun {
		cfg.Notify.DryRun = true
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	orchestrator := pipeline.New(cfg, nil, logger)
	summary, err := orchestrator.Run(context.Background(), *sourceFile)

	printSummary(summary)

	if err != nil {
		if summary.State == domain.RunStateAborted {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

// printSummary writes a human-readable result to stdout for operators
// running the tool by hand.
func printSummary(s domain.RunSummary) {
	fmt.Printf("run %s: %s\n", s.ID, s.State)
	if s.Metrics != nil {
		fmt.Printf("  rows seen:     %d\n", s.Metrics.RowsSeen)
		fmt.Printf("  rows retained: %d\n", s.Metrics.RowsRetained)
		fmt.Printf("  rows dropped:  %d\n", s.Metrics.RowsDropped)
		fmt.Printf("  drop rate:     %.2f%%\n", s.Metrics.DropRate*100)
	}
	if s.Severity != nil {
		fmt.Printf("  severity:      %s\n", s.Severity.String())
	}
	if s.ReportPath != "" {
		fmt.Printf("  report:        %s\n", s.ReportPath)
	}
	if s.CleanedPath != "" {
		fmt.Printf("  cleaned:       %s\n", s.CleanedPath)
	}
	if s.Notification != nil {
		switch {
		case !s.Notification.Attempted && s.Notification.WouldSend:
			fmt.Println("  notification:  dry run, would send")
		case !s.Notification.Attempted:
			fmt.Println("  notification:  below severity threshold, not sent")
		case s.Notification.Delivered:
			fmt.Printf("  notification:  delivered after %d attempt(s)\n", s.Notification.Attempts)
		default:
			fmt.Printf("  notification:  failed after %d attempt(s)\n", s.Notification.Attempts)
		}
	}
	if s.Error != "" {
		fmt.Printf("  error:         %s\n", s.Error)
	}
}
