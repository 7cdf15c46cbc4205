// dqserver runs the data quality pipeline as an HTTP service: runs are
// started with POST /api/runs and polled until done.
package main

import (
	"flag"
	"log/slog"
	"os"

	"dqpipe/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional, env vars override)")
	flag.Parse()

	application, err := app.New(*configPath)
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
