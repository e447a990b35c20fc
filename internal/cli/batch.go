package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/wikibot/internal/batch"
	"github.com/vietddude/wikibot/internal/health"
)

var batchCmd = &cobra.Command{
	Use:   "batch [plan.yaml]",
	Short: "Run a batch plan of page edits, moves and deletions",
	Args:  cobra.ExactArgs(1),
	Run:   runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) {
	cfg := setup()

	plan, err := batch.LoadPlan(args[0])
	if err != nil {
		slog.Error("Failed to load batch plan", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal, finishing in-flight tasks...", "signal", sig)
		cancel()
	}()

	c := newClient(ctx, cfg)
	defer func() {
		_ = c.Close()
	}()

	srv := health.NewServer(c.Session(), cfg.Server.Port)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Stop(shutdownCtx)
	}()

	report, err := batch.NewRunner(c).Run(ctx, plan)
	if err != nil {
		slog.Error("Batch run aborted", "run", report.RunID, "error", err)
		os.Exit(1)
	}

	slog.Info("Batch run complete",
		"run", report.RunID, "succeeded", report.Succeeded, "failed", report.Failed)
	if report.Failed > 0 {
		os.Exit(1)
	}
}
