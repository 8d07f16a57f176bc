package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mkravets/unimarket/internal/backend/stream"
	"github.com/mkravets/unimarket/internal/connectivity"
	"github.com/mkravets/unimarket/internal/dashboard"
	"github.com/mkravets/unimarket/internal/worker"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run the background sync daemon (foreground)",
	Long: `Run the sync daemon in the foreground.

The daemon:
  1. Drains the pending-operation queue on an interval
  2. Probes connectivity and drains immediately when the link returns
  3. Watches the image spool for files awaiting upload
  4. Subscribes to the message stream for incoming chat
  5. Optionally serves a WebSocket dashboard of sync activity`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := worker.New(a.store, a.client, a.client, a.logger)
		runner := worker.NewRunner(w, worker.RunnerConfig{Interval: a.cfg.SyncInterval}, a.logger)

		if a.cfg.DashboardPort != 0 {
			dash := dashboard.NewServer(a.cfg.DashboardPort, a.store, a.logger)
			if err := dash.Start(); err != nil {
				return err
			}
			defer func() {
				if err := dash.Stop(); err != nil {
					a.logger.Warn("dashboard stop failed", zap.Error(err))
				}
			}()
			w.SetEvents(dash)
			fmt.Printf("Dashboard: http://%s/\n", dash.Addr())
		}

		var trigger func()
		if a.cfg.MeteredSync {
			a.logger.Info("metered connection, automatic recovery sync disabled")
		} else {
			trigger = runner.Kick
		}
		monitor := connectivity.NewMonitor(
			connectivity.HTTPProbe(a.cfg.BackendURL+"/health", 0),
			connectivity.DefaultConfig(),
			trigger,
			a.logger,
		)

		spool, err := worker.NewSpoolWatcher(a.cfg.SpoolPath(), runner, 0, a.logger)
		if err != nil {
			return err
		}

		sub := stream.New(a.cfg.StreamURL, a.store, a.logger)

		fmt.Printf("Database: %s\n", a.cfg.DBPath())
		fmt.Printf("Backend:  %s\n", a.cfg.BackendURL)
		fmt.Printf("Spool:    %s\n", a.cfg.SpoolPath())
		fmt.Println("\nPress Ctrl+C to stop")

		var wg sync.WaitGroup
		run := func(name string, fn func(context.Context) error) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
					a.logger.Error("component stopped", zap.String("component", name), zap.Error(err))
				}
			}()
		}

		run("runner", runner.Start)
		run("connectivity", monitor.Start)
		run("spool", spool.Start)
		run("stream", sub.Run)

		// Drain once at startup so work queued while the daemon was down
		// does not wait a full interval.
		runner.Kick()

		<-ctx.Done()
		wg.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
