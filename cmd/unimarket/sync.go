package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/unimarket/internal/ui"
	"github.com/mkravets/unimarket/internal/worker"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Drain the pending-operation queue once",
	Long: `Replay all queued operations against the backend in creation order.

A transient failure stops the run and leaves the remaining operations
queued. Run again, or let the daemon retry with backoff.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		w := worker.New(a.store, a.client, a.client, a.logger)
		runner := worker.NewRunner(w, worker.RunnerConfig{}, a.logger)

		res := runner.RunNow(cmd.Context())

		fmt.Printf("%s synced, %d dead-lettered, %d dropped, %d upload failures\n",
			ui.RenderSuccess(fmt.Sprintf("%d", res.Synced)),
			res.DeadLettered, res.Dropped, res.Failed)

		if res.Retry {
			fmt.Println(ui.RenderWarn("Run aborted on a transient failure; remaining operations stay queued."))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
