package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show local cache and queue status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()

		products, err := a.store.ListProducts(ctx)
		if err != nil {
			return err
		}
		pending, err := a.store.PendingCount(ctx)
		if err != nil {
			return err
		}
		dead, err := a.store.ListDeadOps(ctx)
		if err != nil {
			return err
		}
		uploads, err := a.store.ListImageUploads(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s\n\n", ui.RenderHeader("UniMarket Status"))
		fmt.Printf("Database: %s\n", a.cfg.DBPath())

		oldest, ok, err := a.store.OldestCacheTimestamp(ctx)
		if err != nil {
			return err
		}
		if ok {
			age := time.Since(oldest).Round(time.Second)
			freshness := ui.RenderSuccess("fresh")
			if age > a.cfg.CacheTTL {
				freshness = ui.RenderWarn("stale")
			}
			fmt.Printf("Cache:    %d products, %s (age %s, ttl %s)\n",
				len(products), freshness, age, a.cfg.CacheTTL)
		} else {
			fmt.Printf("Cache:    %s\n", ui.RenderMuted("empty"))
		}

		queueLine := ui.RenderSuccess("empty")
		if pending > 0 {
			queueLine = ui.RenderWarn(fmt.Sprintf("%d operations waiting", pending))
		}
		fmt.Printf("Queue:    %s\n", queueLine)

		if len(dead) > 0 {
			fmt.Printf("Dead:     %s\n", ui.RenderError(fmt.Sprintf("%d retired operations", len(dead))))
			for _, op := range dead {
				fmt.Printf("  %s  %s  %s\n", ui.RenderMuted(op.FailedAt.Format(time.RFC3339)),
					op.Kind, op.Reason)
			}
		}

		var failedUploads int
		for _, u := range uploads {
			if u.State == model.UploadFailed {
				failedUploads++
			}
		}
		if failedUploads > 0 {
			fmt.Printf("Uploads:  %s\n",
				ui.RenderWarn(fmt.Sprintf("%d failed, retry with 'unimarket publish'", failedUploads)))
		}

		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
