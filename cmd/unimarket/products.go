package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/ui"
)

var productsAll bool

var productsCmd = &cobra.Command{
	Use:     "products",
	GroupID: "market",
	Short:   "Browse product listings",
	Long: `List product listings.

Listings come from the local cache when it is fresh; otherwise a refetch is
attempted, falling back to stale cache when offline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		products, err := a.repo.Products(cmd.Context(), a.cfg.CacheTTL)
		if err != nil {
			return err
		}

		shown := 0
		for _, p := range products {
			if !productsAll && p.Status != model.ProductAvailable {
				continue
			}
			shown++
			line := fmt.Sprintf("%s  %-30s  %8.2f", p.ID, p.Title, p.Price)
			if p.Status != model.ProductAvailable {
				line += "  " + ui.RenderMuted(string(p.Status))
			}
			if len(p.Labels) > 0 {
				line += "  " + ui.RenderMuted(strings.Join(p.Labels, ","))
			}
			fmt.Println(line)
		}
		if shown == 0 {
			fmt.Println(ui.RenderMuted("No listings."))
		}
		return nil
	},
}

func init() {
	productsCmd.Flags().BoolVar(&productsAll, "all", false, "include unavailable listings")
	rootCmd.AddCommand(productsCmd)
}
