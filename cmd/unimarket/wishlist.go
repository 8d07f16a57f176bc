package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/unimarket/internal/ui"
)

var wishlistCmd = &cobra.Command{
	Use:     "wishlist",
	GroupID: "market",
	Short:   "Show the local wishlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := a.repo.Wishlist(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(ui.RenderMuted("Wishlist is empty."))
			return nil
		}

		for _, e := range entries {
			line := e.ProductID
			if p, err := a.store.GetProduct(cmd.Context(), e.ProductID); err == nil {
				line = fmt.Sprintf("%s  %s (%.2f)", e.ProductID, p.Title, p.Price)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var wishlistToggleCmd = &cobra.Command{
	Use:   "toggle <product-id>",
	Short: "Add or remove a product from the wishlist",
	Long: `Toggle a product's wishlist membership.

The change applies locally at once and is queued for the backend, so it
works offline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.UserID == "" {
			return fmt.Errorf("user_id must be configured to use the wishlist")
		}

		added, err := a.repo.ToggleWishlist(cmd.Context(), a.cfg.UserID, args[0])
		if err != nil {
			return err
		}
		if added {
			fmt.Printf("%s Added %s to wishlist\n", ui.RenderSuccess("✓"), args[0])
		} else {
			fmt.Printf("%s Removed %s from wishlist\n", ui.RenderSuccess("✓"), args[0])
		}
		return nil
	},
}

func init() {
	wishlistCmd.AddCommand(wishlistToggleCmd)
	rootCmd.AddCommand(wishlistCmd)
}
