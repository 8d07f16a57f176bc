package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/ui"
)

var reviewRating int

var reviewCmd = &cobra.Command{
	Use:     "review <order-id> [comment...]",
	GroupID: "market",
	Short:   "Review the seller of a completed order",
	Long: `Submit a seller review for one of your orders.

The review is stored locally and uploaded on the next sync.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.UserID == "" {
			return fmt.Errorf("user_id must be configured to review")
		}

		ctx := cmd.Context()
		order, err := a.store.GetOrder(ctx, args[0])
		if err != nil {
			return fmt.Errorf("order %s not found locally: %w", args[0], err)
		}
		if order.BuyerID != a.cfg.UserID {
			return fmt.Errorf("order %s was not placed by you", args[0])
		}

		review := model.Review{
			TargetUserID: order.SellerID,
			ReviewerID:   a.cfg.UserID,
			OrderID:      order.ID,
			Rating:       reviewRating,
			Comment:      strings.Join(args[1:], " "),
		}
		if _, err := a.repo.SubmitReview(ctx, review); err != nil {
			return err
		}

		fmt.Printf("%s Review queued (%d/5)\n", ui.RenderSuccess("✓"), reviewRating)
		return nil
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewRating, "rating", 5, "rating from 1 to 5")
	rootCmd.AddCommand(reviewCmd)
}
