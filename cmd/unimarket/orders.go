package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/ui"
)

var ordersCmd = &cobra.Command{
	Use:     "orders",
	GroupID: "market",
	Short:   "Show local orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		orders, err := a.repo.Orders(cmd.Context())
		if err != nil {
			return err
		}
		if len(orders) == 0 {
			fmt.Println(ui.RenderMuted("No orders."))
			return nil
		}

		for _, o := range orders {
			fmt.Printf("%s  %s  product %s  %.2f  %s\n",
				o.ID, o.OrderDate, o.ProductID, o.Price, o.Status)
		}
		return nil
	},
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create <product-id>",
	Short: "Order a product",
	Long: `Create an order for a cached product.

The order is written locally right away and sent to the backend on the next
sync. The listing is marked unavailable locally so it stops showing as
purchasable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.UserID == "" {
			return fmt.Errorf("user_id must be configured to order")
		}

		ctx := cmd.Context()
		product, err := a.store.GetProduct(ctx, args[0])
		if err != nil {
			return fmt.Errorf("product %s not in local cache: %w", args[0], err)
		}
		if product.Status != model.ProductAvailable {
			return fmt.Errorf("product %s is not available", args[0])
		}

		order := model.Order{
			BuyerID:   a.cfg.UserID,
			SellerID:  product.SellerID,
			ProductID: product.ID,
			Price:     product.Price,
		}
		if err := a.repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := a.repo.MarkUnavailable(ctx, product.ID); err != nil {
			return err
		}

		fmt.Printf("%s Ordered %s for %.2f\n", ui.RenderSuccess("✓"), product.Title, product.Price)
		fmt.Println(ui.RenderMuted("The order uploads on the next sync."))
		return nil
	},
}

func init() {
	ordersCmd.AddCommand(ordersCreateCmd)
	rootCmd.AddCommand(ordersCmd)
}
