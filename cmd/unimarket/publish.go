package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mkravets/unimarket/internal/model"
	"github.com/mkravets/unimarket/internal/ui"
)

var (
	publishTitle  string
	publishDesc   string
	publishPrice  float64
	publishLabels []string
	publishImage  string
)

var publishCmd = &cobra.Command{
	Use:     "publish",
	GroupID: "market",
	Short:   "Publish a product listing",
	Long: `Publish a new product listing.

Without flags an interactive form collects the listing details. The listing
is stored locally right away and uploaded on the next sync, so publishing
works offline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.UserID == "" {
			return fmt.Errorf("user_id must be configured to publish")
		}

		if publishTitle == "" {
			if err := runPublishForm(); err != nil {
				return err
			}
		}

		product := model.Product{
			SellerID:    a.cfg.UserID,
			Title:       publishTitle,
			Description: publishDesc,
			Price:       publishPrice,
			Labels:      publishLabels,
		}
		if err := product.Validate(); err != nil {
			return err
		}

		var id string
		if publishImage != "" {
			id, err = a.repo.PublishProductWithImage(cmd.Context(), product, publishImage)
		} else {
			id, err = a.repo.PublishProduct(cmd.Context(), product)
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s Listing %s queued for publication\n", ui.RenderSuccess("✓"), id)
		fmt.Println(ui.RenderMuted("It will appear on the marketplace after the next sync."))
		return nil
	},
}

func runPublishForm() error {
	var priceText, labelsText string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}).
				Value(&publishTitle),
			huh.NewText().
				Title("Description").
				Value(&publishDesc),
			huh.NewInput().
				Title("Price").
				Validate(func(s string) error {
					p, err := strconv.ParseFloat(s, 64)
					if err != nil || p <= 0 {
						return fmt.Errorf("enter a positive number")
					}
					return nil
				}).
				Value(&priceText),
			huh.NewInput().
				Title("Labels (comma separated)").
				Value(&labelsText),
			huh.NewInput().
				Title("Image path (optional)").
				Value(&publishImage),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	publishPrice, _ = strconv.ParseFloat(priceText, 64)
	for _, label := range strings.Split(labelsText, ",") {
		if label = strings.TrimSpace(label); label != "" {
			publishLabels = append(publishLabels, label)
		}
	}
	return nil
}

func init() {
	publishCmd.Flags().StringVar(&publishTitle, "title", "", "listing title")
	publishCmd.Flags().StringVar(&publishDesc, "description", "", "listing description")
	publishCmd.Flags().Float64Var(&publishPrice, "price", 0, "listing price")
	publishCmd.Flags().StringSliceVar(&publishLabels, "label", nil, "listing label (repeatable)")
	publishCmd.Flags().StringVar(&publishImage, "image", "", "local image path to upload")

	rootCmd.AddCommand(publishCmd)
}
