package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fleetflow/leadflow/internal/model"
)

var (
	quoteOrigin       string
	quoteDestination  string
	quoteEquipment    string
	quoteClass        string
	quoteWeightLbs    float64
	quotePickup       string
	quoteAccessorials []string
	quoteStrict       bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a freight quote for a lane",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		pickup := time.Now()
		if quotePickup != "" {
			var err error
			pickup, err = time.Parse("2006-01-02", quotePickup)
			if err != nil {
				return eris.Wrap(err, "parse pickup date")
			}
		}

		tables, err := loadTables()
		if err != nil {
			return err
		}
		feed, err := loadFeed(time.Now())
		if err != nil {
			return err
		}

		quoter := initQuoter(tables, feed)
		quote, err := quoter.GenerateQuote(ctx, model.QuoteRequest{
			Origin:              quoteOrigin,
			Destination:         quoteDestination,
			Equipment:           model.EquipmentType(quoteEquipment),
			CommodityClass:      quoteClass,
			WeightLbs:           quoteWeightLbs,
			PickupDate:          pickup,
			SpecialRequirements: quoteAccessorials,
			StrictFreshness:     quoteStrict,
		})
		if err != nil {
			return err
		}
		return printJSON(quote)
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteOrigin, "origin", "", "origin city/market (required)")
	quoteCmd.Flags().StringVar(&quoteDestination, "destination", "", "destination city/market (required)")
	quoteCmd.Flags().StringVar(&quoteEquipment, "equipment", string(model.EquipmentDryVan), "equipment type")
	quoteCmd.Flags().StringVar(&quoteClass, "class", "", "freight commodity class")
	quoteCmd.Flags().Float64Var(&quoteWeightLbs, "weight", 0, "shipment weight in pounds (required)")
	quoteCmd.Flags().StringVar(&quotePickup, "pickup", "", "pickup date YYYY-MM-DD (default today)")
	quoteCmd.Flags().StringSliceVar(&quoteAccessorials, "accessorial", nil, "accessorial code (repeatable)")
	quoteCmd.Flags().BoolVar(&quoteStrict, "strict", false, "fail instead of discounting confidence on stale market data")
	rootCmd.AddCommand(quoteCmd)
}
