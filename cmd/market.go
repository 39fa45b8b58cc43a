package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetflow/leadflow/internal/model"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Market snapshot operations",
}

var marketShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the seeded market snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := loadFeed(time.Now())
		if err != nil {
			return err
		}

		snapshots := make([]model.MarketSnapshot, 0)
		for _, lane := range feed.Lanes() {
			if snap, ok := feed.Snapshot(lane); ok {
				snapshots = append(snapshots, snap)
			}
		}
		return printJSON(snapshots)
	},
}

func init() {
	marketCmd.AddCommand(marketShowCmd)
	rootCmd.AddCommand(marketCmd)
}
