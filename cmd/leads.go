package main

import (
	"github.com/spf13/cobra"

	"github.com/fleetflow/leadflow/internal/model"
	"github.com/fleetflow/leadflow/internal/pipeline"
	"github.com/fleetflow/leadflow/internal/store"
)

var (
	leadsStates   []string
	leadsTier     string
	leadsMinScore float64
	leadsLimit    int
	leadsInputs   []string
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Lead pipeline operations",
}

var leadsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the lead pipeline and print unified leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sources, err := loadSources(leadsInputs)
		if err != nil {
			return err
		}

		p := pipeline.New(sources, *cfg, st, initEnricher())
		result, err := p.GenerateUnifiedLeads(ctx, pipeline.Filter{
			States:   leadsStates,
			Tier:     model.PriorityTier(leadsTier),
			MinScore: leadsMinScore,
			Limit:    leadsLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads without running the pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		leads, err := st.ListLeads(ctx, store.LeadFilter{
			Tier:     model.PriorityTier(leadsTier),
			MinScore: leadsMinScore,
			Limit:    leadsLimit,
		})
		if err != nil {
			return err
		}
		return printJSON(leads)
	},
}

func init() {
	for _, c := range []*cobra.Command{leadsGenerateCmd, leadsListCmd} {
		c.Flags().StringVar(&leadsTier, "tier", "", "filter by priority tier (HIGH, MEDIUM, LOW)")
		c.Flags().Float64Var(&leadsMinScore, "min-score", 0, "minimum composite score")
		c.Flags().IntVar(&leadsLimit, "limit", 0, "maximum leads to return")
	}
	leadsGenerateCmd.Flags().StringSliceVar(&leadsStates, "state", nil, "filter by state code (repeatable)")
	leadsGenerateCmd.Flags().StringSliceVar(&leadsInputs, "input", nil, "JSON source file (repeatable)")

	leadsCmd.AddCommand(leadsGenerateCmd)
	leadsCmd.AddCommand(leadsListCmd)
	rootCmd.AddCommand(leadsCmd)
}
