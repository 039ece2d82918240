package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/model"
)

var (
	enrichName     string
	enrichWebsite  string
	enrichIndustry string
	enrichLocation string
	enrichNotes    string
	enrichSave     bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run lead enrichment for a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		profile := model.CompanyProfile{
			Name:     enrichName,
			Website:  enrichWebsite,
			Industry: enrichIndustry,
			Location: enrichLocation,
			Notes:    enrichNotes,
		}

		result, err := e.Pipeline.Run(ctx, profile)
		if err != nil {
			return eris.Wrap(err, "enrichment run")
		}

		zap.L().Info("enrichment complete",
			zap.String("company", result.Profile.Name),
			zap.String("official_name", result.OfficialName),
			zap.String("tier", string(result.CRM.Tier)),
			zap.String("lead_score", result.CRM.LeadScore),
		)

		if enrichSave {
			if err := e.Pipeline.SaveResults(ctx, result); err != nil {
				return eris.Wrap(err, "save results")
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichName, "name", "", "company name (required)")
	enrichCmd.Flags().StringVar(&enrichWebsite, "website", "", "company website URL")
	enrichCmd.Flags().StringVar(&enrichIndustry, "industry", "", "company industry")
	enrichCmd.Flags().StringVar(&enrichLocation, "location", "", "company location")
	enrichCmd.Flags().StringVar(&enrichNotes, "notes", "", "free-form notes to carry into the record")
	enrichCmd.Flags().BoolVar(&enrichSave, "save", false, "persist the results after a successful run")
	_ = enrichCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrichCmd)
}
