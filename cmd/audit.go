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
	auditName    string
	auditWebsite string
	auditInput   string
	auditEnhance bool
	auditSave    bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Generate a marketing audit for a company",
	Long:  "Runs enrichment (or reads a saved enrichment result) and generates a structured marketing audit. Regenerating is just re-running the command.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		var result *model.EnrichmentResult
		if auditInput != "" {
			data, readErr := os.ReadFile(auditInput)
			if readErr != nil {
				return eris.Wrap(readErr, "read enrichment result")
			}
			result = &model.EnrichmentResult{}
			if jsonErr := json.Unmarshal(data, result); jsonErr != nil {
				return eris.Wrap(jsonErr, "parse enrichment result")
			}
		} else {
			result, err = e.Pipeline.Run(ctx, model.CompanyProfile{
				Name:    auditName,
				Website: auditWebsite,
			})
			if err != nil {
				return eris.Wrap(err, "enrichment run")
			}
		}

		record, err := e.Pipeline.GenerateAudit(ctx, result)
		if err != nil {
			return eris.Wrap(err, "generate audit")
		}

		if auditEnhance {
			record, err = e.Pipeline.EnhanceAudit(ctx, record)
			if err != nil {
				return eris.Wrap(err, "enhance audit")
			}
		}

		if auditSave {
			if err := e.Pipeline.SaveAudit(ctx, result.Profile.Name, record); err != nil {
				return eris.Wrap(err, "save audit")
			}
		}

		zap.L().Info("audit ready",
			zap.String("company", result.Profile.Name),
			zap.String("status", string(record.AuditMetadata.Status)),
			zap.String("version", record.AuditMetadata.AuditVersion),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditName, "name", "", "company name (required unless --input)")
	auditCmd.Flags().StringVar(&auditWebsite, "website", "", "company website URL")
	auditCmd.Flags().StringVar(&auditInput, "input", "", "path to a saved enrichment result JSON (skips re-running enrichment)")
	auditCmd.Flags().BoolVar(&auditEnhance, "enhance", false, "deepen the generated audit with a second pass")
	auditCmd.Flags().BoolVar(&auditSave, "save", false, "persist the audit after generation")
	auditCmd.MarkFlagsOneRequired("name", "input")
	rootCmd.AddCommand(auditCmd)
}
