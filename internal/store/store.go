// Package store persists enrichment outputs: company profiles, CRM results,
// and audits. Two backends exist, Postgres for shared deployments and SQLite
// for local runs.
package store

import (
	"context"

	"github.com/sells-group/crm-cli/internal/model"
)

// Store defines the persistence interface for the enrichment pipeline.
// Persistence failures surface verbatim; the in-memory records survive so the
// user can retry the save without re-running the pipeline.
type Store interface {
	// SaveCompanyProfile upserts the company's base profile, keyed by the
	// user-entered company name.
	SaveCompanyProfile(ctx context.Context, profile *model.CompanyProfile, officialName string) error

	// SaveCRMRecord appends a full enrichment snapshot: the CRM record plus
	// the research it was synthesized from.
	SaveCRMRecord(ctx context.Context, result *model.EnrichmentResult) error

	// UpdateCRMRecord replaces the CRM insights on the company's newest
	// enrichment snapshot. Returns an error when no snapshot exists.
	UpdateCRMRecord(ctx context.Context, companyName string, crm *model.CRMRecord) error

	// SaveAudit appends an audit document for the company.
	SaveAudit(ctx context.Context, companyName string, audit *model.AuditRecord) error

	// GetHistory returns past enrichment snapshots for a company, newest
	// first.
	GetHistory(ctx context.Context, companyName string) ([]model.HistoryEntry, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
