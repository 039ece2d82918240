package model

import "time"

// PhaseStatus is the outcome of a single pipeline phase.
type PhaseStatus string

const (
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult records the outcome of one pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EnrichmentResult is the envelope for one pipeline run. The CRM record and
// research result stay in memory until the user confirms a save, so a failed
// persistence call can be retried without re-running upstream stages.
type EnrichmentResult struct {
	Profile      CompanyProfile   `json:"profile"`
	OfficialName string           `json:"officialCompanyName"`
	Metadata     *WebsiteMetadata `json:"websiteMetadata,omitempty"`
	Research     *ResearchResult  `json:"research,omitempty"`
	CRM          *CRMRecord       `json:"crm,omitempty"`
	Phases       []PhaseResult    `json:"phases"`
	StartedAt    time.Time        `json:"startedAt"`
}

// HistoryEntry is one past enrichment snapshot for a company, newest first.
type HistoryEntry struct {
	ID           string          `json:"id"`
	CompanyName  string          `json:"companyName"`
	OfficialName string          `json:"officialCompanyName"`
	Website      string          `json:"website,omitempty"`
	CRM          *CRMRecord      `json:"crm,omitempty"`
	Research     *ResearchResult `json:"research,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}
