package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleResult() *model.EnrichmentResult {
	crm := &model.CRMRecord{
		PrimaryDecisionMaker: "Jane Doe",
		LeadScore:            "72",
		Tier:                 model.TierHot,
	}
	crm.Normalize()

	research := &model.ResearchResult{}
	research.Funding.TotalFunding = model.Known("$12M")
	research.Normalize()

	return &model.EnrichmentResult{
		Profile: model.CompanyProfile{
			Name:    "Acme",
			Website: "https://acme.com",
			Notes:   "met at conference",
		},
		OfficialName: "Acme Corporation",
		Research:     research,
		CRM:          crm,
	}
}

func TestSQLiteSaveAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := sampleResult()
	require.NoError(t, s.SaveCompanyProfile(ctx, &result.Profile, result.OfficialName))
	require.NoError(t, s.SaveCRMRecord(ctx, result))

	entries, err := s.GetHistory(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "Acme", e.CompanyName)
	assert.Equal(t, "Acme Corporation", e.OfficialName)
	assert.Equal(t, "https://acme.com", e.Website)
	assert.Equal(t, "met at conference", e.Notes)
	require.NotNil(t, e.CRM)
	assert.Equal(t, "Jane Doe", e.CRM.PrimaryDecisionMaker)
	assert.Equal(t, model.TierHot, e.CRM.Tier)
	require.NotNil(t, e.Research)
	assert.Equal(t, "$12M", e.Research.Funding.TotalFunding.Value())
	// Sentinel round-trips through storage.
	assert.Equal(t, model.Unknown, e.CRM.Email)
}

func TestSQLiteHistoryNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleResult()
	first.CRM.LeadScore = "10"
	require.NoError(t, s.SaveCRMRecord(ctx, first))

	second := sampleResult()
	second.CRM.LeadScore = "90"
	require.NoError(t, s.SaveCRMRecord(ctx, second))

	entries, err := s.GetHistory(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Identical timestamps can tie on sqlite's second resolution; both
	// snapshots must still be present.
	scores := []string{entries[0].CRM.LeadScore, entries[1].CRM.LeadScore}
	assert.ElementsMatch(t, []string{"10", "90"}, scores)
}

func TestSQLiteUpdateCRMRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCRMRecord(ctx, sampleResult()))

	crm := &model.CRMRecord{PrimaryDecisionMaker: "John Smith", LeadScore: "95"}
	crm.Normalize()
	require.NoError(t, s.UpdateCRMRecord(ctx, "Acme", crm))

	entries, err := s.GetHistory(ctx, "Acme")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "John Smith", entries[0].CRM.PrimaryDecisionMaker)
	assert.Equal(t, "95", entries[0].CRM.LeadScore)
}

func TestSQLiteUpdateCRMRecordNoSnapshot(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateCRMRecord(context.Background(), "NoSuchCo", &model.CRMRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no crm result to update")
}

func TestSQLiteHistoryUnknownCompany(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.GetHistory(context.Background(), "NoSuchCo")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLiteProfileUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	profile := &model.CompanyProfile{Name: "Acme", Website: "https://old.acme.com"}
	require.NoError(t, s.SaveCompanyProfile(ctx, profile, ""))

	profile.Website = "https://acme.com"
	require.NoError(t, s.SaveCompanyProfile(ctx, profile, "Acme Corporation"))

	var count int
	var website, official string
	row := s.db.QueryRowContext(ctx, `SELECT count(*) FROM companies`)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)

	row = s.db.QueryRowContext(ctx, `SELECT website, official_company_name FROM companies WHERE company_name = ?`, "Acme")
	require.NoError(t, row.Scan(&website, &official))
	assert.Equal(t, "https://acme.com", website)
	assert.Equal(t, "Acme Corporation", official)
}

func TestSQLiteSaveCRMRecordRequiresCRM(t *testing.T) {
	s := newTestStore(t)
	result := sampleResult()
	result.CRM = nil
	assert.Error(t, s.SaveCRMRecord(context.Background(), result))
}

func TestSQLiteSaveAudit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var audit model.AuditRecord
	audit.AuditSummary.ExecutiveSummary = "Strong fit"
	audit.Normalize()
	require.NoError(t, s.SaveAudit(ctx, "Acme", &audit))

	audit.Approve()
	require.NoError(t, s.SaveAudit(ctx, "Acme", &audit))

	rows, err := s.db.QueryContext(ctx, `SELECT status FROM audits WHERE company_name = ? ORDER BY rowid`, "Acme")
	require.NoError(t, err)
	defer rows.Close()

	var statuses []string
	for rows.Next() {
		var st string
		require.NoError(t, rows.Scan(&st))
		statuses = append(statuses, st)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"Draft", "Approved"}, statuses)
}

func TestSQLitePing(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
