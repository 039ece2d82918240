package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cli/internal/metadata"
	"github.com/sells-group/crm-cli/internal/model"
)

type fakeStore struct {
	profiles  int
	records   int
	audits    int
	updates   int
	history   []model.HistoryEntry
	saveErr   error
	auditErr  error
	recordErr error
	updateErr error

	updatedName string
}

func (f *fakeStore) SaveCompanyProfile(_ context.Context, _ *model.CompanyProfile, _ string) error {
	f.profiles++
	return f.saveErr
}

func (f *fakeStore) SaveCRMRecord(_ context.Context, _ *model.EnrichmentResult) error {
	f.records++
	return f.recordErr
}

func (f *fakeStore) UpdateCRMRecord(_ context.Context, companyName string, _ *model.CRMRecord) error {
	f.updates++
	f.updatedName = companyName
	return f.updateErr
}

func (f *fakeStore) SaveAudit(_ context.Context, _ string, _ *model.AuditRecord) error {
	f.audits++
	return f.auditErr
}

func (f *fakeStore) GetHistory(_ context.Context, _ string) ([]model.HistoryEntry, error) {
	return f.history, nil
}

func (f *fakeStore) Ping(_ context.Context) error    { return nil }
func (f *fakeStore) Migrate(_ context.Context) error { return nil }
func (f *fakeStore) Close() error                    { return nil }

type fakeMetadata struct {
	md  *model.WebsiteMetadata
	err error

	calls int
}

func (f *fakeMetadata) Fetch(_ context.Context, _ string) (*model.WebsiteMetadata, error) {
	f.calls++
	return f.md, f.err
}

type fakeResearcher struct {
	result *model.ResearchResult
	err    error
	filled []model.GapTag

	researchedName string
	fillCalls      int
}

func (f *fakeResearcher) Research(_ context.Context, companyName, _ string) (*model.ResearchResult, error) {
	f.researchedName = companyName
	return f.result, f.err
}

func (f *fakeResearcher) FillGaps(_ context.Context, _ *model.ResearchResult, _, _ string) []model.GapTag {
	f.fillCalls++
	return f.filled
}

type fakeSynthesizer struct {
	crm *model.CRMRecord
	err error

	officialName string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ *model.ResearchResult, _ *model.CompanyProfile, officialName string) (*model.CRMRecord, error) {
	f.officialName = officialName
	return f.crm, f.err
}

type fakeAuditor struct {
	generated *model.AuditRecord
	enhanced  *model.AuditRecord
	genErr    error
	enhErr    error
}

func (f *fakeAuditor) Generate(_ context.Context, _ *model.CompanyProfile, _ *model.CRMRecord) (*model.AuditRecord, error) {
	return f.generated, f.genErr
}

func (f *fakeAuditor) Enhance(_ context.Context, _ *model.AuditRecord) (*model.AuditRecord, error) {
	return f.enhanced, f.enhErr
}

func researchWithGaps() *model.ResearchResult {
	r := &model.ResearchResult{}
	r.Funding.TotalFunding = model.Known("$12M")
	r.Revenue.AnnualRevenue = model.Known("$5M")
	r.Hiring.IsHiring = model.Known("yes")
	r.News.RecentAnnouncements = []string{"Series A announced"}
	// agency stays unresolved
	r.Normalize()
	return r
}

func researchComplete() *model.ResearchResult {
	r := researchWithGaps()
	r.Agency.CurrentAgency = model.Known("In-house")
	return r
}

func phaseByName(t *testing.T, result *model.EnrichmentResult, name string) model.PhaseResult {
	t.Helper()
	for _, p := range result.Phases {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("phase %q not recorded", name)
	return model.PhaseResult{}
}

func TestRunFullEnrichment(t *testing.T) {
	st := &fakeStore{}
	md := &fakeMetadata{md: &model.WebsiteMetadata{CompanyName: "Acme Corporation"}}
	re := &fakeResearcher{result: researchWithGaps(), filled: []model.GapTag{model.GapAgency}}
	syn := &fakeSynthesizer{crm: &model.CRMRecord{Tier: model.TierWarm, LeadScore: "62"}}
	p := New(st, md, re, syn, &fakeAuditor{})

	result, err := p.Run(context.Background(), model.CompanyProfile{
		Name:     "acme",
		Website:  "acme.com",
		Location: "Austin, TX",
	})
	require.NoError(t, err)
	require.NotNil(t, result.CRM)

	assert.Equal(t, "Acme Corporation", result.OfficialName)
	assert.Equal(t, "Acme Corporation", re.researchedName)
	assert.Equal(t, "Acme Corporation", syn.officialName)
	assert.Equal(t, model.TierWarm, result.CRM.Tier)
	assert.WithinDuration(t, time.Now(), result.StartedAt, 5*time.Second)

	for _, name := range []string{PhaseMetadata, PhaseResearch, PhaseFallback, PhaseSynthesize} {
		assert.Equal(t, model.PhaseStatusComplete, phaseByName(t, result, name).Status, name)
	}
	assert.Equal(t, 1, re.fillCalls)
}

func TestRunNoWebsiteSkipsMetadata(t *testing.T) {
	md := &fakeMetadata{}
	re := &fakeResearcher{result: researchComplete()}
	syn := &fakeSynthesizer{crm: &model.CRMRecord{}}
	p := New(&fakeStore{}, md, re, syn, &fakeAuditor{})

	result, err := p.Run(context.Background(), model.CompanyProfile{Name: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, 0, md.calls)
	assert.Equal(t, model.PhaseStatusSkipped, phaseByName(t, result, PhaseMetadata).Status)
	assert.Equal(t, "Acme", re.researchedName)
}

func TestRunMetadataFailureIsNonFatal(t *testing.T) {
	md := &fakeMetadata{err: &metadata.FetchError{Kind: metadata.KindTimeout, Message: "timed out"}}
	re := &fakeResearcher{result: researchComplete()}
	syn := &fakeSynthesizer{crm: &model.CRMRecord{}}
	p := New(&fakeStore{}, md, re, syn, &fakeAuditor{})

	result, err := p.Run(context.Background(), model.CompanyProfile{Name: "Acme", Website: "acme.com"})
	require.NoError(t, err)
	require.NotNil(t, result.CRM)

	phase := phaseByName(t, result, PhaseMetadata)
	assert.Equal(t, model.PhaseStatusFailed, phase.Status)
	assert.Equal(t, "timeout", phase.Metadata["kind"])
	assert.Equal(t, "Acme", result.OfficialName)
}

func TestRunResearchFailureAborts(t *testing.T) {
	re := &fakeResearcher{err: eris.New("upstream exploded")}
	syn := &fakeSynthesizer{crm: &model.CRMRecord{}}
	p := New(&fakeStore{}, &fakeMetadata{}, re, syn, &fakeAuditor{})

	result, err := p.Run(context.Background(), model.CompanyProfile{Name: "Acme"})
	require.Error(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.PhaseStatusFailed, phaseByName(t, result, PhaseResearch).Status)
	assert.Equal(t, model.PhaseStatusSkipped, phaseByName(t, result, PhaseFallback).Status)
	assert.Nil(t, result.CRM)
	assert.Equal(t, 0, re.fillCalls)
}

func TestRunNoGapsSkipsFallback(t *testing.T) {
	re := &fakeResearcher{result: researchComplete()}
	syn := &fakeSynthesizer{crm: &model.CRMRecord{}}
	p := New(&fakeStore{}, &fakeMetadata{}, re, syn, &fakeAuditor{})

	result, err := p.Run(context.Background(), model.CompanyProfile{Name: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, model.PhaseStatusSkipped, phaseByName(t, result, PhaseFallback).Status)
	assert.Equal(t, 0, re.fillCalls)
}

func TestRunSynthesisFailureAborts(t *testing.T) {
	re := &fakeResearcher{result: researchComplete()}
	syn := &fakeSynthesizer{err: eris.New("mapping failed")}
	p := New(&fakeStore{}, &fakeMetadata{}, re, syn, &fakeAuditor{})

	result, err := p.Run(context.Background(), model.CompanyProfile{Name: "Acme"})
	require.Error(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.PhaseStatusFailed, phaseByName(t, result, PhaseSynthesize).Status)
	assert.NotNil(t, result.Research)
	assert.Nil(t, result.CRM)
}

func TestRunRejectsEmptyName(t *testing.T) {
	p := New(&fakeStore{}, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	_, err := p.Run(context.Background(), model.CompanyProfile{Name: "   "})
	assert.Error(t, err)
}

func TestSaveResults(t *testing.T) {
	st := &fakeStore{}
	p := New(st, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	result := &model.EnrichmentResult{
		Profile:      model.CompanyProfile{Name: "Acme"},
		OfficialName: "Acme Corporation",
		CRM:          &model.CRMRecord{},
	}
	require.NoError(t, p.SaveResults(context.Background(), result))
	assert.Equal(t, 1, st.profiles)
	assert.Equal(t, 1, st.records)
}

func TestSaveResultsRequiresCRM(t *testing.T) {
	p := New(&fakeStore{}, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	assert.Error(t, p.SaveResults(context.Background(), nil))
	assert.Error(t, p.SaveResults(context.Background(), &model.EnrichmentResult{}))
}

func TestSaveResultsSurfacesStoreError(t *testing.T) {
	st := &fakeStore{recordErr: eris.New("connection refused")}
	p := New(st, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	result := &model.EnrichmentResult{
		Profile: model.CompanyProfile{Name: "Acme"},
		CRM:     &model.CRMRecord{LeadScore: "70"},
	}
	err := p.SaveResults(context.Background(), result)
	require.Error(t, err)

	// In-memory result survives for a retry.
	assert.Equal(t, "70", result.CRM.LeadScore)
}

func TestUpdateCRM(t *testing.T) {
	st := &fakeStore{}
	p := New(st, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	require.NoError(t, p.UpdateCRM(context.Background(), "Acme", &model.CRMRecord{LeadScore: "85"}))
	assert.Equal(t, 1, st.updates)
	assert.Equal(t, "Acme", st.updatedName)
}

func TestUpdateCRMRequiresRecord(t *testing.T) {
	st := &fakeStore{}
	p := New(st, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	assert.Error(t, p.UpdateCRM(context.Background(), "Acme", nil))
	assert.Equal(t, 0, st.updates)
}

func TestUpdateCRMSurfacesStoreError(t *testing.T) {
	st := &fakeStore{updateErr: eris.New("no crm result to update")}
	p := New(st, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	assert.Error(t, p.UpdateCRM(context.Background(), "Acme", &model.CRMRecord{}))
}

func TestSaveAuditApprovesOnSuccess(t *testing.T) {
	st := &fakeStore{}
	p := New(st, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	audit := &model.AuditRecord{}
	audit.Normalize()
	require.Equal(t, model.AuditStatusDraft, audit.AuditMetadata.Status)

	require.NoError(t, p.SaveAudit(context.Background(), "Acme", audit))
	assert.Equal(t, model.AuditStatusApproved, audit.AuditMetadata.Status)
	assert.Equal(t, 1, st.audits)
}

func TestSaveAuditStaysDraftOnFailure(t *testing.T) {
	st := &fakeStore{auditErr: eris.New("disk full")}
	p := New(st, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	audit := &model.AuditRecord{}
	audit.Normalize()

	require.Error(t, p.SaveAudit(context.Background(), "Acme", audit))
	assert.Equal(t, model.AuditStatusDraft, audit.AuditMetadata.Status)
}

func TestGenerateAuditRequiresCRM(t *testing.T) {
	aud := &fakeAuditor{generated: &model.AuditRecord{}}
	p := New(&fakeStore{}, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, aud)

	_, err := p.GenerateAudit(context.Background(), &model.EnrichmentResult{})
	assert.Error(t, err)

	rec, err := p.GenerateAudit(context.Background(), &model.EnrichmentResult{
		Profile: model.CompanyProfile{Name: "Acme"},
		CRM:     &model.CRMRecord{},
	})
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestHistory(t *testing.T) {
	st := &fakeStore{history: []model.HistoryEntry{{CompanyName: "Acme"}}}
	p := New(st, &fakeMetadata{}, &fakeResearcher{}, &fakeSynthesizer{}, &fakeAuditor{})

	entries, err := p.History(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = p.History(context.Background(), "")
	assert.Error(t, err)
}
