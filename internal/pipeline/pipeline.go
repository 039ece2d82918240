// Package pipeline orchestrates a full enrichment run: website metadata,
// primary research, gap fallback, and CRM synthesis. Persistence and audit
// generation are separate user-initiated operations so a failed save or a
// regenerated audit never re-runs the upstream stages.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/metadata"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/sanitize"
	"github.com/sells-group/crm-cli/internal/store"
)

// MetadataFetcher scrapes a company website for name hints.
type MetadataFetcher interface {
	Fetch(ctx context.Context, website string) (*model.WebsiteMetadata, error)
}

// Researcher runs the primary research query and the fallback gap-fill.
type Researcher interface {
	Research(ctx context.Context, companyName, website string) (*model.ResearchResult, error)
	FillGaps(ctx context.Context, result *model.ResearchResult, companyName, website string) []model.GapTag
}

// Synthesizer maps research plus form data into a CRM record.
type Synthesizer interface {
	Synthesize(ctx context.Context, research *model.ResearchResult, profile *model.CompanyProfile, officialName string) (*model.CRMRecord, error)
}

// Auditor generates and enhances audit documents from a CRM record.
type Auditor interface {
	Generate(ctx context.Context, profile *model.CompanyProfile, crm *model.CRMRecord) (*model.AuditRecord, error)
	Enhance(ctx context.Context, existing *model.AuditRecord) (*model.AuditRecord, error)
}

// Pipeline wires the enrichment stages together. All dependencies are
// injected at construction; there is no package-level state.
type Pipeline struct {
	store    store.Store
	metadata MetadataFetcher
	research Researcher
	insight  Synthesizer
	audit    Auditor
}

// New creates a Pipeline with all dependencies.
func New(st store.Store, md MetadataFetcher, re Researcher, syn Synthesizer, aud Auditor) *Pipeline {
	return &Pipeline{
		store:    st,
		metadata: md,
		research: re,
		insight:  syn,
		audit:    aud,
	}
}

// Phase names as recorded in EnrichmentResult.Phases.
const (
	PhaseMetadata   = "metadata"
	PhaseResearch   = "research"
	PhaseFallback   = "fallback"
	PhaseSynthesize = "synthesize"
)

// Run executes one enrichment for a company profile. The metadata and
// fallback phases are best-effort; a research or synthesis failure aborts the
// run and returns the partial result alongside the error so callers can show
// which phase broke.
func (p *Pipeline) Run(ctx context.Context, profile model.CompanyProfile) (*model.EnrichmentResult, error) {
	profile.Name = sanitize.Name(profile.Name)
	profile.Website = sanitize.NormalizeWebsite(profile.Website)
	if profile.Name == "" {
		return nil, eris.New("pipeline: company name is required")
	}

	log := zap.L().With(zap.String("company", profile.Name))
	log.Info("pipeline: starting enrichment")

	result := &model.EnrichmentResult{
		Profile:      profile,
		OfficialName: profile.Name,
		StartedAt:    time.Now().UTC(),
	}

	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) error {
		start := time.Now()
		pr, fnErr := fn()
		duration := time.Since(start).Milliseconds()

		if pr == nil {
			pr = &model.PhaseResult{}
		}
		pr.Name = name
		pr.Duration = duration

		if fnErr != nil {
			pr.Status = model.PhaseStatusFailed
			pr.Error = fnErr.Error()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
				zap.Error(fnErr),
			)
		} else if pr.Status == "" {
			pr.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", duration),
			)
		}

		result.Phases = append(result.Phases, *pr)
		return fnErr
	}

	skipPhase := func(name, reason string) {
		result.Phases = append(result.Phases, model.PhaseResult{
			Name:     name,
			Status:   model.PhaseStatusSkipped,
			Metadata: map[string]any{"reason": reason},
		})
	}

	// Metadata: best-effort name correction from the website. A fetch
	// failure is recorded but never blocks research.
	if profile.Website == "" {
		skipPhase(PhaseMetadata, "no website provided")
	} else {
		_ = trackPhase(PhaseMetadata, func() (*model.PhaseResult, error) {
			md, mdErr := p.metadata.Fetch(ctx, profile.Website)
			if mdErr != nil {
				var fe *metadata.FetchError
				if errors.As(mdErr, &fe) {
					return &model.PhaseResult{
						Metadata: map[string]any{"kind": string(fe.Kind)},
					}, mdErr
				}
				return nil, mdErr
			}
			result.Metadata = md
			if md.CompanyName != "" && md.CompanyName != result.OfficialName {
				log.Info("pipeline: using official name from website",
					zap.String("official_name", md.CompanyName))
				result.OfficialName = md.CompanyName
			}
			return &model.PhaseResult{
				Metadata: map[string]any{"official_name": result.OfficialName},
			}, nil
		})
	}

	// Research: fatal. An unparseable response means there is nothing to
	// fall back from, so the fallback phase is skipped, not failed.
	if err := trackPhase(PhaseResearch, func() (*model.PhaseResult, error) {
		res, resErr := p.research.Research(ctx, result.OfficialName, profile.Website)
		if resErr != nil {
			return nil, resErr
		}
		result.Research = res
		return &model.PhaseResult{
			Metadata: map[string]any{"gaps": gapStrings(res.Gaps())},
		}, nil
	}); err != nil {
		skipPhase(PhaseFallback, "research failed")
		return result, eris.Wrap(err, "pipeline: research")
	}

	// Fallback: absorbed. Individual gap queries may fail; whatever filled
	// is merged and the rest stays at the sentinel.
	gaps := result.Research.Gaps()
	if len(gaps) == 0 {
		skipPhase(PhaseFallback, "no gaps")
	} else {
		_ = trackPhase(PhaseFallback, func() (*model.PhaseResult, error) {
			filled := p.research.FillGaps(ctx, result.Research, result.OfficialName, profile.Website)
			return &model.PhaseResult{
				Metadata: map[string]any{
					"gaps_found":  gapStrings(gaps),
					"gaps_filled": gapStrings(filled),
				},
			}, nil
		})
	}

	// Synthesize: fatal.
	if err := trackPhase(PhaseSynthesize, func() (*model.PhaseResult, error) {
		crm, synErr := p.insight.Synthesize(ctx, result.Research, &profile, result.OfficialName)
		if synErr != nil {
			return nil, synErr
		}
		result.CRM = crm
		return &model.PhaseResult{
			Metadata: map[string]any{"tier": string(crm.Tier)},
		}, nil
	}); err != nil {
		return result, eris.Wrap(err, "pipeline: synthesize")
	}

	log.Info("pipeline: enrichment complete",
		zap.String("official_name", result.OfficialName),
		zap.String("tier", string(result.CRM.Tier)),
	)
	return result, nil
}

// SaveResults persists the profile and the full enrichment snapshot. On
// failure the in-memory result is untouched so the user can retry.
func (p *Pipeline) SaveResults(ctx context.Context, result *model.EnrichmentResult) error {
	if result == nil || result.CRM == nil {
		return eris.New("pipeline: no enrichment result to save")
	}
	if err := p.store.SaveCompanyProfile(ctx, &result.Profile, result.OfficialName); err != nil {
		return eris.Wrap(err, "pipeline: save company profile")
	}
	if err := p.store.SaveCRMRecord(ctx, result); err != nil {
		return eris.Wrap(err, "pipeline: save crm record")
	}
	zap.L().Info("pipeline: results saved", zap.String("company", result.Profile.Name))
	return nil
}

// UpdateCRM overwrites the CRM insights on the company's most recent saved
// snapshot, for manual corrections after the initial save.
func (p *Pipeline) UpdateCRM(ctx context.Context, companyName string, crm *model.CRMRecord) error {
	if crm == nil {
		return eris.New("pipeline: no CRM record to update")
	}
	if err := p.store.UpdateCRMRecord(ctx, companyName, crm); err != nil {
		return eris.Wrap(err, "pipeline: update crm record")
	}
	zap.L().Info("pipeline: crm record updated", zap.String("company", companyName))
	return nil
}

// GenerateAudit produces a fresh Draft audit from an enrichment result.
// Regeneration is just another call; the previous in-memory audit is the
// caller's to discard.
func (p *Pipeline) GenerateAudit(ctx context.Context, result *model.EnrichmentResult) (*model.AuditRecord, error) {
	if result == nil || result.CRM == nil {
		return nil, eris.New("pipeline: no enrichment result to audit")
	}
	return p.audit.Generate(ctx, &result.Profile, result.CRM)
}

// EnhanceAudit deepens an existing audit. The existing record is untouched
// when enhancement fails.
func (p *Pipeline) EnhanceAudit(ctx context.Context, existing *model.AuditRecord) (*model.AuditRecord, error) {
	if existing == nil {
		return nil, eris.New("pipeline: no audit to enhance")
	}
	return p.audit.Enhance(ctx, existing)
}

// SaveAudit persists an audit and, only on success, transitions it from
// Draft to Approved.
func (p *Pipeline) SaveAudit(ctx context.Context, companyName string, audit *model.AuditRecord) error {
	companyName = sanitize.Name(companyName)
	if companyName == "" {
		return eris.New("pipeline: company name is required")
	}
	if audit == nil {
		return eris.New("pipeline: no audit to save")
	}
	if err := p.store.SaveAudit(ctx, companyName, audit); err != nil {
		return eris.Wrap(err, "pipeline: save audit")
	}
	audit.Approve()
	zap.L().Info("pipeline: audit saved",
		zap.String("company", companyName),
		zap.String("status", string(audit.AuditMetadata.Status)),
	)
	return nil
}

// History returns past enrichment snapshots for a company, newest first.
func (p *Pipeline) History(ctx context.Context, companyName string) ([]model.HistoryEntry, error) {
	companyName = sanitize.Name(companyName)
	if companyName == "" {
		return nil, eris.New("pipeline: company name is required")
	}
	return p.store.GetHistory(ctx, companyName)
}

func gapStrings(gaps []model.GapTag) []string {
	out := make([]string, len(gaps))
	for i, g := range gaps {
		out[i] = string(g)
	}
	return out
}
