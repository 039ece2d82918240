// Package audit produces the long-form marketing audit from a company's CRM
// record: one completion to generate the structured report and an optional
// second pass that deepens it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/aiparse"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/resilience"
	"github.com/sells-group/crm-cli/pkg/openai"
)

var (
	// ErrGenerationFailed means no audit could be produced.
	ErrGenerationFailed = eris.New("audit: generation failed")
	// ErrEnhanceFailed means enhancement produced nothing usable; the
	// existing audit is untouched.
	ErrEnhanceFailed = eris.New("audit: enhancement failed")
)

const (
	provider          = "openai"
	generateMaxTokens = 3000
	enhanceMaxTokens  = 4000
)

// Generator produces and enhances audit records.
type Generator struct {
	client   openai.Client
	limiters *resilience.LimiterRegistry
	now      func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(client openai.Client, limiters *resilience.LimiterRegistry) *Generator {
	return &Generator{client: client, limiters: limiters, now: time.Now}
}

const generatePrompt = `You are a senior marketing consultant conducting a comprehensive company audit.

Generate a detailed audit report based on the following company data:

COMPANY FORM DATA:
%s

CRM INSIGHTS:
%s

Create a comprehensive audit with the following structure:

{
  "companyOverview": {
    "profile": "Quick profile summary from base company info",
    "industry": "Industry analysis and positioning",
    "location": "Geographic market analysis"
  },
  "fundingGrowthStage": {
    "fundingStatus": "Current funding stage and amount",
    "growthIndicators": "Revenue trends, hiring signals, expansion plans",
    "investmentReadiness": "Assessment of investment readiness"
  },
  "leadershipTeamStructure": {
    "decisionMakerProfile": "Key decision maker analysis",
    "outreachReadiness": "Best approach for outreach",
    "teamStructure": "Current team composition and gaps"
  },
  "marketingAgencyPresence": {
    "currentAgency": "Current agency relationships",
    "adSpendPatterns": "Advertising spend analysis",
    "marketingMaturity": "Overall marketing sophistication level"
  },
  "creativeStrategyGaps": {
    "croOpportunities": "Conversion rate optimization gaps",
    "messagingGaps": "Brand messaging and positioning issues",
    "contentCadence": "Content strategy and frequency analysis",
    "adFatigue": "Potential ad fatigue indicators",
    "landingAlignment": "Landing page and funnel alignment",
    "emailBasics": "Email marketing foundation assessment"
  },
  "industryOpportunities": {
    "formats": "Relevant content formats for their industry",
    "hooks": "Effective messaging hooks and angles",
    "platformShifts": "Emerging platform opportunities"
  },
  "competitiveBenchmark": {
    "topCompetitors": [
      {
        "name": "Competitor name",
        "socialCadence": "Social media posting frequency",
        "adVariants": "Number of ad variations",
        "siteSpeed": "Website performance assessment",
        "proofDensity": "Social proof and testimonials"
      }
    ],
    "competitiveAdvantage": "How they can differentiate"
  },
  "hiringTalentStrategy": {
    "growthStaffing": "Is growth being staffed effectively",
    "talentGaps": "Key talent needs and gaps",
    "hiringSignals": "Current hiring status and plans"
  },
  "immediateROIMoves": [
    {
      "action": "Specific action to take",
      "owner": "Who should own this",
      "steps": "Step-by-step implementation",
      "expectedLift": "Expected performance improvement",
      "metric": "How to measure success"
    }
  ],
  "auditSummary": {
    "executiveSummary": "Client-friendly summary",
    "priorityLevel": "High/Medium/Low priority client",
    "estimatedValue": "Potential client value estimate"
  },
  "auditMetadata": {
    "status": "Draft",
    "generatedDate": "%s",
    "auditVersion": "1.0"
  }
}

Return ONLY valid JSON. No explanations or extra text.`

// Generate produces a fresh audit in Draft status.
func (g *Generator) Generate(ctx context.Context, profile *model.CompanyProfile, crm *model.CRMRecord) (*model.AuditRecord, error) {
	companyJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "audit: marshal company")
	}
	crmJSON, err := json.MarshalIndent(crm, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "audit: marshal crm record")
	}

	generated := g.now().UTC()
	prompt := fmt.Sprintf(generatePrompt, companyJSON, crmJSON, generated.Format(time.RFC3339))

	record, err := g.complete(ctx, prompt, generateMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	record.AuditMetadata = model.AuditMetadata{
		Status:        model.AuditStatusDraft,
		GeneratedDate: generated,
		AuditVersion:  "1.0",
	}
	record.Normalize()

	zap.L().Info("audit generated",
		zap.String("company", profile.Name),
		zap.Int("roi_moves", len(record.ImmediateROIMoves)),
	)
	return record, nil
}

const enhancePrompt = `You are a senior marketing consultant. Take this existing audit and make it MUCH deeper, more detailed, and more actionable.

EXISTING AUDIT:
%s

Enhance this audit by:
1. Adding 3-5 more specific, actionable recommendations
2. Including detailed implementation steps for each ROI move
3. Adding specific metrics and KPIs to track
4. Including industry-specific insights and benchmarks
5. Adding risk assessments and mitigation strategies
6. Including timeline estimates for each recommendation
7. Adding budget estimates where applicable
8. Including success case studies or examples

Make the audit significantly more comprehensive and actionable. Return ONLY the enhanced JSON structure.`

// Enhance deepens an existing audit and returns the result as a new record in
// Draft status. On any failure the input record is left untouched.
func (g *Generator) Enhance(ctx context.Context, existing *model.AuditRecord) (*model.AuditRecord, error) {
	existingJSON, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "audit: marshal existing audit")
	}

	record, err := g.complete(ctx, fmt.Sprintf(enhancePrompt, existingJSON), enhanceMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnhanceFailed, err)
	}

	// Enhancement changes content, so the result needs re-approval.
	record.AuditMetadata = model.AuditMetadata{
		Status:        model.AuditStatusDraft,
		GeneratedDate: g.now().UTC(),
		AuditVersion:  existing.AuditMetadata.AuditVersion,
	}
	record.Normalize()

	zap.L().Info("audit enhanced",
		zap.Int("roi_moves", len(record.ImmediateROIMoves)),
	)
	return record, nil
}

func (g *Generator) complete(ctx context.Context, prompt string, tokens int) (*model.AuditRecord, error) {
	if err := g.limiters.Wait(ctx, provider); err != nil {
		return nil, eris.Wrap(err, "rate limiter")
	}

	temp := 0.1
	resp, err := g.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages:       []openai.Message{{Role: "user", Content: prompt}},
		ResponseFormat: openai.ResponseFormatJSON,
		Temperature:    &temp,
		MaxTokens:      &tokens,
	})
	if err != nil {
		return nil, err
	}

	var record model.AuditRecord
	if err := aiparse.Unmarshal(resp.Content(), &record); err != nil {
		return nil, err
	}
	return &record, nil
}
