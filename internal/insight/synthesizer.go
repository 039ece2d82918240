// Package insight turns research intelligence into a CRM record: one
// synthesis completion that maps research fields verbatim into CRM fields and
// scores the lead, without inventing data.
package insight

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/aiparse"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/resilience"
	"github.com/sells-group/crm-cli/pkg/openai"
)

// ErrSynthesisFailed means no CRM record could be produced; the caller
// decides whether to re-run.
var ErrSynthesisFailed = eris.New("insight: synthesis failed")

const (
	provider  = "openai"
	maxTokens = 1500
)

// Synthesizer produces CRM records from research results.
type Synthesizer struct {
	client   openai.Client
	limiters *resilience.LimiterRegistry
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(client openai.Client, limiters *resilience.LimiterRegistry) *Synthesizer {
	return &Synthesizer{client: client, limiters: limiters}
}

// synthesisPrompt binds the model to verbatim mapping: exact values from the
// research JSON, the sentinel for anything missing, and marketing-only
// filtering for open roles. Only leadScore and tier are derived.
const synthesisPrompt = `You are a CRM data assistant. Analyze the company and generate CRM insights based ONLY on the provided information and research results.

Generate the following fields using EXACT values from the research results. If no data is found in the provided research JSON, return "Unknown". NEVER guess or make up information.

The research JSON contains data in this structure:
- funding.totalFunding, funding.lastRound, funding.fundingRounds
- revenue.annualRevenue, revenue.revenueRange
- people.ceo, people.keyDecisionMaker, people.linkedinProfiles
- hiring.isHiring, hiring.openRoles, hiring.hiringSignals
- agency.currentAgency
- news.recentAnnouncements

Map these to the required fields:

{
    "estimatedFundingTotal": "Use funding.totalFunding or 'Unknown'",
    "lastFundingRound": "Use funding.lastRound or 'Unknown'",
    "estimatedAnnualRevenue": "Use revenue.annualRevenue or 'Unknown'",
    "adSpendLevel": "Use hiring.hiringSignals to estimate if they're spending on growth or 'Unknown'",
    "estimatedCreativeMarketingBudget": "Use hiring.hiringSignals to estimate if they're hiring marketing roles or 'Unknown'",
    "primaryDecisionMaker": "Use people.ceo or 'Unknown'",
    "roleTitle": "Use people.keyDecisionMaker or 'Unknown'",
    "linkedinProfile": "Use people.linkedinProfiles[0] or 'Unknown'",
    "email": "Exact email from research or 'Unknown'",
    "phone": "Exact phone from research or 'Unknown'",
    "currentAgency": "Use agency.currentAgency or 'Unknown'",
    "whetherTheyreHiringForGrowth": "Use hiring.isHiring or 'Unknown'",
    "keyOpenRoles": "Use hiring.openRoles (filter for marketing/content roles only) or 'Unknown'",
    "leadScore": "Score 0-100 based on available data quality",
    "tier": "Cold/Warm/Hot/Red-hot based on lead score"
}

Company Data:
%s

Research Results:
%s

CRITICAL RULES:
- Use ONLY exact values from the provided research JSON
- Map the nested fields correctly (e.g., funding.totalFunding -> estimatedFundingTotal)
- If a field is not found in the research, return "Unknown"
- NEVER guess, estimate, or make up information
- NEVER use industry patterns or assumptions
- For keyOpenRoles: ONLY include marketing, content, creative, or digital marketing roles
- Filter out non-marketing jobs like engineers, developers, sales, HR, etc.
- Lead score and tier can be calculated based on data availability
- Output ONLY valid JSON matching the structure above`

// Synthesize runs one completion and binds the result to a CRM record.
func (s *Synthesizer) Synthesize(ctx context.Context, research *model.ResearchResult, profile *model.CompanyProfile, officialName string) (*model.CRMRecord, error) {
	company := *profile
	if officialName != "" {
		company.Name = officialName
	}

	companyJSON, err := json.MarshalIndent(company, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "insight: marshal company")
	}
	researchJSON, err := json.MarshalIndent(research, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "insight: marshal research")
	}

	if err := s.limiters.Wait(ctx, provider); err != nil {
		return nil, eris.Wrap(err, "insight: rate limiter")
	}

	temp := 0.1
	tokens := maxTokens
	resp, err := s.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: []openai.Message{{
			Role:    "user",
			Content: fmt.Sprintf(synthesisPrompt, companyJSON, researchJSON),
		}},
		ResponseFormat: openai.ResponseFormatJSON,
		Temperature:    &temp,
		MaxTokens:      &tokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: completion request: %w", ErrSynthesisFailed, err)
	}

	var record model.CRMRecord
	if err := aiparse.Unmarshal(resp.Content(), &record); err != nil {
		zap.L().Warn("synthesis response violated JSON contract",
			zap.String("company", company.Name),
		)
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	record.Normalize()
	zap.L().Info("CRM synthesis complete",
		zap.String("company", company.Name),
		zap.String("lead_score", record.LeadScore),
		zap.String("tier", string(record.Tier)),
	)
	return &record, nil
}
