package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/resilience"
	"github.com/sells-group/crm-cli/pkg/openai"
)

type fakeClient struct {
	gotReq openai.ChatCompletionRequest
	fn     func(req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

func (f *fakeClient) ChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	f.gotReq = req
	return f.fn(req)
}

func reply(content string) *openai.ChatCompletionResponse {
	return &openai.ChatCompletionResponse{
		Choices: []openai.Choice{{Message: openai.Message{Role: "assistant", Content: content}}},
	}
}

func testLimiters() *resilience.LimiterRegistry {
	return resilience.NewLimiterRegistry(map[string]*rate.Limiter{
		"openai": rate.NewLimiter(rate.Inf, 1),
	})
}

func testResearch() *model.ResearchResult {
	r := &model.ResearchResult{}
	r.Funding.TotalFunding = model.Known("$12M")
	r.People.CEO = model.Known("Jane Doe")
	r.Normalize()
	return r
}

func testProfile() *model.CompanyProfile {
	return &model.CompanyProfile{Name: "acme", Website: "https://acme.com", Industry: "SaaS"}
}

const crmJSON = `{
	"estimatedFundingTotal": "$12M",
	"lastFundingRound": "Series A",
	"estimatedAnnualRevenue": "Unknown",
	"adSpendLevel": "moderate",
	"estimatedCreativeMarketingBudget": "Unknown",
	"primaryDecisionMaker": "Jane Doe",
	"roleTitle": "CEO",
	"linkedinProfile": "https://linkedin.com/in/janedoe",
	"email": "Unknown",
	"phone": "Unknown",
	"currentAgency": "Unknown",
	"whetherTheyreHiringForGrowth": "yes",
	"keyOpenRoles": "Marketing Manager",
	"leadScore": "72",
	"tier": "Hot"
}`

func TestSynthesize(t *testing.T) {
	client := &fakeClient{fn: func(req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		return reply(crmJSON), nil
	}}

	s := NewSynthesizer(client, testLimiters())
	record, err := s.Synthesize(context.Background(), testResearch(), testProfile(), "Acme Corporation")
	require.NoError(t, err)

	assert.Equal(t, "$12M", record.EstimatedFundingTotal)
	assert.Equal(t, "Jane Doe", record.PrimaryDecisionMaker)
	assert.Equal(t, "72", record.LeadScore)
	assert.Equal(t, model.TierHot, record.Tier)

	// The official name replaces the form name in the prompt.
	require.Len(t, client.gotReq.Messages, 1)
	prompt := client.gotReq.Messages[0].Content
	assert.Contains(t, prompt, "Acme Corporation")
	assert.Contains(t, prompt, "$12M")

	// Structured output, low temperature, capped tokens.
	require.NotNil(t, client.gotReq.ResponseFormat)
	assert.Equal(t, "json_object", client.gotReq.ResponseFormat.Type)
	require.NotNil(t, client.gotReq.Temperature)
	assert.InDelta(t, 0.1, *client.gotReq.Temperature, 0.001)
	require.NotNil(t, client.gotReq.MaxTokens)
	assert.Equal(t, maxTokens, *client.gotReq.MaxTokens)
}

func TestSynthesizeBackfillsMissingFields(t *testing.T) {
	client := &fakeClient{fn: func(openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		return reply(`{"leadScore": "10", "tier": "Cold"}`), nil
	}}

	s := NewSynthesizer(client, testLimiters())
	record, err := s.Synthesize(context.Background(), testResearch(), testProfile(), "")
	require.NoError(t, err)

	assert.Equal(t, model.Unknown, record.EstimatedFundingTotal)
	assert.Equal(t, model.Unknown, record.Email)
	assert.Equal(t, "10", record.LeadScore)
}

func TestSynthesizeAPIFailure(t *testing.T) {
	client := &fakeClient{fn: func(openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		return nil, &openai.APIError{StatusCode: 500, Body: "boom"}
	}}

	s := NewSynthesizer(client, testLimiters())
	_, err := s.Synthesize(context.Background(), testResearch(), testProfile(), "")
	assert.ErrorIs(t, err, ErrSynthesisFailed)
	assert.True(t, resilience.Retryable(err))
}

func TestSynthesizeUnparseableCompletion(t *testing.T) {
	client := &fakeClient{fn: func(openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
		return reply("I cannot produce JSON right now."), nil
	}}

	s := NewSynthesizer(client, testLimiters())
	_, err := s.Synthesize(context.Background(), testResearch(), testProfile(), "")
	assert.ErrorIs(t, err, ErrSynthesisFailed)
}
