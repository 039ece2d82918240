// Package research runs AI-backed company research: one primary query that
// must return the full six-section intelligence object, and targeted fallback
// queries that try to fill whatever the primary pass left unresolved.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-cli/internal/aiparse"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/resilience"
	"github.com/sells-group/crm-cli/internal/sanitize"
	"github.com/sells-group/crm-cli/pkg/perplexity"
)

// ErrInvalidInput rejects a research request before any API call is made.
var ErrInvalidInput = eris.New("research: invalid input")

const (
	provider = "perplexity"

	primaryMaxTokens  = 1500
	fallbackMaxTokens = 500
	temperature       = 0.1

	defaultFallbackTimeout = 15 * time.Second
)

// Engine runs research queries through a Perplexity client, pacing every call
// through a shared per-provider rate limiter.
type Engine struct {
	client          perplexity.Client
	limiters        *resilience.LimiterRegistry
	fallbackTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithFallbackTimeout overrides the per-fallback-query timeout.
func WithFallbackTimeout(d time.Duration) Option {
	return func(e *Engine) { e.fallbackTimeout = d }
}

// NewEngine creates a research engine.
func NewEngine(client perplexity.Client, limiters *resilience.LimiterRegistry, opts ...Option) *Engine {
	e := &Engine{
		client:          client,
		limiters:        limiters,
		fallbackTimeout: defaultFallbackTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// primaryPrompt demands strict JSON with every key present and the sentinel
// for anything not found, so the response can be bound directly to
// model.ResearchResult.
const primaryPrompt = `Analyze company: %s%s.

CRITICAL: Return ONLY valid JSON with ALL keys present. NO explanations, NO extra text.
If information is not found, use "Unknown" as the value.

{
    "funding": {
        "totalFunding": "exact amount found or 'Unknown'",
        "lastRound": "exact funding round details or 'Unknown'",
        "fundingRounds": "exact number or 'Unknown'"
    },
    "revenue": {
        "annualRevenue": "exact revenue estimate or 'Unknown'",
        "revenueRange": "exact revenue range or 'Unknown'"
    },
    "people": {
        "ceo": "exact CEO name or 'Unknown'",
        "keyDecisionMaker": "exact decision maker name and title or 'Unknown'",
        "linkedinProfiles": ["exact LinkedIn URLs found or empty array"]
    },
    "hiring": {
        "isHiring": "yes/no/Unknown based on job postings found",
        "openRoles": ["exact job titles found or empty array"],
        "hiringSignals": "exact hiring details or 'Unknown'"
    },
    "agency": {
        "currentAgency": "exact agency name or 'Unknown'",
        "agencyRelationship": "exact agency relationship details or 'Unknown'"
    },
    "news": {
        "recentAnnouncements": ["exact recent news items or empty array"],
        "companyUpdates": "exact company updates or 'Unknown'"
    }
}`

// Research runs the primary six-section query. A response that violates the
// JSON contract surfaces as a *aiparse.ParseError; nothing is fabricated.
func (e *Engine) Research(ctx context.Context, companyName, website string) (*model.ResearchResult, error) {
	name := sanitize.SearchText(companyName)
	if name == "" {
		return nil, eris.Wrap(ErrInvalidInput, "company name is required")
	}
	site := ""
	if website != "" {
		if !sanitize.IsValidWebsite(website) {
			return nil, eris.Wrap(ErrInvalidInput, "invalid website URL")
		}
		site = " website: " + sanitize.NormalizeWebsite(website)
	}

	if err := e.limiters.Wait(ctx, provider); err != nil {
		return nil, eris.Wrap(err, "research: rate limiter")
	}

	temp := temperature
	maxTokens := primaryMaxTokens
	resp, err := e.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages:    []perplexity.Message{{Role: "user", Content: fmt.Sprintf(primaryPrompt, name, site)}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: primary query")
	}

	var result model.ResearchResult
	if err := aiparse.Unmarshal(resp.Content(), &result); err != nil {
		zap.L().Warn("research response violated JSON contract",
			zap.String("company", name),
		)
		return nil, err
	}

	result.Normalize()
	result.SearchedAt = time.Now().UTC()

	zap.L().Info("primary research complete",
		zap.String("company", name),
		zap.Int("known_fields", result.KnownFieldCount()),
		zap.Int("gaps", len(result.Gaps())),
	)
	return &result, nil
}

// fallbackPrompts are narrowly scoped queries, one per gap. Each demands a
// single key so the response is cheap to extract.
var fallbackPrompts = map[model.GapTag]string{
	model.GapRevenue: `Find ONLY the annual revenue for %s%s.
Search for: financial reports, revenue numbers, annual results, company filings.
Return ONLY: "revenue": "exact amount found or 'Unknown'"`,
	model.GapHiring: `Check if %s%s is currently hiring.
Search for: job postings, careers page, hiring announcements, open positions.
Return ONLY: "hiring": "yes" or "no"`,
	model.GapAgency: `Find if %s%s works with any marketing/advertising agencies.
Search for: agency partnerships, marketing agencies, advertising relationships.
Return ONLY: "agency": "agency name found or 'Unknown'"`,
	model.GapNews: `Find the most recent news or announcement from %s%s.
Search for: press releases, product launches, company announcements.
Return ONLY: "news": "most recent announcement or 'Unknown'"`,
}

// FillGaps runs one targeted query per unresolved section, concurrently, and
// merges whatever resolves. Every fallback failure is absorbed: the worst
// outcome is that a gap stays unresolved. Returns the tags that were filled.
func (e *Engine) FillGaps(ctx context.Context, result *model.ResearchResult, companyName, website string) []model.GapTag {
	gaps := result.Gaps()
	if len(gaps) == 0 {
		return nil
	}

	name := sanitize.SearchText(companyName)
	site := ""
	if website != "" && sanitize.IsValidWebsite(website) {
		site = " (" + sanitize.NormalizeWebsite(website) + ")"
	}

	values := make([]string, len(gaps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(gaps))
	for i, gap := range gaps {
		g.Go(func() error {
			v, err := e.fallbackQuery(gctx, gap, name, site)
			if err != nil {
				zap.L().Warn("fallback query failed",
					zap.String("gap", string(gap)),
					zap.String("company", name),
					zap.Bool("retryable", resilience.Retryable(err)),
					zap.Error(err),
				)
				return nil
			}
			values[i] = v
			return nil
		})
	}
	_ = g.Wait()

	var filled []model.GapTag
	for i, gap := range gaps {
		if merge(result, gap, values[i]) {
			filled = append(filled, gap)
		}
	}

	zap.L().Info("fallback pass complete",
		zap.String("company", name),
		zap.Int("gaps", len(gaps)),
		zap.Int("filled", len(filled)),
	)
	return filled
}

func (e *Engine) fallbackQuery(ctx context.Context, gap model.GapTag, name, site string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, e.fallbackTimeout)
	defer cancel()

	if err := e.limiters.Wait(cctx, provider); err != nil {
		return "", eris.Wrap(err, "rate limiter")
	}

	temp := temperature
	maxTokens := fallbackMaxTokens
	resp, err := e.client.ChatCompletion(cctx, perplexity.ChatCompletionRequest{
		Messages:    []perplexity.Message{{Role: "user", Content: fmt.Sprintf(fallbackPrompts[gap], name, site)}},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return "", err
	}
	return extractValue(resp.Content(), gap), nil
}

var (
	keyValueRe = regexp.MustCompile(`"(?:revenue|hiring|agency|news)"\s*:\s*"([^"]+)"`)
	plainRe    = regexp.MustCompile(`[^\w\s$.,]`)
)

// extractValue pulls the single answer out of a fallback completion: a JSON
// object keyed by the gap, a bare JSON string, a key/value fragment in prose,
// or as a last resort the cleaned text itself.
func extractValue(content string, gap model.GapTag) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	if payload, err := aiparse.Extract(content); err == nil {
		var obj map[string]any
		if json.Unmarshal(payload, &obj) == nil {
			if s, ok := obj[string(gap)].(string); ok {
				return clean(s)
			}
		}
	}

	var s string
	if json.Unmarshal([]byte(content), &s) == nil {
		return clean(s)
	}

	if m := keyValueRe.FindStringSubmatch(content); m != nil {
		return clean(m[1])
	}

	return clean(plainRe.ReplaceAllString(content, ""))
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, model.Unknown) {
		return ""
	}
	return s
}

// merge writes a resolved fallback value into its section. Empty values and
// the sentinel never overwrite anything.
func merge(result *model.ResearchResult, gap model.GapTag, value string) bool {
	if value == "" {
		return false
	}
	switch gap {
	case model.GapRevenue:
		result.Revenue.AnnualRevenue = model.Known(value)
	case model.GapHiring:
		result.Hiring.IsHiring = model.Known(value)
	case model.GapAgency:
		result.Agency.CurrentAgency = model.Known(value)
	case model.GapNews:
		result.News.RecentAnnouncements = append(result.News.RecentAnnouncements, value)
	default:
		return false
	}
	return true
}
