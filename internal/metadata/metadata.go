// Package metadata fetches lightweight company metadata from a website's
// HTML head: title, description, and meta tags, plus a best-effort company
// name. Results only decorate the enrichment run; a failed fetch never stops
// the pipeline.
package metadata

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/sanitize"
)

const (
	defaultTimeout = 8 * time.Second
	maxRedirects   = 3
	maxBodyBytes   = 2 << 20
	userAgent      = "Mozilla/5.0 (compatible; CRM-Bot/1.0)"
)

// Kind classifies a metadata fetch failure.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindTimeout      Kind = "timeout"
	KindBlocked      Kind = "blocked"
	KindNotFound     Kind = "not_found"
	KindServerError  Kind = "server_error"
	KindUnreachable  Kind = "unreachable"
	KindFetchFailed  Kind = "fetch_failed"
)

// FetchError describes why a website's metadata could not be fetched, with a
// message suitable for showing to the user.
type FetchError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *FetchError) Error() string { return e.Message }

func (e *FetchError) Unwrap() error { return e.Err }

// Extractor fetches and parses website metadata.
type Extractor struct {
	client   *http.Client
	validate func(string) bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithHTTPClient overrides the HTTP client. The client's CheckRedirect is
// replaced to enforce the redirect cap.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) { e.client = c }
}

// NewExtractor creates an Extractor with an 8 second timeout and a three
// redirect cap.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		client:   &http.Client{Timeout: defaultTimeout},
		validate: sanitize.IsValidWebsite,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}
	return e
}

// Fetch retrieves the website's HTML and extracts its metadata. All failures
// come back as a *FetchError.
func (e *Extractor) Fetch(ctx context.Context, website string) (*model.WebsiteMetadata, error) {
	if !e.validate(website) {
		return nil, &FetchError{Kind: KindInvalidInput, Message: "invalid website URL provided"}
	}
	target := sanitize.NormalizeWebsite(website)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindInvalidInput, Message: "invalid website URL provided", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if ferr := classifyStatus(resp.StatusCode); ferr != nil {
		return nil, ferr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	html := string(body)
	tags := extractMetaTags(html)
	meta := &model.WebsiteMetadata{
		CompanyName: extractCompanyName(tags, html),
		Title:       extractTitle(html),
		Description: extractDescription(tags),
		MetaTags:    tags,
	}

	zap.L().Debug("website metadata extracted",
		zap.String("website", target),
		zap.Int("meta_tags", len(tags)),
	)
	return meta, nil
}

func classifyTransportError(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &FetchError{
			Kind:    KindTimeout,
			Message: "website is taking too long to respond",
			Err:     err,
		}
	}
	return &FetchError{
		Kind:    KindUnreachable,
		Message: "unable to reach the website, check the URL and try again",
		Err:     err,
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func classifyStatus(code int) *FetchError {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusForbidden || code == http.StatusUnauthorized:
		return &FetchError{Kind: KindBlocked, Message: "website is blocking automated requests"}
	case code == http.StatusNotFound:
		return &FetchError{Kind: KindNotFound, Message: "website not found, check the URL"}
	case code >= 500:
		return &FetchError{Kind: KindServerError, Message: "website server error, try again later"}
	default:
		return &FetchError{
			Kind:    KindFetchFailed,
			Message: "website returned error: " + http.StatusText(code),
		}
	}
}

var (
	metaRe  = regexp.MustCompile(`(?i)<meta[^>]+(?:name|property)=["']([^"']+)["'][^>]+content=["']([^"']*)["'][^>]*>`)
	titleRe = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	// Title suffixes like "Acme | Home" or "Acme – Widgets" are cut at the
	// first separator.
	titleSepRe = regexp.MustCompile(`[|–—-].*$`)
)

// extractMetaTags maps name/property attributes to content. A duplicate key
// takes the last occurrence.
func extractMetaTags(html string) map[string]string {
	tags := make(map[string]string)
	for _, m := range metaRe.FindAllStringSubmatch(html, -1) {
		tags[m[1]] = m[2]
	}
	return tags
}

// extractCompanyName prefers explicit site-name meta tags over the page
// title. msapplication-TileColor holds a hex color, never a company name, so
// it is not a candidate.
func extractCompanyName(tags map[string]string, html string) string {
	for _, key := range []string{"og:site_name", "application-name"} {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return sanitize.DecodeEntities(v)
		}
	}
	title := extractTitle(html)
	if title == "" {
		return ""
	}
	return strings.TrimSpace(titleSepRe.ReplaceAllString(title, ""))
}

func extractTitle(html string) string {
	m := titleRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return sanitize.DecodeEntities(strings.TrimSpace(m[1]))
}

func extractDescription(tags map[string]string) string {
	desc := tags["description"]
	if desc == "" {
		desc = tags["og:description"]
	}
	if desc == "" {
		return ""
	}
	return sanitize.DecodeEntities(desc)
}
