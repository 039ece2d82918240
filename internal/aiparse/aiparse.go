// Package aiparse extracts JSON payloads from AI completion text. Model
// output is non-deterministic: sometimes bare JSON, sometimes a fenced code
// block, sometimes prose around an object. Extraction runs an ordered list of
// strategies and gives up with a ParseError that retains the raw text.
package aiparse

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Strategy attempts to locate a JSON object inside completion text.
// Candidate returns the candidate payload and whether one was found; it does
// not guarantee the payload is valid JSON.
type Strategy interface {
	Name() string
	Candidate(text string) (string, bool)
}

// ParseError reports that no strategy yielded a valid JSON payload. The raw
// completion text is retained for diagnostics; callers must not substitute
// fabricated data.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return "aiparse: no JSON object found in completion"
}

// RawObject accepts the whole trimmed text when it looks like a JSON object.
type RawObject struct{}

func (RawObject) Name() string { return "raw_object" }

func (RawObject) Candidate(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text, true
	}
	return "", false
}

var fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// FencedBlock extracts the first markdown-fenced JSON object.
type FencedBlock struct{}

func (FencedBlock) Name() string { return "fenced_block" }

func (FencedBlock) Candidate(text string) (string, bool) {
	m := fencedRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// BraceSpan takes the span from the first "{" to the last "}", which handles
// completions that wrap the object in leading or trailing prose.
type BraceSpan struct{}

func (BraceSpan) Name() string { return "brace_span" }

func (BraceSpan) Candidate(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// DefaultStrategies returns the standard strategy order.
func DefaultStrategies() []Strategy {
	return []Strategy{RawObject{}, FencedBlock{}, BraceSpan{}}
}

// Extract runs the default strategies in order and returns the first
// candidate that parses as a JSON object. When none does it returns a
// *ParseError carrying the raw text.
func Extract(text string) ([]byte, error) {
	return ExtractWith(text, DefaultStrategies())
}

// ExtractWith runs the given strategies in order.
func ExtractWith(text string, strategies []Strategy) ([]byte, error) {
	for _, s := range strategies {
		candidate, ok := s.Candidate(text)
		if !ok {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return []byte(candidate), nil
		}
	}
	return nil, &ParseError{Raw: text}
}

// Unmarshal extracts a JSON object from text and decodes it into v.
func Unmarshal(text string, v any) error {
	payload, err := Extract(text)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}
