// Package sanitize provides input guards for free-text and URL values before
// they reach a network call or are reflected back to the UI. Every function
// degrades to a safe default instead of returning an error.
package sanitize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Maximum lengths for sanitized text by use.
const (
	MaxSearchTextLen = 500
	MaxNameLen       = 200
)

var (
	jsProtocolRe   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRe = regexp.MustCompile(`(?i)on\w+=`)
	numericRefRe   = regexp.MustCompile(`&#(\d+);`)
	schemeStripRe  = regexp.MustCompile(`(?i)^https?://`)
)

// blockedSchemes are URL schemes rejected outright.
var blockedSchemes = []string{"javascript:", "data:", "vbscript:", "file:", "ftp:", "mailto:"}

// internalHosts are loopback/internal hostnames rejected to prevent SSRF.
var internalHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"0.0.0.0":   true,
	"::1":       true,
	"[::1]":     true,
}

// Text strips angle brackets, javascript: protocols, and inline event-handler
// patterns, trims whitespace, and truncates to max runes. Empty input yields
// an empty string; it never errors.
func Text(input string, max int) string {
	s := strings.NewReplacer("<", "", ">", "").Replace(input)
	// Stripping once can reassemble the pattern it removed (e.g.
	// "javasjavascript:cript:"), so loop to a fixed point.
	for {
		next := jsProtocolRe.ReplaceAllString(s, "")
		next = eventHandlerRe.ReplaceAllString(next, "")
		if next == s {
			break
		}
		s = next
	}
	s = strings.TrimSpace(s)
	if max > 0 {
		runes := []rune(s)
		if len(runes) > max {
			s = string(runes[:max])
		}
	}
	return s
}

// SearchText sanitizes free-text destined for search prompts (500 chars).
func SearchText(input string) string {
	return Text(input, MaxSearchTextLen)
}

// Name sanitizes company names and locations (200 chars).
func Name(input string) string {
	return Text(input, MaxNameLen)
}

// IsValidWebsite reports whether url is a safe http/https website address.
// A missing scheme is treated as https. Malformed URLs, blocked schemes,
// loopback hosts, and hosts containing ".." or "//" all return false.
func IsValidWebsite(website string) bool {
	if website == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(website))
	for _, scheme := range blockedSchemes {
		if strings.Contains(lower, scheme) {
			return false
		}
	}

	u, err := url.Parse(NormalizeWebsite(website))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if host == "" || internalHosts[strings.ToLower(host)] {
		return false
	}
	if strings.Contains(host, "..") || strings.Contains(host, "//") {
		return false
	}
	return true
}

// NormalizeWebsite prefixes https:// when the input has no http(s) scheme.
func NormalizeWebsite(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return website
	}
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		return "https://" + website
	}
	return website
}

// ExtractDomain returns the hostname of website with a leading "www."
// stripped. When URL parsing fails it falls back to stripping the scheme and
// "www." prefix textually; it never errors.
func ExtractDomain(website string) string {
	u, err := url.Parse(NormalizeWebsite(website))
	if err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	s := schemeStripRe.ReplaceAllString(strings.TrimSpace(website), "")
	s = strings.TrimPrefix(s, "www.")
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}
	return s
}

// DecodeEntities decodes the five common named HTML entities plus numeric
// character references. Unrecognized sequences pass through unchanged.
func DecodeEntities(s string) string {
	if s == "" {
		return s
	}
	s = numericRefRe.ReplaceAllStringFunc(s, func(ref string) string {
		digits := ref[2 : len(ref)-1]
		code, err := strconv.Atoi(digits)
		if err != nil || code < 0 || code > 0x10FFFF {
			return ref
		}
		return string(rune(code))
	})
	return strings.NewReplacer(
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
		"&lt;", "<",
		"&gt;", ">",
	).Replace(s)
}
