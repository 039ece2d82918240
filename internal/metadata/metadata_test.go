package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Acme Corp | Home of Widgets</title>
<meta name="description" content="First description">
<meta name="description" content="Acme builds industrial widgets">
<meta property="og:site_name" content="Acme Corporation">
<meta property="og:description" content="Social description">
<meta name="msapplication-TileColor" content="#ffffff">
</head>
<body>hello</body>
</html>`

// newTestExtractor relaxes the loopback guard so the extractor can reach an
// httptest server.
func newTestExtractor(srv *httptest.Server) *Extractor {
	e := NewExtractor(WithHTTPClient(srv.Client()))
	e.validate = func(string) bool { return true }
	return e
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mozilla/5.0 (compatible; CRM-Bot/1.0)", r.Header.Get("User-Agent"))
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	meta, err := newTestExtractor(srv).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corporation", meta.CompanyName)
	assert.Equal(t, "Acme Corp | Home of Widgets", meta.Title)
	// Duplicate meta keys: last occurrence wins.
	assert.Equal(t, "Acme builds industrial widgets", meta.Description)
	assert.Equal(t, "#ffffff", meta.MetaTags["msapplication-TileColor"])
}

func TestFetchCompanyNameFromTitle(t *testing.T) {
	page := `<html><head><title>Globex Industries – About Us</title></head></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	meta, err := newTestExtractor(srv).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Globex Industries", meta.CompanyName)
}

func TestFetchTileColorIsNotAName(t *testing.T) {
	page := `<html><head><meta name="msapplication-TileColor" content="#2b5797"></head></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	meta, err := newTestExtractor(srv).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, meta.CompanyName)
}

func TestFetchDecodesEntities(t *testing.T) {
	page := `<html><head><title>Smith &amp; Sons</title><meta name="description" content="Tools &#38; hardware"></head></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	meta, err := newTestExtractor(srv).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Smith & Sons", meta.CompanyName)
	assert.Equal(t, "Tools & hardware", meta.Description)
}

func TestFetchStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   Kind
	}{
		{"forbidden_is_blocked", http.StatusForbidden, KindBlocked},
		{"unauthorized_is_blocked", http.StatusUnauthorized, KindBlocked},
		{"not_found", http.StatusNotFound, KindNotFound},
		{"server_error", http.StatusInternalServerError, KindServerError},
		{"bad_gateway", http.StatusBadGateway, KindServerError},
		{"teapot_is_generic_failure", http.StatusTeapot, KindFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestExtractor(srv).Fetch(context.Background(), srv.URL)
			var ferr *FetchError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.kind, ferr.Kind)
		})
	}
}

func TestFetchInvalidWebsite(t *testing.T) {
	for _, site := range []string{"", "javascript:alert(1)", "http://localhost/admin"} {
		_, err := NewExtractor().Fetch(context.Background(), site)
		var ferr *FetchError
		require.ErrorAs(t, err, &ferr, "website %q", site)
		assert.Equal(t, KindInvalidInput, ferr.Kind)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 20 * time.Millisecond
	e := NewExtractor(WithHTTPClient(client))
	e.validate = func(string) bool { return true }
	_, err := e.Fetch(context.Background(), srv.URL)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, KindTimeout, ferr.Kind)
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	e := NewExtractor()
	e.validate = func(string) bool { return true }
	_, err := e.Fetch(context.Background(), srv.URL)
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, KindUnreachable, ferr.Kind)
}
