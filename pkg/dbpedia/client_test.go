package dbpedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curasense/triage-cli/internal/resilience"
)

const directHit = `{"results":{"bindings":[{
  "abstract":{"type":"literal","xml:lang":"en","value":"Influenza is an infectious disease."},
  "label":{"type":"literal","xml:lang":"en","value":"Influenza"}}]}}`

const labelHit = `{"results":{"bindings":[
  {"s":{"type":"uri","value":"http://dbpedia.org/resource/Common_cold"},
   "abstract":{"type":"literal","xml:lang":"en","value":"The common cold is a viral infection."},
   "label":{"type":"literal","xml:lang":"en","value":"Common cold"}},
  {"s":{"type":"uri","value":"http://dbpedia.org/resource/Cold_(disambiguation)"},
   "label":{"type":"literal","xml:lang":"en","value":"Cold"}}]}}`

const empty = `{"head":{"vars":[]},"results":{"bindings":[]}}`

func isLabelQuery(r *http.Request) bool {
	return strings.Contains(r.URL.Query().Get("query"), "contains(lcase")
}

func newTestClient(url string, opts ...Option) Client {
	base := []Option{
		WithEndpoint(url),
		WithRateLimit(0, 0),
		WithRetry(resilience.RetryPolicy{MaxAttempts: 1}),
	}
	return NewClient(append(base, opts...)...)
}

func TestLookupAbstract_DirectHit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		q := r.URL.Query().Get("query")
		assert.Contains(t, q, "<http://dbpedia.org/resource/Influenza> dbo:abstract ?abstract")
		assert.False(t, isLabelQuery(r))
		w.Write([]byte(directHit)) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).LookupAbstract(context.Background(), "Influenza")
	require.NoError(t, err)
	require.True(t, got.Matched)
	require.NotNil(t, got.Resource)
	assert.Equal(t, "http://dbpedia.org/resource/Influenza", *got.Resource)
	require.NotNil(t, got.Abstract)
	assert.Equal(t, "Influenza is an infectious disease.", *got.Abstract)
	assert.Equal(t, []string{"Influenza"}, got.Labels)
}

func TestLookupAbstract_FallbackToLabelSearch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if isLabelQuery(r) {
			q := r.URL.Query().Get("query")
			assert.Contains(t, q, `lcase(str(?label)) = "common cold"`)
			assert.Contains(t, q, "LIMIT 3")
			w.Write([]byte(labelHit)) //nolint:errcheck
			return
		}
		assert.Contains(t, r.URL.Query().Get("query"), "<http://dbpedia.org/resource/Common_Cold>")
		w.Write([]byte(empty)) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).LookupAbstract(context.Background(), "Common Cold")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.True(t, got.Matched)
	assert.Equal(t, "http://dbpedia.org/resource/Common_cold", *got.Resource)
	assert.Equal(t, "The common cold is a viral infection.", *got.Abstract)
	assert.Equal(t, []string{"Common cold"}, got.Labels)
}

func TestLookupAbstract_NoMatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(empty)) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).LookupAbstract(context.Background(), "Zzyzx syndrome")
	require.NoError(t, err)
	assert.False(t, got.Matched)
	assert.Nil(t, got.Resource)
	assert.Nil(t, got.Abstract)
	assert.Nil(t, got.Labels)
}

func TestLookupAbstract_ServerErrorDegrades(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded")) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).LookupAbstract(context.Background(), "Influenza")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.False(t, got.Matched)
}

func TestLookupAbstract_MalformedJSONDegrades(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>")) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).LookupAbstract(context.Background(), "Influenza")
	require.Error(t, err)
	assert.False(t, got.Matched)
}

func TestLookupAbstract_DirectFailsLabelHits(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isLabelQuery(r) {
			w.Write([]byte(labelHit)) //nolint:errcheck
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).LookupAbstract(context.Background(), "Common cold")
	require.NoError(t, err)
	assert.True(t, got.Matched)
}

func TestLookupAbstract_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(directHit)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithRetry(resilience.RetryPolicy{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}))
	got, err := c.LookupAbstract(context.Background(), "Influenza")
	require.NoError(t, err)
	assert.True(t, got.Matched)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLookupAbstract_TimeoutDegrades(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithTimeout(50*time.Millisecond))
	start := time.Now()
	got, err := c.LookupAbstract(context.Background(), "Influenza")
	require.Error(t, err)
	assert.False(t, got.Matched)
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestLookupAbstract_BreakerOpenDegrades(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithBreaker(resilience.NewBreaker("dbpedia", 2, time.Hour)))

	_, err := c.LookupAbstract(context.Background(), "Influenza")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	got, err := c.LookupAbstract(context.Background(), "Influenza")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.False(t, got.Matched)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWithHTTPClient_NilKeepsDefault(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(directHit)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithHTTPClient(nil), WithTimeout(2*time.Second))
	got, err := c.LookupAbstract(context.Background(), "Influenza")
	require.NoError(t, err)
	assert.True(t, got.Matched)
}

func TestLookupAbstract_EmptyName(t *testing.T) {
	t.Parallel()

	got, err := NewClient(WithEndpoint("http://127.0.0.1:1")).LookupAbstract(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, got.Matched)
}

func TestResourceURI(t *testing.T) {
	assert.Equal(t, "http://dbpedia.org/resource/Common_cold", ResourceURI("Common cold"))
	assert.Equal(t, "http://dbpedia.org/resource/Crohn%27s_disease", ResourceURI(" Crohn's disease "))
}

func TestLabelQuery_StripsQuotes(t *testing.T) {
	q := labelQuery(`Flu" } DROP`)
	assert.Contains(t, q, `"flu } drop"`)
	assert.NotContains(t, q, `flu"`)
}
