// Package dbpedia provides a client for looking up condition abstracts in
// DBpedia over its public SPARQL endpoint.
package dbpedia

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/curasense/triage-cli/internal/model"
	"github.com/curasense/triage-cli/internal/resilience"
)

// DefaultEndpoint is the public DBpedia SPARQL endpoint.
const DefaultEndpoint = "https://dbpedia.org/sparql"

// ResourceBase prefixes every DBpedia resource IRI.
const ResourceBase = "http://dbpedia.org/resource/"

// Client looks up a condition's reference abstract.
type Client interface {
	// LookupAbstract always returns a well-formed result; on any failure it
	// is unmatched. The error is non-nil only when a remote call failed, so
	// callers can tell a genuine non-match from an outage.
	LookupAbstract(ctx context.Context, conditionName string) (model.LookupResult, error)
}

// Option configures the SPARQL client.
type Option func(*sparqlClient)

// WithEndpoint sets the SPARQL endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(c *sparqlClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *sparqlClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *sparqlClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing queries per second. Zero disables limiting.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *sparqlClient) {
		if perSec <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(p resilience.RetryPolicy) Option {
	return func(c *sparqlClient) {
		c.retry = p
	}
}

// WithBreaker routes queries through a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *sparqlClient) {
		c.breaker = b
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *sparqlClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

type sparqlClient struct {
	endpoint  string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.RetryPolicy
	breaker   *resilience.Breaker
	userAgent string
}

// NewClient creates a DBpedia SPARQL client.
func NewClient(opts ...Option) Client {
	retry := resilience.DefaultRetryPolicy()
	retry.OnRetry = resilience.LogRetry("dbpedia", "sparql")

	c := &sparqlClient{
		endpoint: DefaultEndpoint,
		http: &http.Client{
			Timeout: 8 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:   rate.NewLimiter(5, 5),
		retry:     retry,
		userAgent: "triage-cli/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sparqlResponse is the subset of the SPARQL 1.1 JSON results format we read.
type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Lang  string `json:"xml:lang,omitempty"`
}

func (c *sparqlClient) LookupAbstract(ctx context.Context, conditionName string) (model.LookupResult, error) {
	name := strings.TrimSpace(conditionName)
	if name == "" {
		return model.Unmatched(), nil
	}
	log := zap.L().With(zap.String("condition", name))

	// Direct resource: the slug is the title with spaces as underscores.
	resource := ResourceURI(name)
	bindings, directErr := c.query(ctx, directQuery(resource))
	if directErr != nil {
		log.Debug("dbpedia: direct query failed", zap.Error(directErr))
	}
	if len(bindings) > 0 {
		return buildResult(bindings[0], resource, name), nil
	}

	// Fallback: case-insensitive label equality or containment.
	bindings, labelErr := c.query(ctx, labelQuery(name))
	if labelErr != nil {
		log.Debug("dbpedia: label query failed", zap.Error(labelErr))
	}
	if len(bindings) > 0 {
		return buildResult(bindings[0], bindings[0]["s"].Value, name), nil
	}

	switch {
	case labelErr != nil:
		return model.Unmatched(), eris.Wrap(labelErr, "dbpedia: lookup failed")
	case directErr != nil:
		return model.Unmatched(), eris.Wrap(directErr, "dbpedia: lookup failed")
	}
	return model.Unmatched(), nil
}

func buildResult(b map[string]sparqlValue, resource, name string) model.LookupResult {
	label := b["label"].Value
	if label == "" {
		label = name
	}
	r := model.LookupResult{
		Matched: true,
		Labels:  []string{label},
	}
	if resource != "" {
		r.Resource = &resource
	}
	if abstract := b["abstract"].Value; abstract != "" {
		r.Abstract = &abstract
	}
	return r
}

// ResourceURI returns the DBpedia resource IRI for a condition title.
func ResourceURI(name string) string {
	return ResourceBase + url.PathEscape(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

func directQuery(resource string) string {
	return `PREFIX dbo: <http://dbpedia.org/ontology/>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
SELECT ?abstract ?label WHERE {
  <` + resource + `> dbo:abstract ?abstract .
  OPTIONAL { <` + resource + `> rdfs:label ?label . FILTER (lang(?label) = 'en') }
  FILTER (lang(?abstract) = 'en')
} LIMIT 1`
}

// labelQuery matches labels equal to or containing name. Quotes and
// backslashes are stripped so the name cannot break out of the literal.
func labelQuery(name string) string {
	safe := strings.ToLower(strings.NewReplacer(`"`, "", `\`, "").Replace(name))
	return `PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
PREFIX dbo: <http://dbpedia.org/ontology/>
SELECT ?s ?abstract ?label WHERE {
  ?s rdfs:label ?label .
  OPTIONAL { ?s dbo:abstract ?abstract . FILTER (lang(?abstract) = 'en') }
  FILTER (lang(?label) = 'en' && (lcase(str(?label)) = "` + safe + `" || contains(lcase(str(?label)), "` + safe + `")))
} LIMIT 3`
}

func (c *sparqlClient) query(ctx context.Context, q string) ([]map[string]sparqlValue, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "dbpedia: rate limit wait")
		}
	}
	return resilience.Execute(ctx, c.breaker, func(ctx context.Context) ([]map[string]sparqlValue, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]map[string]sparqlValue, error) {
			return c.do(ctx, q)
		})
	})
}

func (c *sparqlClient) do(ctx context.Context, q string) ([]map[string]sparqlValue, error) {
	reqURL := c.endpoint + "?query=" + url.QueryEscape(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "dbpedia: create request")
	}
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dbpedia: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dbpedia: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("dbpedia: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
		if resilience.IsTransientStatus(resp.StatusCode) {
			return nil, resilience.Transient(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var parsed sparqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "dbpedia: unmarshal response")
	}
	return parsed.Results.Bindings, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
