// Package crosscheck merges ranked candidates with the knowledge base and
// enriches the leading candidates with cached external lookups.
package crosscheck

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curasense/triage-cli/internal/kb"
	"github.com/curasense/triage-cli/internal/model"
	"github.com/curasense/triage-cli/internal/rank"
	"github.com/curasense/triage-cli/internal/risk"
)

// ErrRankUnavailable is returned when the ranker fails, panics or times out.
var ErrRankUnavailable = eris.New("crosscheck: ranker unavailable")

// Enricher performs a cached external lookup for a condition name.
// *lookupcache.Cache satisfies it.
type Enricher interface {
	LookupCached(ctx context.Context, key, name string) model.LookupResult
}

// KeyFunc derives the enrichment key for a condition name.
type KeyFunc func(name string) string

// Config controls candidate selection and timeouts.
type Config struct {
	TopK                int
	TopM                int
	EnrichmentThreshold float64
	LookupTimeout       time.Duration
	RankTimeout         time.Duration
}

// DefaultConfig returns the standard selection parameters.
func DefaultConfig() Config {
	return Config{
		TopK:                10,
		TopM:                1,
		EnrichmentThreshold: 0.60,
		LookupTimeout:       8 * time.Second,
		RankTimeout:         30 * time.Second,
	}
}

// Request is the per-call input to Analyze.
type Request struct {
	Text              string
	Age               int
	ChronicConditions []string
}

// Orchestrator runs the cross-check pipeline. It holds no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	ranker   rank.Ranker
	index    *kb.Index
	enricher Enricher
	key      KeyFunc
	cfg      Config
}

// New creates an Orchestrator. A nil enricher disables external lookups; a
// nil index resolves nothing.
func New(ranker rank.Ranker, index *kb.Index, enricher Enricher, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.TopM < 0 {
		cfg.TopM = 0
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = def.LookupTimeout
	}
	if cfg.RankTimeout <= 0 {
		cfg.RankTimeout = def.RankTimeout
	}
	return &Orchestrator{
		ranker:   ranker,
		index:    index,
		enricher: enricher,
		key:      model.LookupKey,
		cfg:      cfg,
	}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Analyze ranks req.Text, enriches the leading candidates and returns one
// EnrichedCandidate per ranked candidate (after top-K truncation) in ranker
// order. When ranking fails the result is empty and the error wraps
// ErrRankUnavailable; lookup failures never surface as errors.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) ([]model.EnrichedCandidate, error) {
	ranked, err := o.rank(ctx, req.Text)
	if err != nil {
		return []model.EnrichedCandidate{}, err
	}
	if len(ranked) > o.cfg.TopK {
		ranked = ranked[:o.cfg.TopK]
	}

	lookups := o.enrich(ctx, ranked)

	hasChronic := len(req.ChronicConditions) > 0
	out := make([]model.EnrichedCandidate, len(ranked))
	for i, c := range ranked {
		out[i] = merge(c, o.index, req.Text, req.Age, hasChronic)
		out[i].Lookup = lookups[i]
	}
	return out, nil
}

type rankResult struct {
	cands []model.CandidateScore
	err   error
}

// rank runs the ranker on its own goroutine so a slow or stuck ranker is
// bounded by RankTimeout.
func (o *Orchestrator) rank(ctx context.Context, text string) ([]model.CandidateScore, error) {
	if o.ranker == nil {
		return nil, eris.Wrap(ErrRankUnavailable, "crosscheck: no ranker configured")
	}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RankTimeout)
	defer cancel()

	ch := make(chan rankResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- rankResult{err: eris.Errorf("ranker panicked: %v", r)}
			}
		}()
		cands, err := o.ranker.Rank(ctx, text)
		ch <- rankResult{cands: cands, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			zap.L().Warn("crosscheck: rank failed", zap.Error(res.err))
			return nil, eris.Wrapf(ErrRankUnavailable, "crosscheck: rank: %v", res.err)
		}
		return res.cands, nil
	case <-ctx.Done():
		zap.L().Warn("crosscheck: rank timed out", zap.Duration("timeout", o.cfg.RankTimeout))
		return nil, eris.Wrapf(ErrRankUnavailable, "crosscheck: rank: %v", ctx.Err())
	}
}

// enrich looks up every selected candidate concurrently. The returned slice
// is index-aligned with ranked; unselected slots stay nil.
func (o *Orchestrator) enrich(ctx context.Context, ranked []model.CandidateScore) []*model.LookupResult {
	slots := make([]*model.LookupResult, len(ranked))
	if o.enricher == nil {
		return slots
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, i := range o.selectForEnrichment(ranked) {
		name := o.lookupName(ranked[i].Name)
		g.Go(func() error {
			r := o.lookupOne(gctx, name)
			slots[i] = &r
			return nil
		})
	}
	_ = g.Wait()
	return slots
}

// selectForEnrichment returns the indices among the first TopM candidates
// that meet the enrichment threshold.
func (o *Orchestrator) selectForEnrichment(ranked []model.CandidateScore) []int {
	var idx []int
	for i := 0; i < len(ranked) && i < o.cfg.TopM; i++ {
		if ranked[i].FinalScore >= o.cfg.EnrichmentThreshold {
			idx = append(idx, i)
		}
	}
	return idx
}

// lookupName prefers the knowledge base's canonical name over the ranker's.
func (o *Orchestrator) lookupName(name string) string {
	if rec, ok := o.index.Resolve(name); ok && rec.Name != "" {
		return rec.Name
	}
	return name
}

// lookupOne runs a single lookup under its own timeout. Panics and timeouts
// degrade to an unmatched result.
func (o *Orchestrator) lookupOne(ctx context.Context, name string) model.LookupResult {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.LookupTimeout)
	defer cancel()

	done := make(chan model.LookupResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Error("crosscheck: lookup panicked",
					zap.String("name", name),
					zap.Any("panic", r),
				)
				done <- model.Unmatched()
			}
		}()
		done <- o.enricher.LookupCached(ctx, o.key(name), name)
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		zap.L().Warn("crosscheck: lookup timed out",
			zap.String("name", name),
			zap.Duration("timeout", o.cfg.LookupTimeout),
		)
		return model.Unmatched()
	}
}

func merge(c model.CandidateScore, index *kb.Index, text string, age int, hasChronic bool) model.EnrichedCandidate {
	ec := model.EnrichedCandidate{
		Name:            c.Name,
		FinalScore:      risk.Round3(c.FinalScore),
		SimilarityScore: c.SimilarityScore,
		AuxScore:        c.AuxScore,
		Rationale:       c.Rationale,
		MissingSymptoms: []string{},
		Urgency:         model.UrgencyRoutine,
	}

	rec, ok := index.Resolve(c.Name)
	if ok {
		ec.KB = rec
		ec.MissingSymptoms = MissingSymptoms(text, rec)
		ec.FollowUpQuestion = PickFollowUp(ec.MissingSymptoms, rec)
		ec.Urgency = rec.EffectiveUrgency()
	}
	ec.RiskScore = risk.Score(c.FinalScore, rec.Severity(), age, hasChronic)
	return ec
}
