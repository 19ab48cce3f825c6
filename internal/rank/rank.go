// Package rank produces ordered candidate conditions for a symptom text.
package rank

import (
	"context"
	"math"
	"sort"

	"github.com/curasense/triage-cli/internal/model"
)

// DefaultMaxResults caps the number of candidates a ranker returns.
const DefaultMaxResults = 5

// Ranker turns free text into candidates ordered by FinalScore, highest
// first. Empty or unrankable text yields an empty slice.
type Ranker interface {
	Rank(ctx context.Context, text string) ([]model.CandidateScore, error)
}

// Static returns a fixed candidate list for any non-empty text.
type Static []model.CandidateScore

func (s Static) Rank(_ context.Context, text string) ([]model.CandidateScore, error) {
	if isBlank(text) {
		return []model.CandidateScore{}, nil
	}
	out := make([]model.CandidateScore, len(s))
	copy(out, s)
	return out, nil
}

func sortAndTruncate(cands []model.CandidateScore, limit int) []model.CandidateScore {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].FinalScore > cands[j].FinalScore
	})
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
