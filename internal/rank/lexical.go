package rank

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/curasense/triage-cli/internal/kb"
	"github.com/curasense/triage-cli/internal/model"
)

const (
	descriptionWeight = 0.7
	nameWeight        = 0.3
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "so": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "with": {}, "been": {},
	"feel": {}, "feeling": {}, "got": {}, "had": {}, "having": {}, "since": {},
}

// Lexical scores each knowledge base record by bag-of-words cosine
// similarity of the text against the record's description and name.
type Lexical struct {
	index      *kb.Index
	maxResults int
	docs       []lexicalDoc
}

type lexicalDoc struct {
	rec  *model.ConditionRecord
	desc map[string]float64
	name map[string]float64
}

// NewLexical builds a lexical ranker over the index. maxResults <= 0 uses
// DefaultMaxResults.
func NewLexical(index *kb.Index, maxResults int) *Lexical {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	l := &Lexical{index: index, maxResults: maxResults}
	records := index.Records()
	for i := range records {
		rec := &records[i]
		l.docs = append(l.docs, lexicalDoc{
			rec:  rec,
			desc: termVector(rec.Description),
			name: termVector(rec.Name),
		})
	}
	return l
}

func (l *Lexical) Rank(ctx context.Context, text string) ([]model.CandidateScore, error) {
	if isBlank(text) {
		return []model.CandidateScore{}, nil
	}
	q := termVector(text)
	cands := make([]model.CandidateScore, 0, len(l.docs))
	for _, d := range l.docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim := cosine(q, d.desc)
		aux := cosine(q, d.name)
		cands = append(cands, model.CandidateScore{
			Name:            d.rec.Name,
			SimilarityScore: round6(sim),
			AuxScore:        round6(aux),
			FinalScore:      round6(descriptionWeight*sim + nameWeight*aux),
			Rationale:       d.rec.Description,
		})
	}
	return sortAndTruncate(cands, l.maxResults), nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; !stop {
			out = append(out, f)
		}
	}
	return out
}

func termVector(s string) map[string]float64 {
	v := make(map[string]float64)
	for _, t := range tokenize(s) {
		v[t]++
	}
	return v
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for t, x := range a {
		na += x * x
		if y, ok := b[t]; ok {
			dot += x * y
		}
	}
	for _, y := range b {
		nb += y * y
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
