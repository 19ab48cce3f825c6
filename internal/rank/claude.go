package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/curasense/triage-cli/internal/kb"
	"github.com/curasense/triage-cli/internal/model"
	"github.com/curasense/triage-cli/pkg/anthropic"
)

const claudeSystemPrompt = `You rank candidate medical conditions for a symptom description.
Only use condition names from the provided list, spelled exactly as given.
Respond with a JSON array only, no prose: [{"name": "<condition>", "score": <0..1>}], highest score first.`

// Claude asks an Anthropic model to score knowledge base conditions against
// the text. Names the model invents are dropped.
type Claude struct {
	client     anthropic.Client
	model      string
	index      *kb.Index
	maxResults int
}

// NewClaude creates a Claude ranker. maxResults <= 0 uses DefaultMaxResults.
func NewClaude(client anthropic.Client, model string, index *kb.Index, maxResults int) *Claude {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Claude{client: client, model: model, index: index, maxResults: maxResults}
}

type claudeScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func (c *Claude) Rank(ctx context.Context, text string) ([]model.CandidateScore, error) {
	if isBlank(text) {
		return []model.CandidateScore{}, nil
	}
	names := c.index.Names(c.index.Len())
	if len(names) == 0 {
		return []model.CandidateScore{}, nil
	}

	prompt := fmt.Sprintf("Conditions:\n- %s\n\nSymptoms:\n%s\n\nReturn at most %d conditions.",
		strings.Join(names, "\n- "), text, c.maxResults)

	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   1024,
		System:      claudeSystemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "rank: claude request")
	}
	resp.Usage.LogUsage(resp.Model, "rank")

	scores, err := parseClaudeScores(resp.Text())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(scores))
	cands := make([]model.CandidateScore, 0, len(scores))
	for _, s := range scores {
		rec, ok := c.index.Resolve(s.Name)
		if !ok {
			zap.L().Debug("rank: dropping unknown condition", zap.String("name", s.Name))
			continue
		}
		if _, dup := seen[rec.Name]; dup {
			continue
		}
		seen[rec.Name] = struct{}{}

		score := round6(clamp01(s.Score))
		cands = append(cands, model.CandidateScore{
			Name:            rec.Name,
			SimilarityScore: score,
			AuxScore:        0,
			FinalScore:      score,
			Rationale:       rec.Description,
		})
	}
	return sortAndTruncate(cands, c.maxResults), nil
}

// parseClaudeScores extracts the JSON array from the model output, which may
// be wrapped in a code fence.
func parseClaudeScores(out string) ([]claudeScore, error) {
	start := strings.Index(out, "[")
	end := strings.LastIndex(out, "]")
	if start < 0 || end < start {
		return nil, eris.Errorf("rank: no JSON array in model output %q", truncate(out, 80))
	}
	var scores []claudeScore
	if err := json.Unmarshal([]byte(out[start:end+1]), &scores); err != nil {
		return nil, eris.Wrap(err, "rank: parse model output")
	}
	return scores, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
