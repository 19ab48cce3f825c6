// Package triage turns a symptom report into a triage response: red-flag
// short-circuit, cross-check analysis and fixed advice.
package triage

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curasense/triage-cli/internal/crosscheck"
	"github.com/curasense/triage-cli/internal/model"
)

// DefaultResponseLimit is the number of conditions returned to callers.
const DefaultResponseLimit = 5

// Request is the inbound triage payload.
type Request struct {
	Text              string   `json:"text"`
	AgeRange          string   `json:"age_range,omitempty"`
	Sex               string   `json:"sex,omitempty"`
	ChronicConditions []string `json:"chronic_conditions,omitempty"`
	UserName          string   `json:"user_name,omitempty"`
}

// Advice is the fixed guidance attached to every response.
type Advice struct {
	SelfCare     []string `json:"selfcare"`
	EscalateWhen []string `json:"escalate_when"`
}

// Response is the outbound triage payload.
type Response struct {
	Conditions []model.EnrichedCandidate `json:"conditions"`
	Urgency    model.Urgency             `json:"urgency"`
	RedFlags   []string                  `json:"red_flags"`
	Advice     Advice                    `json:"advice"`
	TraceID    string                    `json:"trace_id"`
	UserName   *string                   `json:"user_name"`
}

var (
	routineAdvice = Advice{
		SelfCare:     []string{"Hydrate well", "Rest", "Monitor symptoms"},
		EscalateWhen: []string{"Symptoms worsen", "Fever lasts >3 days"},
	}
	emergencyAdvice = Advice{
		SelfCare:     []string{},
		EscalateWhen: []string{"Seek emergency care immediately."},
	}
)

// Analyzer runs the cross-check pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, req crosscheck.Request) ([]model.EnrichedCandidate, error)
}

// RedFlagChecker reports emergency phrases found in text.
type RedFlagChecker interface {
	Check(text string) []string
}

// Service builds triage responses.
type Service struct {
	analyzer      Analyzer
	redFlags      RedFlagChecker
	responseLimit int
}

// NewService creates a Service. responseLimit <= 0 uses DefaultResponseLimit.
func NewService(analyzer Analyzer, redFlags RedFlagChecker, responseLimit int) *Service {
	if responseLimit <= 0 {
		responseLimit = DefaultResponseLimit
	}
	return &Service{analyzer: analyzer, redFlags: redFlags, responseLimit: responseLimit}
}

// NewTraceID returns "trace-" followed by 12 random hex characters.
func NewTraceID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "trace-" + id[:12]
}

// Triage never fails: analysis errors are logged and produce an empty
// condition list.
func (s *Service) Triage(ctx context.Context, req Request) Response {
	resp := Response{
		Conditions: []model.EnrichedCandidate{},
		Urgency:    model.UrgencyRoutine,
		RedFlags:   []string{},
		Advice:     Advice{SelfCare: []string{}, EscalateWhen: []string{}},
		TraceID:    NewTraceID(),
	}
	if name := strings.TrimSpace(req.UserName); name != "" {
		resp.UserName = &name
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return resp
	}

	log := zap.L().With(zap.String("trace_id", resp.TraceID))

	if s.redFlags != nil {
		if flags := s.redFlags.Check(text); len(flags) > 0 {
			log.Info("triage: red flags detected", zap.Strings("red_flags", flags))
			resp.Urgency = model.UrgencyEmergency
			resp.RedFlags = flags
			resp.Advice = emergencyAdvice
			return resp
		}
	}

	resp.Advice = routineAdvice
	if s.analyzer == nil {
		return resp
	}

	cands, err := s.analyzer.Analyze(ctx, crosscheck.Request{
		Text:              text,
		Age:               ParseAge(req.AgeRange),
		ChronicConditions: req.ChronicConditions,
	})
	if err != nil {
		log.Warn("triage: analysis unavailable", zap.Error(err))
		return resp
	}
	if len(cands) > s.responseLimit {
		cands = cands[:s.responseLimit]
	}
	resp.Conditions = cands
	log.Debug("triage: analyzed", zap.Int("conditions", len(cands)))
	return resp
}
