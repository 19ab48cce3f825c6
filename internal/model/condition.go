package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Urgency is the triage urgency attached to a condition.
type Urgency string

// Urgency levels, lowest to highest.
const (
	UrgencyRoutine   Urgency = "routine"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

// ParseUrgency maps a raw string onto a known urgency. Unknown and empty
// values become routine.
func ParseUrgency(s string) Urgency {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyUrgent:
		return UrgencyUrgent
	case UrgencyEmergency:
		return UrgencyEmergency
	default:
		return UrgencyRoutine
	}
}

// Valid reports whether u is one of the known urgency levels.
func (u Urgency) Valid() bool {
	return u == UrgencyRoutine || u == UrgencyUrgent || u == UrgencyEmergency
}

// FollowUpQuestion is a clarifying question configured for a condition.
type FollowUpQuestion struct {
	ID   string `json:"id,omitempty" yaml:"id,omitempty"`
	Text string `json:"text" yaml:"text"`
}

// ConditionRecord is one knowledge base entry. Records are loaded once at
// startup and never mutated afterwards.
type ConditionRecord struct {
	Name              string             `json:"name" yaml:"name"`
	Description       string             `json:"description,omitempty" yaml:"description,omitempty"`
	Aliases           []string           `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	CommonSymptoms    []string           `json:"common_symptoms,omitempty" yaml:"common_symptoms,omitempty"`
	FollowUpQuestions []FollowUpQuestion `json:"follow_up_questions,omitempty" yaml:"follow_up_questions,omitempty"`
	SeverityScore     *float64           `json:"severity_score,omitempty" yaml:"severity_score,omitempty"`
	Urgency           Urgency            `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	RedFlags          []string           `json:"red_flags,omitempty" yaml:"red_flags,omitempty"`
}

// DefaultSeverity is used when a record carries no severity score, or when a
// candidate has no knowledge base record at all.
const DefaultSeverity = 0.5

// Severity returns the record's severity score, or DefaultSeverity when unset.
func (c *ConditionRecord) Severity() float64 {
	if c == nil || c.SeverityScore == nil {
		return DefaultSeverity
	}
	return *c.SeverityScore
}

// EffectiveUrgency returns the record's urgency normalized to a known level.
func (c *ConditionRecord) EffectiveUrgency() Urgency {
	if c == nil {
		return UrgencyRoutine
	}
	return ParseUrgency(string(c.Urgency))
}

// NormalizeName canonicalizes a condition name or alias for lookups: Unicode
// NFC, lower-cased, surrounding whitespace trimmed.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
