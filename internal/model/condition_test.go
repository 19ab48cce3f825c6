package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		in   string
		want Urgency
	}{
		{"routine", UrgencyRoutine},
		{" Urgent ", UrgencyUrgent},
		{"EMERGENCY", UrgencyEmergency},
		{"", UrgencyRoutine},
		{"asap", UrgencyRoutine},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseUrgency(tt.in))
		})
	}
	assert.False(t, Urgency("asap").Valid())
	assert.True(t, UrgencyUrgent.Valid())
}

func TestConditionRecord_SeverityAndUrgency(t *testing.T) {
	var nilRec *ConditionRecord
	assert.Equal(t, DefaultSeverity, nilRec.Severity())
	assert.Equal(t, UrgencyRoutine, nilRec.EffectiveUrgency())

	rec := &ConditionRecord{Name: "X"}
	assert.Equal(t, 0.5, rec.Severity())

	s := 0.9
	rec.SeverityScore = &s
	rec.Urgency = "Emergency"
	assert.Equal(t, 0.9, rec.Severity())
	assert.Equal(t, UrgencyEmergency, rec.EffectiveUrgency())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "influenza", NormalizeName("  Influenza\t"))
	// "e" + combining acute composes to a single rune.
	assert.Equal(t, "caf\u00e9", NormalizeName("Cafe\u0301"))
}

func TestLookupKey(t *testing.T) {
	assert.Equal(t, "abstract:common cold", LookupKey(" Common Cold "))
	assert.Equal(t, LookupKey("FLU"), LookupKey("flu"))
}

func TestLookupResult_JSONOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(Unmatched())
	require.NoError(t, err)
	assert.JSONEq(t, `{"matched":false}`, string(data))
}

func TestCacheEntry_Fresh(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := CacheEntry{Payload: Unmatched(), FetchedAt: t0}

	assert.True(t, e.Fresh(t0, time.Hour))
	assert.True(t, e.Fresh(t0.Add(time.Hour), time.Hour))
	assert.False(t, e.Fresh(t0.Add(time.Hour+time.Nanosecond), time.Hour))
}

func TestEnrichedCandidate_JSONShape(t *testing.T) {
	data, err := json.Marshal(EnrichedCandidate{Name: "Flu", MissingSymptoms: []string{}, Urgency: UrgencyRoutine})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "kb")
	assert.Contains(t, m, "dbpedia")
	assert.Contains(t, m, "follow_up_question")
	assert.Equal(t, []any{}, m["missing_symptoms"])
}
