package crosscheck

import (
	"strings"

	"github.com/curasense/triage-cli/internal/model"
)

// minKeywordLen is the shortest word of a missing symptom that can match a
// follow-up question.
const minKeywordLen = 4

// MissingSymptoms returns the record's common symptoms, in order, that do not
// appear as a case-insensitive substring of text. Never nil.
func MissingSymptoms(text string, rec *model.ConditionRecord) []string {
	missing := []string{}
	if rec == nil {
		return missing
	}
	t := strings.ToLower(text)
	for _, s := range rec.CommonSymptoms {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if !strings.Contains(t, strings.ToLower(s)) {
			missing = append(missing, s)
		}
	}
	return missing
}

// PickFollowUp chooses the follow-up question for a record. With nothing
// missing it is the first question; otherwise the first question mentioning
// a word of at least minKeywordLen letters from a missing symptom, checked in
// missing-symptom order, falling back to the first question.
func PickFollowUp(missing []string, rec *model.ConditionRecord) *model.FollowUpQuestion {
	if rec == nil || len(rec.FollowUpQuestions) == 0 {
		return nil
	}
	first := rec.FollowUpQuestions[0]
	if len(missing) == 0 {
		return &first
	}

	for _, m := range missing {
		for _, q := range rec.FollowUpQuestions {
			qt := strings.ToLower(q.Text)
			for _, w := range strings.Fields(strings.ToLower(m)) {
				if len(w) >= minKeywordLen && strings.Contains(qt, w) {
					return &q
				}
			}
		}
	}
	return &first
}
