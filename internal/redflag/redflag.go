// Package redflag detects emergency phrases in symptom text.
package redflag

import (
	"strings"

	"github.com/curasense/triage-cli/internal/model"
)

// BasePhrases are always checked, regardless of the knowledge base.
var BasePhrases = []string{
	"loss of consciousness",
	"seizure",
	"unable to breathe",
	"can't breathe",
	"cannot breathe",
	"chest pain",
	"collapse",
	"fainting",
	"passing out",
	"severe bleeding",
	"vomiting blood",
	"blood in stool",
	"not breathing",
	"baby not breathing",
	"sudden weakness",
	"slurred speech",
}

// Detector matches lower-cased phrases as substrings of the input.
type Detector struct {
	phrases []string
}

// New merges BasePhrases with every red flag in records. Phrases are
// lower-cased and deduplicated, keeping first-seen order.
func New(records []model.ConditionRecord) *Detector {
	d := &Detector{}
	seen := make(map[string]struct{})
	add := func(p string) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		d.phrases = append(d.phrases, p)
	}
	for _, p := range BasePhrases {
		add(p)
	}
	for _, rec := range records {
		for _, p := range rec.RedFlags {
			add(p)
		}
	}
	return d
}

// Phrases returns the merged phrase list.
func (d *Detector) Phrases() []string {
	return d.phrases
}

// Check returns every phrase found in text, in phrase order.
func (d *Detector) Check(text string) []string {
	t := strings.ToLower(text)
	if strings.TrimSpace(t) == "" {
		return nil
	}
	var hits []string
	for _, p := range d.phrases {
		if strings.Contains(t, p) {
			hits = append(hits, p)
		}
	}
	return hits
}
