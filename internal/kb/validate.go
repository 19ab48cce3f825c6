package kb

import (
	"fmt"
	"strings"

	"github.com/curasense/triage-cli/internal/model"
)

// Severity levels for validation issues.
const (
	IssueError   = "error"
	IssueWarning = "warning"
)

// Issue is a data-quality finding in a knowledge base.
type Issue struct {
	Level   string `json:"level"`
	Record  int    `json:"record"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Validate checks records for problems the loader tolerates. Name and alias
// collisions are reported as warnings since the index resolves them by
// keeping the last record.
func Validate(records []model.ConditionRecord) []Issue {
	var issues []Issue
	owner := make(map[string]int)

	for i, rec := range records {
		if model.NormalizeName(rec.Name) == "" {
			issues = append(issues, Issue{Level: IssueError, Record: i, Message: "empty name"})
			continue
		}
		if rec.SeverityScore != nil && (*rec.SeverityScore < 0 || *rec.SeverityScore > 1) {
			issues = append(issues, Issue{
				Level:   IssueError,
				Record:  i,
				Name:    rec.Name,
				Message: fmt.Sprintf("severity_score %.3f outside [0,1]", *rec.SeverityScore),
			})
		}
		if u := model.Urgency(strings.ToLower(strings.TrimSpace(string(rec.Urgency)))); u != "" && !u.Valid() {
			issues = append(issues, Issue{
				Level:   IssueWarning,
				Record:  i,
				Name:    rec.Name,
				Message: fmt.Sprintf("unknown urgency %q treated as routine", rec.Urgency),
			})
		}

		keys := append([]string{rec.Name}, rec.Aliases...)
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			key := model.NormalizeName(k)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if prev, ok := owner[key]; ok && prev != i {
				issues = append(issues, Issue{
					Level:   IssueWarning,
					Record:  i,
					Name:    rec.Name,
					Message: fmt.Sprintf("key %q also claimed by record %d (%s); this record wins", key, prev, records[prev].Name),
				})
			}
			owner[key] = i
		}
	}
	return issues
}
