// Package kb loads the condition knowledge base and resolves condition names
// and aliases against it.
package kb

import (
	"github.com/curasense/triage-cli/internal/model"
)

// Index maps normalized names and aliases to knowledge base records. It is
// built once and is read-only afterwards, so it is safe for concurrent use.
type Index struct {
	records []model.ConditionRecord
	byKey   map[string]*model.ConditionRecord
}

// NewIndex builds an Index over records. When two records claim the same name
// or alias, the one loaded last wins.
func NewIndex(records []model.ConditionRecord) *Index {
	idx := &Index{
		records: records,
		byKey:   make(map[string]*model.ConditionRecord, len(records)*2),
	}
	for i := range idx.records {
		rec := &idx.records[i]
		if key := model.NormalizeName(rec.Name); key != "" {
			idx.byKey[key] = rec
		}
		for _, alias := range rec.Aliases {
			if key := model.NormalizeName(alias); key != "" {
				idx.byKey[key] = rec
			}
		}
	}
	return idx
}

// Resolve returns the record whose name or alias matches name exactly after
// normalization. A nil Index resolves nothing.
func (idx *Index) Resolve(name string) (*model.ConditionRecord, bool) {
	if idx == nil {
		return nil, false
	}
	key := model.NormalizeName(name)
	if key == "" {
		return nil, false
	}
	rec, ok := idx.byKey[key]
	return rec, ok
}

// Records returns the loaded records in source order.
func (idx *Index) Records() []model.ConditionRecord {
	if idx == nil {
		return nil
	}
	return idx.records
}

// Len returns the number of records.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// Names returns up to n non-empty record names in source order.
func (idx *Index) Names(n int) []string {
	var names []string
	for _, rec := range idx.Records() {
		if len(names) >= n {
			break
		}
		if rec.Name != "" {
			names = append(names, rec.Name)
		}
	}
	return names
}
