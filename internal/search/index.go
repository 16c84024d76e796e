// Package search derives filter dimensions from a catalog and selects records by them.
package search

import (
	"slices"

	"github.com/ppiankov/matmap/internal/model"
)

// FilterIndex holds the distinct values of each filter dimension, sorted
type FilterIndex struct {
	MaterialTokens []string `json:"material_tokens" yaml:"material_tokens"`
	EOSTitles      []string `json:"eos_titles" yaml:"eos_titles"`
}

// BuildIndex collects every record's search tokens and EOS title, without
// empty or unresolved values
func BuildIndex(records []*model.NormalizedRecord) FilterIndex {
	materials := make(map[string]struct{})
	eos := make(map[string]struct{})

	for _, rec := range records {
		if rec == nil {
			continue
		}
		for _, tok := range rec.SearchTokens {
			if model.IsResolved(tok) {
				materials[tok] = struct{}{}
			}
		}
		if model.IsResolved(rec.EOSTitle) {
			eos[rec.EOSTitle] = struct{}{}
		}
	}

	return FilterIndex{
		MaterialTokens: sortedKeys(materials),
		EOSTitles:      sortedKeys(eos),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Matches reports whether rec passes the selection. Values within a dimension
// are alternatives; both dimensions must pass. An empty selection passes
// everything.
func Matches(rec *model.NormalizedRecord, selectedMaterials, selectedEOS []string) bool {
	if rec == nil {
		return false
	}

	if len(selectedMaterials) > 0 {
		found := false
		for _, tok := range rec.SearchTokens {
			if slices.Contains(selectedMaterials, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(selectedEOS) > 0 && !slices.Contains(selectedEOS, rec.EOSTitle) {
		return false
	}

	return true
}

// Filter returns the records that match, in catalog order
func Filter(records []*model.NormalizedRecord, selectedMaterials, selectedEOS []string) []*model.NormalizedRecord {
	out := make([]*model.NormalizedRecord, 0, len(records))
	for _, rec := range records {
		if Matches(rec, selectedMaterials, selectedEOS) {
			out = append(out, rec)
		}
	}
	return out
}
