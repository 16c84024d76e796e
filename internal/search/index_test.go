package search

import (
	"reflect"
	"testing"

	"github.com/ppiankov/matmap/internal/model"
)

func testCatalog() []*model.NormalizedRecord {
	return []*model.NormalizedRecord{
		{
			MaterialTitle: "*MAT_JOHNSON_COOK",
			EOSTitle:      "*EOS_GRUNEISEN",
			SearchTokens:  []string{"*MAT_JOHNSON_COOK", "*MAT_ADD_EROSION"},
		},
		{
			MaterialTitle: "*MAT_ELASTIC",
			EOSTitle:      model.Unresolved,
			SearchTokens:  []string{"*MAT_ELASTIC"},
		},
		{
			MaterialTitle: "*MAT_JOHNSON_COOK",
			EOSTitle:      "*EOS_LINEAR_POLYNOMIAL",
			SearchTokens:  []string{"*MAT_JOHNSON_COOK", model.Unresolved, ""},
		},
		{
			MaterialTitle: model.Unresolved,
			EOSTitle:      "*EOS_GRUNEISEN",
			SearchTokens:  []string{},
		},
	}
}

func TestBuildIndex(t *testing.T) {
	idx := BuildIndex(testCatalog())

	wantMaterials := []string{"*MAT_ADD_EROSION", "*MAT_ELASTIC", "*MAT_JOHNSON_COOK"}
	if !reflect.DeepEqual(idx.MaterialTokens, wantMaterials) {
		t.Errorf("MaterialTokens = %v, want %v", idx.MaterialTokens, wantMaterials)
	}
	wantEOS := []string{"*EOS_GRUNEISEN", "*EOS_LINEAR_POLYNOMIAL"}
	if !reflect.DeepEqual(idx.EOSTitles, wantEOS) {
		t.Errorf("EOSTitles = %v, want %v", idx.EOSTitles, wantEOS)
	}
}

func TestBuildIndex_UnionOfSearchTokens(t *testing.T) {
	catalog := testCatalog()
	idx := BuildIndex(catalog)

	union := make(map[string]bool)
	for _, rec := range catalog {
		for _, tok := range rec.SearchTokens {
			if model.IsResolved(tok) {
				union[tok] = true
			}
		}
	}
	if len(union) != len(idx.MaterialTokens) {
		t.Errorf("index has %d tokens, union has %d", len(idx.MaterialTokens), len(union))
	}
	for i, tok := range idx.MaterialTokens {
		if tok == model.Unresolved || tok == "" {
			t.Errorf("index contains placeholder %q", tok)
		}
		if !union[tok] {
			t.Errorf("index token %q not in any record", tok)
		}
		if i > 0 && idx.MaterialTokens[i-1] >= tok {
			t.Errorf("tokens not strictly sorted at %d: %v", i, idx.MaterialTokens)
		}
	}
}

func TestBuildIndex_Empty(t *testing.T) {
	idx := BuildIndex(nil)
	if idx.MaterialTokens == nil || idx.EOSTitles == nil {
		t.Error("expected empty non-nil slices")
	}
	if len(idx.MaterialTokens) != 0 || len(idx.EOSTitles) != 0 {
		t.Errorf("expected empty index, got %+v", idx)
	}
}

func TestMatches(t *testing.T) {
	catalog := testCatalog()

	tests := []struct {
		name      string
		rec       *model.NormalizedRecord
		materials []string
		eos       []string
		want      bool
	}{
		{"empty selection", catalog[1], nil, nil, true},
		{"empty slices", catalog[3], []string{}, []string{}, true},
		{"material hit ignores eos", catalog[0], []string{"*MAT_ADD_EROSION"}, nil, true},
		{"material miss", catalog[1], []string{"*MAT_JOHNSON_COOK"}, nil, false},
		{"any material within dimension", catalog[1], []string{"*MAT_JOHNSON_COOK", "*MAT_ELASTIC"}, nil, true},
		{"eos hit", catalog[0], nil, []string{"*EOS_GRUNEISEN"}, true},
		{"eos miss", catalog[2], nil, []string{"*EOS_GRUNEISEN"}, false},
		{"both dimensions", catalog[0], []string{"*MAT_JOHNSON_COOK"}, []string{"*EOS_GRUNEISEN"}, true},
		{"both dimensions, eos fails", catalog[2], []string{"*MAT_JOHNSON_COOK"}, []string{"*EOS_GRUNEISEN"}, false},
		{"no tokens with material selection", catalog[3], []string{"*MAT_ELASTIC"}, nil, false},
		{"nil record", nil, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.rec, tt.materials, tt.eos); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilter_PreservesOrder(t *testing.T) {
	catalog := testCatalog()
	got := Filter(catalog, []string{"*MAT_JOHNSON_COOK"}, nil)

	if len(got) != 2 || got[0] != catalog[0] || got[1] != catalog[2] {
		t.Errorf("unexpected filter result: %v", got)
	}
	if all := Filter(catalog, nil, nil); len(all) != len(catalog) {
		t.Errorf("empty selection kept %d of %d", len(all), len(catalog))
	}
}
