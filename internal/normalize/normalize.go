// Package normalize turns raw material entries into search-ready records.
package normalize

import (
	"slices"

	"github.com/ppiankov/matmap/internal/card"
	"github.com/ppiankov/matmap/internal/model"
)

// Resolver maps card titles to dictionary codes. Unknown titles resolve to
// model.Unresolved.
type Resolver interface {
	ResolveMaterialID(title string) string
	ResolveEOSID(title string) string
	ResolveThermalID(title string) string
}

// Normalizer resolves entries against a fixed set of dictionaries
type Normalizer struct {
	dict Resolver
}

// New creates a Normalizer. A nil dict leaves every code unresolved.
func New(dict Resolver) *Normalizer {
	if dict == nil {
		dict = noDictionary{}
	}
	return &Normalizer{dict: dict}
}

type noDictionary struct{}

func (noDictionary) ResolveMaterialID(string) string { return model.Unresolved }
func (noDictionary) ResolveEOSID(string) string      { return model.Unresolved }
func (noDictionary) ResolveThermalID(string) string  { return model.Unresolved }

// Normalize builds the record for one entry. It returns nil for a nil entry.
// The result does not share memory with raw.
func (n *Normalizer) Normalize(raw *model.RawMaterialEntry) *model.NormalizedRecord {
	if raw == nil {
		return nil
	}

	mat := card.Parse(raw.MatData)
	eosTitle := card.ExtractTitle(raw.EOSData)
	addTitle := card.ExtractTitle(raw.MatAddData)
	thermalTitle := card.ExtractTitle(raw.MatThermalData)

	rec := &model.NormalizedRecord{
		MaterialTitle:      mat.Title,
		MaterialCode:       n.resolve(n.dict.ResolveMaterialID, mat.Title),
		MaterialHeading:    mat.Heading,
		MaterialProperties: mat.Properties,

		EOSTitle: eosTitle,
		EOSCode:  n.resolve(n.dict.ResolveEOSID, eosTitle),

		AdditionalPropertyTitle: addTitle,
		ThermalPropertyTitle:    thermalTitle,
		ThermalPropertyCode:     n.resolve(n.dict.ResolveThermalID, thermalTitle),

		SearchTokens: searchTokens(mat.Title, addTitle, thermalTitle),
		Applications: copyStrings(raw.App),
	}

	detail := *raw
	detail.App = copyStrings(raw.App)
	rec.Raw = &detail

	return rec
}

func (n *Normalizer) resolve(fn func(string) string, title string) string {
	if !model.IsResolved(title) {
		return model.Unresolved
	}
	if code := fn(title); code != "" {
		return code
	}
	return model.Unresolved
}

// searchTokens collects the resolved titles, deduplicated, in argument order.
// EOS titles are filtered on their own dimension and never appear here.
func searchTokens(titles ...string) []string {
	tokens := make([]string, 0, len(titles))
	for _, t := range titles {
		if model.IsResolved(t) && !slices.Contains(tokens, t) {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
