package model

import "time"

// Unresolved is the placeholder for every absent title or unresolved code.
const Unresolved = "-"

// IsResolved reports whether s carries a real value (neither empty nor Unresolved)
func IsResolved(s string) bool {
	return s != "" && s != Unresolved
}

// RawMaterialEntry is one [[material]] record as it appears in a source file
type RawMaterialEntry struct {
	// Raw card text: primary material, equation of state, MAT_ADD_* and thermal
	MatData        string `json:"mat_data,omitempty" yaml:"mat_data,omitempty" mapstructure:"mat_data"`
	EOSData        string `json:"eos_data,omitempty" yaml:"eos_data,omitempty" mapstructure:"eos_data"`
	MatAddData     string `json:"mat_add_data,omitempty" yaml:"mat_add_data,omitempty" mapstructure:"mat_add_data"`
	MatThermalData string `json:"mat_thermal_data,omitempty" yaml:"mat_thermal_data,omitempty" mapstructure:"mat_thermal_data"`

	App      []string `json:"app,omitempty" yaml:"app,omitempty" mapstructure:"app"`
	URL      string   `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
	Ref      string   `json:"ref,omitempty" yaml:"ref,omitempty" mapstructure:"ref"`
	Units    string   `json:"units,omitempty" yaml:"units,omitempty" mapstructure:"units"`
	Comments string   `json:"comments,omitempty" yaml:"comments,omitempty" mapstructure:"comments"`
}

// CardProperties holds the leading numeric fields of a material card's first data line.
// Each field is nil when the card does not carry a parseable value at that position.
type CardProperties struct {
	MID  *int     `json:"mid,omitempty" yaml:"mid,omitempty"`
	RO   *float64 `json:"ro,omitempty" yaml:"ro,omitempty"`     // Density
	E    *float64 `json:"e,omitempty" yaml:"e,omitempty"`       // Young's modulus
	PR   *float64 `json:"pr,omitempty" yaml:"pr,omitempty"`     // Poisson's ratio
	SIGY *float64 `json:"sigy,omitempty" yaml:"sigy,omitempty"` // Yield stress
}

// Origin locates a record in the source data
type Origin struct {
	File     string     `json:"file" yaml:"file"`
	Position int        `json:"position" yaml:"position"` // 0-based index within the file
	Modified *time.Time `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// NormalizedRecord is the resolved, search-ready form of one RawMaterialEntry
type NormalizedRecord struct {
	ID string `json:"id" yaml:"id"`

	MaterialTitle      string         `json:"material_title" yaml:"material_title"`
	MaterialCode       string         `json:"material_code" yaml:"material_code"`
	MaterialHeading    string         `json:"material_heading,omitempty" yaml:"material_heading,omitempty"` // Label line under a *_TITLE keyword
	MaterialProperties CardProperties `json:"material_properties" yaml:"material_properties"`

	EOSTitle string `json:"eos_title" yaml:"eos_title"`
	EOSCode  string `json:"eos_code" yaml:"eos_code"`

	AdditionalPropertyTitle string `json:"additional_property_title" yaml:"additional_property_title"`
	ThermalPropertyTitle    string `json:"thermal_property_title" yaml:"thermal_property_title"`
	ThermalPropertyCode     string `json:"thermal_property_code" yaml:"thermal_property_code"`

	SearchTokens []string `json:"search_tokens" yaml:"search_tokens"` // Material, additional and thermal titles; never EOS
	Applications []string `json:"applications" yaml:"applications"`

	Origin Origin            `json:"origin" yaml:"origin"`
	Raw    *RawMaterialEntry `json:"raw,omitempty" yaml:"raw,omitempty"` // Detail payload, not used for search
}

// HasEOS reports whether the record references an equation of state
func (r *NormalizedRecord) HasEOS() bool {
	return IsResolved(r.EOSTitle)
}

// ManifestEntry is one source file listed in the manifest
type ManifestEntry struct {
	Filename string     `json:"filename" yaml:"filename"`
	Modified *time.Time `json:"modified,omitempty" yaml:"modified,omitempty"`
}
