package card

import (
	"testing"

	"github.com/ppiankov/matmap/internal/model"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", model.Unresolved},
		{"whitespace only", "  \n\t\n", model.Unresolved},
		{"suffix stripped", "FOO_TITLE\nrest", "FOO"},
		{"whitespace trimmed", "  FOO  \nrest", "FOO"},
		{"trimmed before suffix check", "  FOO_TITLE  \nrest", "FOO"},
		{"no suffix", "FOO\nrest", "FOO"},
		{"single line", "*MAT_PIECEWISE_LINEAR_PLASTICITY", "*MAT_PIECEWISE_LINEAR_PLASTICITY"},
		{"keyword card", "*MAT_ELASTIC_TITLE\nSteel\n200000 0.3", "*MAT_ELASTIC"},
		{"suffix only once", "A_TITLE_TITLE", "A_TITLE"},
		{"suffix alone", "_TITLE\nx", model.Unresolved},
		{"leading blank lines", "\n\n*EOS_GRUNEISEN\n", "*EOS_GRUNEISEN"},
		{"crlf", "*MAT_RIGID_TITLE\r\nplate\r\n", "*MAT_RIGID"},
		{"suffix in middle kept", "*MAT_TITLED_THING", "*MAT_TITLED_THING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTitle(tt.text); got != tt.want {
				t.Errorf("ExtractTitle(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestParse_TitledCard(t *testing.T) {
	text := `*MAT_PIECEWISE_LINEAR_PLASTICITY_TITLE
$ comment before heading
DP600 steel
$#     mid        ro         e        pr      sigy
         1   7.85e-9  210000.0       0.3     350.0
         0.0       0.0
*END`

	c := Parse(text)

	if c.Keyword != "*MAT_PIECEWISE_LINEAR_PLASTICITY_TITLE" {
		t.Errorf("Keyword = %q", c.Keyword)
	}
	if c.Title != "*MAT_PIECEWISE_LINEAR_PLASTICITY" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Heading != "DP600 steel" {
		t.Errorf("Heading = %q, want %q", c.Heading, "DP600 steel")
	}
	if len(c.DataLines) != 2 {
		t.Fatalf("expected 2 data lines, got %d: %v", len(c.DataLines), c.DataLines)
	}

	p := c.Properties
	if p.MID == nil || *p.MID != 1 {
		t.Errorf("MID = %v, want 1", p.MID)
	}
	if p.RO == nil || *p.RO != 7.85e-9 {
		t.Errorf("RO = %v, want 7.85e-9", p.RO)
	}
	if p.E == nil || *p.E != 210000.0 {
		t.Errorf("E = %v, want 210000", p.E)
	}
	if p.PR == nil || *p.PR != 0.3 {
		t.Errorf("PR = %v, want 0.3", p.PR)
	}
	if p.SIGY == nil || *p.SIGY != 350.0 {
		t.Errorf("SIGY = %v, want 350", p.SIGY)
	}
}

func TestParse_UntitledCardHasNoHeading(t *testing.T) {
	c := Parse("*MAT_ELASTIC\n1,7.8e-9,200000,0.3")

	if c.Heading != "" {
		t.Errorf("expected no heading, got %q", c.Heading)
	}
	if c.Title != "*MAT_ELASTIC" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.Properties.PR == nil || *c.Properties.PR != 0.3 {
		t.Errorf("comma separated fields not parsed: %+v", c.Properties)
	}
	if c.Properties.SIGY != nil {
		t.Errorf("expected SIGY nil for a four-field line, got %v", *c.Properties.SIGY)
	}
}

func TestParse_NonNumericFields(t *testing.T) {
	c := Parse("*MAT_RIGID_TITLE\nplate\nsteel abc 1e5")

	if c.Properties.MID != nil {
		t.Errorf("expected MID nil for label id, got %d", *c.Properties.MID)
	}
	if c.Properties.RO != nil {
		t.Errorf("expected RO nil, got %v", *c.Properties.RO)
	}
	if c.Properties.E == nil || *c.Properties.E != 1e5 {
		t.Errorf("E = %v, want 1e5", c.Properties.E)
	}
}

func TestParse_Empty(t *testing.T) {
	c := Parse("")
	if c.Title != model.Unresolved {
		t.Errorf("Title = %q, want sentinel", c.Title)
	}
	if c.Keyword != "" || c.Heading != "" || len(c.DataLines) != 0 {
		t.Errorf("expected zero card, got %+v", c)
	}
}

func TestExtractTitle_MatchesParse(t *testing.T) {
	inputs := []string{"", "X_TITLE\nlabel", "  *EOS_LINEAR_POLYNOMIAL\n1 2 3", "\n\nY"}
	for _, in := range inputs {
		if a, b := ExtractTitle(in), Parse(in).Title; a != b {
			t.Errorf("ExtractTitle(%q)=%q but Parse().Title=%q", in, a, b)
		}
	}
}
