package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ppiankov/matmap/internal/model"
)

// Issue is one validation finding. Entry is -1 for file-level issues; Line
// is 0 when unknown.
type Issue struct {
	File    string `json:"file,omitempty" yaml:"file,omitempty"`
	Entry   int    `json:"entry" yaml:"entry"`
	Line    int    `json:"line,omitempty" yaml:"line,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	var b strings.Builder
	if i.File != "" {
		b.WriteString(i.File)
	}
	if i.Entry >= 0 {
		fmt.Fprintf(&b, " material #%d", i.Entry+1)
	}
	if i.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", i.Line)
	}
	b.WriteString(": ")
	b.WriteString(i.Message)
	return strings.TrimSpace(b.String())
}

// ValidateEntry checks the fields every material record should carry.
// The loader does not act on the result.
func ValidateEntry(entry *model.RawMaterialEntry) []Issue {
	if entry == nil {
		return []Issue{{Entry: -1, Message: "entry is empty"}}
	}

	var issues []Issue
	if len(entry.App) == 0 {
		issues = append(issues, Issue{Message: "missing required field 'app' (must be a non-empty array)"})
	}
	if blank(entry.Ref) && blank(entry.URL) {
		issues = append(issues, Issue{Message: "missing reference: need at least one of 'ref' or 'url'"})
	}
	if blank(entry.MatData) && blank(entry.EOSData) {
		issues = append(issues, Issue{Message: "missing material data: need at least one of 'mat_data' or 'eos_data'"})
	}
	return issues
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateFile decodes a source file in the given format and validates each
// material in it. It returns the issues and the number of material entries.
func ValidateFile(name string, format Format, data []byte) ([]Issue, int) {
	entries, err := DecodeSource(format, data)
	if err != nil {
		issue := Issue{File: name, Entry: -1, Message: err.Error()}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			issue.Line, _ = decodeErr.Position()
		}
		return []Issue{issue}, 0
	}
	if len(entries) == 0 {
		return []Issue{{File: name, Entry: -1, Message: "no materials in file"}}, 0
	}

	var sections []int
	if format == FormatTOML {
		sections = materialSections(data)
	}

	var issues []Issue
	for _, se := range entries {
		line := 0
		if se.Position < len(sections) {
			line = sections[se.Position]
		}

		if se.Entry == nil {
			issues = append(issues, Issue{File: name, Entry: se.Position, Line: line, Message: se.Err.Error()})
			continue
		}
		for _, issue := range ValidateEntry(se.Entry) {
			issue.File = name
			issue.Entry = se.Position
			issue.Line = line
			issues = append(issues, issue)
		}
	}
	return issues, len(entries)
}

// materialSections returns the 1-based line of each [[material]] header
func materialSections(data []byte) []int {
	var lines []int
	for i, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "[["+materialKey+"]]" {
			lines = append(lines, i+1)
		}
	}
	return lines
}
