// Package card reads LS-DYNA keyword cards stored as raw text in material records.
package card

import (
	"strconv"
	"strings"

	"github.com/ppiankov/matmap/internal/model"
)

const titleSuffix = "_TITLE"

// Card is the parsed form of a keyword card
type Card struct {
	Keyword    string   // First non-empty line, e.g. "*MAT_ELASTIC_TITLE"
	Title      string   // Keyword with the _TITLE suffix removed
	Heading    string   // Label line that follows a *_TITLE keyword
	DataLines  []string // Value lines, without comments, keywords and heading
	Properties model.CardProperties
}

// ExtractTitle returns the dictionary lookup key of a card: its first non-empty
// line, trimmed, with a trailing "_TITLE" removed. Text without any non-empty
// line yields model.Unresolved.
func ExtractTitle(text string) string {
	line, _ := firstLine(splitLines(text))
	return titleOf(line)
}

// Parse splits a card into keyword, heading and data lines
func Parse(text string) Card {
	lines := splitLines(text)
	keyword, idx := firstLine(lines)
	c := Card{
		Keyword: keyword,
		Title:   titleOf(keyword),
	}
	if idx < 0 {
		return c
	}

	expectHeading := strings.HasSuffix(keyword, titleSuffix)
	for _, raw := range lines[idx+1:] {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "$") {
			continue
		}
		if strings.HasPrefix(line, "*") {
			// Next keyword block starts; a card holds a single keyword
			break
		}
		if expectHeading {
			c.Heading = line
			expectHeading = false
			continue
		}
		c.DataLines = append(c.DataLines, line)
	}

	if len(c.DataLines) > 0 {
		c.Properties = parseProperties(c.DataLines[0])
	}
	return c
}

func titleOf(line string) string {
	line = strings.TrimSuffix(line, titleSuffix)
	if line == "" {
		return model.Unresolved
	}
	return line
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// firstLine returns the first non-empty trimmed line and its index, or -1
func firstLine(lines []string) (string, int) {
	for i, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			return t, i
		}
	}
	return "", -1
}

// parseProperties reads mid, ro, e, pr, sigy from a free-format data line
func parseProperties(line string) model.CardProperties {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})

	var p model.CardProperties
	if len(fields) > 0 {
		if v, err := strconv.Atoi(fields[0]); err == nil {
			p.MID = &v
		}
	}
	p.RO = floatAt(fields, 1)
	p.E = floatAt(fields, 2)
	p.PR = floatAt(fields, 3)
	p.SIGY = floatAt(fields, 4)
	return p
}

func floatAt(fields []string, i int) *float64 {
	if i >= len(fields) {
		return nil
	}
	v, err := strconv.ParseFloat(fields[i], 64)
	if err != nil {
		return nil
	}
	return &v
}
