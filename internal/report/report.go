// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders a consolidated analysis as a flat CSV decision
// table and a Markdown executive summary, and owns the atomic file writes
// every stage uses for its artifacts.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// CSVHeader is the column order of the decision table.
var CSVHeader = []string{"Project", "Domain", "Category", "Type", "Decision"}

// WriteCSV writes the header and one row per entry, in order.
func WriteCSV(w io.Writer, entries []types.DecisionEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, e := range entries {
		row := []string{e.Project, e.Domain, string(e.Category), e.Type, e.Decision}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", e.Project, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns the decision table as bytes.
func CSV(entries []types.DecisionEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var markdownTmpl = template.Must(template.New("executive").Parse(`# Executive Report - {{.Batch}}

- **Projects analyzed**: {{.ProjectCount}}
- **Decision entries**: {{.DecisionCount}}

## Projects

{{range .Projects}}- {{.}}
{{end}}{{range .Sections}}
## {{.Title}}
{{if .Paragraph}}
{{.Paragraph}}
{{end}}{{if .Items}}
{{range .Items}}- {{.}}
{{end}}{{end}}{{end}}
## Decisions by Category

| Category | Entries |
|----------|---------|
{{range .Categories}}| {{.Category}} | {{.Count}} |
{{end}}`))

type markdownView struct {
	Batch         string
	ProjectCount  int
	DecisionCount int
	Projects      []string
	Sections      []section
	Categories    []categoryCount
}

type section struct {
	Title     string
	Paragraph string
	Items     []string
}

type categoryCount struct {
	Category types.DecisionCategory
	Count    int
}

// Markdown renders the executive summary. Each top-level key of the
// model's patterns becomes one section, in key order; strings become
// paragraphs, lists become bullets, objects become key: value bullets.
func Markdown(a types.ConsolidatedAnalysis) (string, error) {
	sections, err := patternSections(a.Patterns)
	if err != nil {
		return "", err
	}

	counts := map[types.DecisionCategory]int{}
	for _, d := range a.Decisions {
		counts[d.Category]++
	}
	var cats []categoryCount
	for _, c := range []types.DecisionCategory{types.CategoryTechnical, types.CategoryBusiness, types.CategoryRisk} {
		cats = append(cats, categoryCount{Category: c, Count: counts[c]})
	}

	view := markdownView{
		Batch:         a.Batch,
		ProjectCount:  a.ProjectCount,
		DecisionCount: len(a.Decisions),
		Projects:      a.Projects,
		Sections:      sections,
		Categories:    cats,
	}

	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering executive report: %w", err)
	}
	return buf.String(), nil
}

func patternSections(raw json.RawMessage) ([]section, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding patterns: %w", err)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return []section{renderSection("Patterns", v)}, nil
	}
	var out []section
	for _, k := range sortedKeys(obj) {
		out = append(out, renderSection(title(k), obj[k]))
	}
	return out, nil
}

func renderSection(name string, v any) section {
	s := section{Title: name}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			s.Items = append(s.Items, Inline(item))
		}
	case map[string]any:
		for _, k := range sortedKeys(t) {
			s.Items = append(s.Items, fmt.Sprintf("**%s**: %s", k, Inline(t[k])))
		}
	default:
		s.Paragraph = Inline(v)
	}
	return s
}

// Inline renders a decoded JSON value on a single line: lists are joined
// with ", ", objects become "key: value" pairs, null becomes "N/A".
func Inline(v any) string {
	switch t := v.(type) {
	case nil:
		return "N/A"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "yes"
		}
		return "no"
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, Inline(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		parts := make([]string, 0, len(t))
		for _, k := range sortedKeys(t) {
			parts = append(parts, k+": "+Inline(t[k]))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// title turns a snake_case key into a heading.
func title(key string) string {
	s := strings.TrimSpace(strings.ReplaceAll(key, "_", " "))
	if s == "" {
		return key
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
