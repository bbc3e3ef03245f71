// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grades reads the grades export of a learning platform and
// relates it to the extraction records of the same batch.
//
// The export is a CSV whose first row names the columns: four fixed
// columns (group, repository, tutor, criterion label), then one column
// per rubric criterion, each optionally followed by a "<criterion>
// Comments" column, then the total and feedback columns. Before the group
// rows come a points row and a description row, marked in the fourth
// column. Spanish and English labels are both accepted.
package grades

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// ErrMalformedCSV is returned when the export lacks the expected rows.
var ErrMalformedCSV = errors.New("malformed grades csv")

// fixedColumns is the number of leading columns before the criteria.
const fixedColumns = 4

var (
	pointsLabels      = []string{"Puntos", "Points"}
	descriptionLabels = []string{"Descripción", "Description"}
	groupPrefixes     = []string{"grupo", "group"}
	commentSuffixes   = []string{"Comentarios", "Comments"}
	trailingHeaders   = []string{"Puntos totales", "Total points", "Retroalimentación", "Feedback"}
)

// criterionColumn locates one criterion in the header row.
type criterionColumn struct {
	name        string
	index       int
	hasComments bool
}

// Read parses the grades export at path.
func Read(path string) (*types.BatchGrades, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening grades csv: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse parses a grades export.
func Parse(r io.Reader) (*types.BatchGrades, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading grades csv: %w", err)
	}
	if len(rows) < 4 {
		return nil, fmt.Errorf("%w: %d rows, want at least 4", ErrMalformedCSV, len(rows))
	}

	headers := rows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	criteria := identifyCriteria(headers)

	var pointsRow, descRow []string
	groupStart := -1
	for i, row := range rows[1:] {
		switch {
		case len(row) > 3 && oneOf(row[3], pointsLabels):
			pointsRow = row
		case len(row) > 3 && oneOf(row[3], descriptionLabels):
			descRow = row
		case len(row) > 0 && isGroupID(row[0]):
			groupStart = i + 1
		}
		if groupStart >= 0 {
			break
		}
	}

	switch {
	case pointsRow == nil:
		return nil, fmt.Errorf("%w: no points row", ErrMalformedCSV)
	case descRow == nil:
		return nil, fmt.Errorf("%w: no description row", ErrMalformedCSV)
	case len(criteria) == 0:
		return nil, fmt.Errorf("%w: no criterion columns in header", ErrMalformedCSV)
	}

	g := &types.BatchGrades{}
	for _, c := range criteria {
		maxPoints := parseDecimal(cell(pointsRow, c.index))
		g.Criteria = append(g.Criteria, types.RubricCriterion{
			Name:        c.name,
			MaxPoints:   maxPoints,
			Description: strings.TrimSpace(cell(descRow, c.index)),
			HasComments: c.hasComments,
		})
		g.PossiblePoints += maxPoints
	}

	if groupStart < 0 {
		return g, nil
	}
	for _, row := range rows[groupStart:] {
		if len(row) < fixedColumns || !isGroupID(row[0]) {
			continue
		}
		grp := types.GroupGrade{
			GroupID:    strings.TrimSpace(row[0]),
			Repository: strings.TrimSpace(row[1]),
			Tutor:      strings.TrimSpace(row[2]),
			Scores:     make(map[string]float64),
			Comments:   make(map[string]string),
		}
		for _, c := range criteria {
			if c.index < len(row) {
				grp.Scores[c.name] = parseDecimal(row[c.index])
			}
			if c.hasComments && c.index+1 < len(row) {
				if comment := strings.TrimSpace(row[c.index+1]); comment != "" {
					grp.Comments[c.name] = comment
				}
			}
		}
		if len(row) >= len(headers)-1 && len(headers) >= 2 {
			grp.TotalPoints = parseDecimal(row[len(headers)-2])
		}
		if len(row) >= len(headers) && len(headers) >= 1 {
			grp.Feedback = strings.TrimSpace(row[len(headers)-1])
		}
		g.Groups = append(g.Groups, grp)
	}
	return g, nil
}

// identifyCriteria walks the header row after the fixed columns until the
// trailing total/feedback columns.
func identifyCriteria(headers []string) []criterionColumn {
	var out []criterionColumn
	for i := fixedColumns; i < len(headers); {
		h := strings.TrimSpace(headers[i])
		if h == "" || oneOf(h, trailingHeaders) {
			break
		}
		if isCommentHeader(h) {
			i++
			continue
		}

		c := criterionColumn{name: h, index: i}
		if i+1 < len(headers) {
			next := strings.TrimSpace(headers[i+1])
			for _, suffix := range commentSuffixes {
				if next == h+" "+suffix {
					c.hasComments = true
				}
			}
		}
		out = append(out, c)
		if c.hasComments {
			i += 2
		} else {
			i++
		}
	}
	return out
}

func isCommentHeader(h string) bool {
	for _, suffix := range commentSuffixes {
		if strings.HasSuffix(h, suffix) {
			return true
		}
	}
	return false
}

func isGroupID(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, p := range groupPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func oneOf(s string, options []string) bool {
	s = strings.TrimSpace(s)
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return true
		}
	}
	return false
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// parseDecimal reads a number that may use a decimal comma. Blank or
// unparseable cells count as zero.
func parseDecimal(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}
