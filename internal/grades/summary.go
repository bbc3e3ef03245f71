// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grades

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

var summaryTmpl = template.Must(template.New("grades-summary").Parse(`# Grades Summary - {{.Batch}}
{{with .Stats}}
## Overall Statistics

- **Total groups**: {{.TotalGroups}}
- **Graded groups**: {{.GradedGroups}}
- **Mean**: {{printf "%.2f" .Mean}} / {{printf "%g" .PossiblePoints}}
- **Highest**: {{printf "%.2f" .Max}}
- **Lowest**: {{printf "%.2f" .Min}}
{{end}}
## Rubric Criteria

| Criterion | Max Points |
|-----------|------------|
{{range .Criteria}}| {{.Name}} | {{printf "%g" .MaxPoints}} |
{{end}}| **TOTAL** | **{{printf "%g" .PossiblePoints}}** |

## Grade Distribution

| Group | Tutor | Total Points |
|-------|-------|--------------|
{{range .Ranked}}| {{.GroupID}} | {{.Tutor}} | {{printf "%.2f" .Points}} ({{printf "%.1f" .Percent}}%) |
{{end}}
## Performance by Criterion
{{range .PerCriterion}}
### {{.Name}}

- Mean: {{printf "%.2f" .Mean}} / {{printf "%g" .MaxPoints}} ({{printf "%.1f" .Percent}}%)
- Groups graded: {{.Count}}
{{end}}`))

type summaryView struct {
	Batch          string
	Stats          *types.GradeStats
	Criteria       []types.RubricCriterion
	PossiblePoints float64
	Ranked         []rankedGroup
	PerCriterion   []criterionPerformance
}

type rankedGroup struct {
	GroupID string
	Tutor   string
	Points  float64
	Percent float64
}

type criterionPerformance struct {
	Name      string
	MaxPoints float64
	Mean      float64
	Percent   float64
	Count     int
}

// SummaryMarkdown renders grade statistics, the rubric, the ranked grade
// distribution and per-criterion performance. Ungraded groups and zero
// scores are left out of the distribution and averages.
func SummaryMarkdown(g *types.BatchGrades, batch string) (string, error) {
	view := summaryView{
		Batch:          batch,
		Criteria:       g.Criteria,
		PossiblePoints: g.PossiblePoints,
	}
	if stats, ok := g.Stats(); ok {
		view.Stats = &stats
	}

	for _, grp := range g.Groups {
		if grp.TotalPoints <= 0 {
			continue
		}
		view.Ranked = append(view.Ranked, rankedGroup{
			GroupID: grp.GroupID,
			Tutor:   grp.Tutor,
			Points:  grp.TotalPoints,
			Percent: g.Percent(grp.TotalPoints),
		})
	}
	sort.SliceStable(view.Ranked, func(i, j int) bool { return view.Ranked[i].Points > view.Ranked[j].Points })

	for _, c := range g.Criteria {
		var sum float64
		var n int
		for _, grp := range g.Groups {
			if s := grp.Scores[c.Name]; s > 0 {
				sum += s
				n++
			}
		}
		if n == 0 {
			continue
		}
		perf := criterionPerformance{Name: c.Name, MaxPoints: c.MaxPoints, Mean: sum / float64(n), Count: n}
		if c.MaxPoints > 0 {
			perf.Percent = perf.Mean / c.MaxPoints * 100
		}
		view.PerCriterion = append(view.PerCriterion, perf)
	}

	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("rendering grades summary: %w", err)
	}
	return buf.String(), nil
}
