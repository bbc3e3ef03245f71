// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grades

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/submission-analyzer/internal/consolidate"
	"github.com/pdiddy/submission-analyzer/internal/model"
	"github.com/pdiddy/submission-analyzer/internal/prompt"
	"github.com/pdiddy/submission-analyzer/internal/report"
	"github.com/pdiddy/submission-analyzer/internal/runlog"
	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// Artifact file names under the grades output directory.
const (
	SummaryFile     = "grades_summary.md"
	EnrichedFile    = "enriched_extractions.json"
	AnalysisFile    = "comparative_analysis.json"
	ComparativeFile = "comparative_report.md"
)

// Keys read from extraction records.
const (
	strengthsKey  = "general_strengths"
	weaknessesKey = "general_weaknesses"
	gradeKey      = "grade"
)

// Thresholds on the grade percentage for flagging a discrepancy.
const (
	highGrade = 80.0
	lowGrade  = 60.0
)

// Discrepancy kinds.
const (
	HighGradeMoreWeaknesses = "high_grade_more_weaknesses"
	LowGradeMoreStrengths   = "low_grade_more_strengths"
)

var groupNumber = regexp.MustCompile(`(?i)(?:grupo|group)[\s_-]?(\d+)`)

// Grade is the grade attached to an enriched record.
type Grade struct {
	GroupID        string             `json:"group_id"`
	Tutor          string             `json:"tutor"`
	TotalPoints    float64            `json:"total_points"`
	PossiblePoints float64            `json:"possible_points"`
	Percent        float64            `json:"percent"`
	Scores         map[string]float64 `json:"scores"`
	Comments       map[string]string  `json:"comments"`
	Feedback       string             `json:"feedback"`
}

// Enriched pairs an extraction record with its group's grade. Grade is
// nil when no group matched.
type Enriched struct {
	Record types.ExtractionRecord
	Grade  *Grade
}

// MarshalJSON writes the record with the grade under the "grade" key.
func (e Enriched) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Record)+1)
	for k, v := range e.Record {
		out[k] = v
	}
	out[gradeKey] = e.Grade
	return json.Marshal(out)
}

// Enrich attaches the matching grade to every record. A group matches when
// its id occurs inside the project id, ignoring case; failing that, a
// "group<N>" number in the project id is looked up as Grupo<NN> or
// Group<NN>.
func Enrich(records []types.ExtractionRecord, g *types.BatchGrades) []Enriched {
	out := make([]Enriched, 0, len(records))
	for _, rec := range records {
		e := Enriched{Record: rec}
		if grp := matchGroup(rec.ProjectID(), g); grp != nil {
			e.Grade = &Grade{
				GroupID:        grp.GroupID,
				Tutor:          grp.Tutor,
				TotalPoints:    grp.TotalPoints,
				PossiblePoints: g.PossiblePoints,
				Percent:        g.Percent(grp.TotalPoints),
				Scores:         grp.Scores,
				Comments:       grp.Comments,
				Feedback:       grp.Feedback,
			}
		}
		out = append(out, e)
	}
	return out
}

func matchGroup(projectID string, g *types.BatchGrades) *types.GroupGrade {
	lower := strings.ToLower(projectID)
	for i := range g.Groups {
		id := strings.ToLower(g.Groups[i].GroupID)
		if id != "" && strings.Contains(lower, id) {
			return &g.Groups[i]
		}
	}

	m := groupNumber.FindStringSubmatch(projectID)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	for _, format := range []string{"Grupo%02d", "Group%02d"} {
		if grp := g.Group(fmt.Sprintf(format, n)); grp != nil {
			return grp
		}
	}
	return nil
}

// Correlation compares the model's assessment of one project with its grade.
type Correlation struct {
	ProjectID  string  `json:"project_id"`
	GroupID    string  `json:"group_id"`
	Percent    float64 `json:"grade_percent"`
	Strengths  int     `json:"strengths"`
	Weaknesses int     `json:"weaknesses"`
	Balance    int     `json:"balance"`
}

// Discrepancy is a correlation whose grade contradicts the balance.
type Discrepancy struct {
	Correlation
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// AnalysisSummary aggregates the correlations.
type AnalysisSummary struct {
	Analyzed      int     `json:"projects_analyzed"`
	MeanPercent   float64 `json:"mean_grade_percent"`
	MeanBalance   float64 `json:"mean_balance"`
	Discrepancies int     `json:"projects_with_discrepancies"`
}

// Analysis is written to comparative_analysis.json.
type Analysis struct {
	Summary       AnalysisSummary `json:"summary"`
	Correlations  []Correlation   `json:"correlations"`
	Discrepancies []Discrepancy   `json:"discrepancies"`
}

// Analyze correlates the strengths/weaknesses balance of every graded
// record with its grade percentage.
func Analyze(enriched []Enriched) Analysis {
	a := Analysis{Correlations: []Correlation{}, Discrepancies: []Discrepancy{}}

	var sumPercent float64
	var sumBalance int
	for _, e := range enriched {
		if e.Grade == nil {
			continue
		}
		s := len(e.Record.StringList(strengthsKey))
		w := len(e.Record.StringList(weaknessesKey))
		c := Correlation{
			ProjectID:  e.Record.ProjectID(),
			GroupID:    e.Grade.GroupID,
			Percent:    round2(e.Grade.Percent),
			Strengths:  s,
			Weaknesses: w,
			Balance:    s - w,
		}
		switch {
		case e.Grade.Percent > highGrade && w > s:
			a.Discrepancies = append(a.Discrepancies, Discrepancy{
				Correlation: c,
				Kind:        HighGradeMoreWeaknesses,
				Description: fmt.Sprintf("High grade (%.1f%%) but more weaknesses (%d) than strengths (%d)", e.Grade.Percent, w, s),
			})
		case e.Grade.Percent < lowGrade && s > w:
			a.Discrepancies = append(a.Discrepancies, Discrepancy{
				Correlation: c,
				Kind:        LowGradeMoreStrengths,
				Description: fmt.Sprintf("Low grade (%.1f%%) but more strengths (%d) than weaknesses (%d)", e.Grade.Percent, s, w),
			})
		}
		a.Correlations = append(a.Correlations, c)
		sumPercent += c.Percent
		sumBalance += c.Balance
	}

	if n := len(a.Correlations); n > 0 {
		a.Summary = AnalysisSummary{
			Analyzed:      n,
			MeanPercent:   sumPercent / float64(n),
			MeanBalance:   float64(sumBalance) / float64(n),
			Discrepancies: len(a.Discrepancies),
		}
	}
	return a
}

// example is one graded project shown to the model in the report prompt.
type example struct {
	ProjectID     string   `json:"project_id"`
	GroupID       string   `json:"group_id"`
	Points        float64  `json:"points"`
	Percent       float64  `json:"percent"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	TutorComments []string `json:"tutor_comments"`
}

type reportData struct {
	Stats    *types.GradeStats `json:"grade_stats"`
	Analysis Analysis          `json:"analysis"`
	Examples []example         `json:"examples"`
}

// examples picks the three best and three worst graded projects.
func examples(enriched []Enriched) []example {
	var graded []Enriched
	for _, e := range enriched {
		if e.Grade != nil {
			graded = append(graded, e)
		}
	}
	sort.SliceStable(graded, func(i, j int) bool { return graded[i].Grade.TotalPoints > graded[j].Grade.TotalPoints })

	picked := graded
	if len(graded) > 6 {
		picked = append(append([]Enriched{}, graded[:3]...), graded[len(graded)-3:]...)
	}

	out := make([]example, 0, len(picked))
	for _, e := range picked {
		out = append(out, example{
			ProjectID:     e.Record.ProjectID(),
			GroupID:       e.Grade.GroupID,
			Points:        e.Grade.TotalPoints,
			Percent:       round2(e.Grade.Percent),
			Strengths:     firstN(e.Record.StringList(strengthsKey), 3),
			Weaknesses:    firstN(e.Record.StringList(weaknessesKey), 3),
			TutorComments: tutorComments(e.Grade.Comments, 2),
		})
	}
	return out
}

func tutorComments(comments map[string]string, n int) []string {
	keys := make([]string, 0, len(comments))
	for k := range comments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := []string{}
	for _, k := range firstN(keys, n) {
		out = append(out, comments[k])
	}
	return out
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	if s == nil {
		return []string{}
	}
	return s
}

// TextRequester obtains a free-text answer. *model.Client implements it.
type TextRequester interface {
	RequestText(ctx context.Context, prompt string, p model.Params) (string, error)
}

// Input is what the grades phase works on.
type Input struct {
	Batch      string
	CSVPath    string
	RecordsDir string
	OutputDir  string
	Params     model.Params

	// Records are used instead of reading RecordsDir when non-nil.
	Records []types.ExtractionRecord
}

// Result describes what the phase produced.
type Result struct {
	Grades   *types.BatchGrades
	Analysis Analysis
	Matched  int
	Files    []string

	// ReportErr is set when the comparative report could not be generated.
	ReportErr error
}

// Run reads the grades export, relates it to the extraction records and
// writes the grades artifacts. A failed comparative report only warns.
func Run(ctx context.Context, req TextRequester, in Input, log model.Logger) (Result, error) {
	if log == nil {
		log = runlog.Discard()
	}

	g, err := Read(in.CSVPath)
	if err != nil {
		return Result{}, err
	}
	log.Info("grades loaded: %d groups, %d criteria", len(g.Groups), len(g.Criteria))

	records := in.Records
	if records == nil {
		if records, err = consolidate.LoadRecords(in.RecordsDir); err != nil {
			return Result{}, err
		}
	}

	res := Result{Grades: g}
	write := func(name string, data []byte) error {
		path := filepath.Join(in.OutputDir, name)
		if err := report.WriteFile(path, data); err != nil {
			return err
		}
		res.Files = append(res.Files, path)
		return nil
	}

	summary, err := SummaryMarkdown(g, in.Batch)
	if err != nil {
		return res, err
	}
	if err := write(SummaryFile, []byte(summary)); err != nil {
		return res, err
	}

	enriched := Enrich(records, g)
	for _, e := range enriched {
		if e.Grade != nil {
			res.Matched++
		} else {
			log.Warn("no grade found for %s", e.Record.ProjectID())
		}
	}
	log.Info("records enriched: %d/%d matched a group", res.Matched, len(enriched))

	data, err := report.EncodeJSON(enriched)
	if err != nil {
		return res, err
	}
	if err := write(EnrichedFile, data); err != nil {
		return res, err
	}

	res.Analysis = Analyze(enriched)
	if data, err = report.EncodeJSON(res.Analysis); err != nil {
		return res, err
	}
	if err := write(AnalysisFile, data); err != nil {
		return res, err
	}

	if err := writeComparative(ctx, req, in, g, enriched, res.Analysis, write); err != nil {
		log.Warn("comparative report skipped: %v", err)
		res.ReportErr = err
	}

	for _, f := range res.Files {
		log.Info("saved %s", f)
	}
	return res, nil
}

func writeComparative(ctx context.Context, req TextRequester, in Input, g *types.BatchGrades,
	enriched []Enriched, a Analysis, write func(string, []byte) error) error {
	if a.Summary.Analyzed == 0 {
		return fmt.Errorf("no graded projects")
	}
	data := reportData{Analysis: a, Examples: examples(enriched)}
	if stats, ok := g.Stats(); ok {
		data.Stats = &stats
	}
	p, err := prompt.GradesReport(in.Batch, data)
	if err != nil {
		return err
	}
	params := in.Params
	params.RequireObject = false
	text, err := req.RequestText(ctx, p, params)
	if err != nil {
		return err
	}
	return write(ComparativeFile, []byte(strings.TrimSpace(text)+"\n"))
}
