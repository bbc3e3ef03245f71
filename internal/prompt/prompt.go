// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the model prompts for each analysis phase.
// Every function is a pure template substitution.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// extractionTmpl asks for one project's structured record. The JSON keys
// listed here are the ones the consolidation and grades phases read.
var extractionTmpl = template.Must(template.New("extraction").Parse(`You are an expert reviewer of student projects that build applications on large language models.

# ASSIGNMENT CONTEXT

## Assignment Statement
{{.Task}}

## Grading Rubric
{{.Rubric}}

# YOUR TASK

Analyze the following student project and extract structured information as JSON.

## Project Under Review
{{.Project}}

# EXTRACTION INSTRUCTIONS

Produce a JSON object with this structure:

{
  "metadata": {
    "project_name": "string - title or name of the project",
    "domain": "string - application area (legal, corporate, health, education, ...)",
    "problem_statement": "string - concise summary of the problem they address"
  },
  "assignment_compliance": [
    {
      "requirement": "string - what the assignment asked for",
      "approach": "string - how the team answered it",
      "key_decisions": ["specific decisions taken"],
      "quality": "string - high/medium/low"
    }
  ],
  "rubric_evaluation": [
    {
      "criterion": "string - rubric criterion",
      "evidence": "string - evidence found in the document",
      "strengths": ["well executed aspects"],
      "weaknesses": ["weak or missing aspects"],
      "estimated_level": "string - excellent/good/fair/insufficient"
    }
  ],
  "technical_decisions": {
    "architecture": "string - proposed architecture (RAG, fine-tuning, ...)",
    "llm_models": ["models mentioned"],
    "technologies": ["technologies and tools"],
    "integrations": ["external systems or data sources"]
  },
  "business_decisions": {
    "target_users": ["user profiles"],
    "success_metrics": ["proposed metrics"],
    "mvp_scope": "string - initial scope",
    "scalability": "string - scalability considerations"
  },
  "identified_risks": [
    {
      "risk": "string - risk description",
      "mitigation": "string - proposed mitigation",
      "category": "string - technical/business/ethical/regulatory"
    }
  ],
  "general_strengths": ["notable strengths of the project"],
  "general_weaknesses": ["weaknesses or gaps"],
  "observations": "string - any other relevant observation"
}

# IMPORTANT

1. Use null or empty arrays for information absent from the document.
2. Be precise and objective.
3. Extract decisions stated in the document; do not invent information.
4. Support every rubric assessment with specific evidence.
5. Output ONLY the JSON object, with no text before or after it.

Generate the JSON now:`))

// consolidationTmpl asks for cross-project patterns over every record.
var consolidationTmpl = template.Must(template.New("consolidation").Parse(`You are an expert analyst of student projects that build applications on large language models, working at the cohort level.

# CONTEXT

## Assignment Statement
{{.Task}}

## Grading Rubric
{{.Rubric}}

## Data From {{.Count}} Analyzed Projects
{{.Records}}

# YOUR TASK

Produce a consolidated analysis of all projects with actionable insights.

# ANALYSIS STRUCTURE

Produce a JSON object with this structure:

{
  "executive_summary": {
    "total_projects": {{.Count}},
    "domains": {"domain": "count"},
    "overall_pattern": "string - high level patterns observed"
  },
  "common_decisions": [
    {
      "decision": "string - decision shared across projects",
      "frequency": "number - projects that took it",
      "percentage": "number - share of the total",
      "category": "string - technical/business/design/risk",
      "examples": ["2-3 specific project examples"]
    }
  ],
  "most_used_technologies": [
    {
      "technology": "string - technology, model or tool",
      "frequency": "number",
      "percentage": "number",
      "typical_use": "string - what it is typically used for"
    }
  ],
  "domain_patterns": [
    {
      "domain": "string - application area",
      "project_count": "number",
      "common_traits": ["shared characteristics"],
      "typical_decisions": ["decisions typical of this domain"]
    }
  ],
  "aggregated_rubric_evaluation": [
    {
      "criterion": "string - rubric criterion",
      "excellent": "number",
      "good": "number",
      "fair": "number",
      "insufficient": "number",
      "recurring_strength": "string - what most projects do well",
      "recurring_weakness": "string - where they commonly fail",
      "recommendation": "string - advice for the next submission"
    }
  ],
  "frequent_gaps": [
    {
      "gap": "string - missing or weak aspect",
      "frequency": "number - affected projects",
      "severity": "string - high/medium/low",
      "rubric_impact": "string - effect on the evaluation",
      "suggestion": "string - how to improve it"
    }
  ],
  "best_practices": [
    {
      "practice": "string - description",
      "example_projects": ["projects that implement it well"],
      "why_notable": "string - why it is a good practice"
    }
  ],
  "most_identified_risks": [
    {
      "risk": "string - kind of risk",
      "frequency": "number",
      "mitigation_approaches": ["distinct mitigation approaches"]
    }
  ],
  "key_insights": ["important, actionable insights for feedback"],
  "general_recommendations": ["recommendations for the next submission"]
}

# IMPORTANT

1. Be quantitative: always include frequencies and percentages.
2. Balance strengths and weaknesses.
3. Prioritize insights that help improve teaching.
4. Map every frequent gap to a rubric criterion.
5. Make recommendations concrete and specific.
6. Output ONLY the JSON object, with no additional text.

Generate the consolidated analysis now:`))

// reportTmpl asks for a prose executive report over a consolidated analysis.
var reportTmpl = template.Must(template.New("report").Parse(`You write clear, actionable executive reports.

# CONSOLIDATED ANALYSIS DATA
{{.Analysis}}

# YOUR TASK

Write an executive report in Markdown for the instructor grading batch "{{.Batch}}". It must be clear, scannable and actionable.

# REPORT STRUCTURE

# Analysis Report - {{.Batch}}

## Executive Summary
(2-3 paragraphs with the most important findings)

## Objective Compliance
(how the projects met the assignment and rubric)

## Common Decisions and Patterns
### Most Frequent Technical Decisions
### Most Frequent Business Decisions
### Patterns by Domain

## Areas for Improvement
### Frequent Gaps
### Recurring Conceptual Errors

## Best Practices Identified

## Analysis by Rubric Criterion

## Key Insights

## Recommendations for the Next Submission

# INSTRUCTIONS

1. Do not use emojis.
2. Use Markdown tables where appropriate.
3. Bold key figures.
4. Be concise but complete, and focus on what is actionable.
5. Keep a professional, friendly tone.
6. Output ONLY the Markdown, with no meta commentary.

Write the report now:`))

// gradesTmpl asks for a narrative comparing grades with the extracted analysis.
var gradesTmpl = template.Must(template.New("grades").Parse(`You are an assistant helping an instructor compare formal grades with an automated analysis of student projects.

# DATA
{{.Data}}

The data contains grade statistics, a per-project correlation between grade percentage and the number of strengths and weaknesses found by the automated analysis, the discrepancies detected, and examples of the best and worst graded projects with tutor comments.

# YOUR TASK

Write a comparative report in Markdown with these sections:

# Grades vs. Automated Analysis - {{.Batch}}

## Summary
## Grade Distribution
## Agreement Between Grades and Analysis
## Discrepancies Worth Reviewing
## What Distinguishes the Best Projects
## Recommendations

# INSTRUCTIONS

1. Do not use emojis.
2. Cite figures from the data; do not invent grades.
3. Output ONLY the Markdown, with no meta commentary.

Write the report now:`))

// Extraction renders the per-project extraction prompt.
func Extraction(task, rubric, project string) (string, error) {
	return render(extractionTmpl, struct {
		Task, Rubric, Project string
	}{task, rubric, project})
}

// Consolidation renders the cross-project prompt over records.
func Consolidation(task, rubric string, records []types.ExtractionRecord) (string, error) {
	data, err := indentJSON(records)
	if err != nil {
		return "", fmt.Errorf("encoding records: %w", err)
	}
	return render(consolidationTmpl, struct {
		Task, Rubric, Records string
		Count                 int
	}{task, rubric, data, len(records)})
}

// Report renders the narrative report prompt for a consolidated analysis.
func Report(a types.ConsolidatedAnalysis) (string, error) {
	data, err := indentJSON(a)
	if err != nil {
		return "", fmt.Errorf("encoding analysis: %w", err)
	}
	return render(reportTmpl, struct {
		Batch, Analysis string
	}{a.Batch, data})
}

// GradesReport renders the grades comparison prompt. data is any
// JSON-encodable value.
func GradesReport(batch string, data any) (string, error) {
	enc, err := indentJSON(data)
	if err != nil {
		return "", fmt.Errorf("encoding grades data: %w", err)
	}
	return render(gradesTmpl, struct {
		Batch, Data string
	}{batch, enc})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// indentJSON encodes v with two-space indentation and without HTML
// escaping. Map keys come out sorted.
func indentJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
