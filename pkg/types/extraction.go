// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// MetadataKey is the reserved key under which the extraction stage stores
// provenance inside each record.
const MetadataKey = "_metadata"

// ExtractionRecordSuffix names per-project record files:
// <project-id>_extraction.json.
const ExtractionRecordSuffix = "_extraction.json"

// ExtractionRecord is the structured result of analyzing one project
// document. Its fields are whatever JSON object the model returned; only
// the MetadataKey entry is owned by this program.
type ExtractionRecord map[string]any

// RecordMetadata is the provenance attached to every ExtractionRecord.
type RecordMetadata struct {
	ProjectID       string `json:"project_id"`
	SourceFile      string `json:"source_file"`
	Model           string `json:"model"`
	EstimatedTokens int    `json:"estimated_tokens"`
}

// SetMetadata stores m under MetadataKey in the same shape a decoded
// record carries it.
func (r ExtractionRecord) SetMetadata(m RecordMetadata) {
	r[MetadataKey] = map[string]any{
		"project_id":       m.ProjectID,
		"source_file":      m.SourceFile,
		"model":            m.Model,
		"estimated_tokens": m.EstimatedTokens,
	}
}

// ProjectID returns the project identifier stored in the record metadata,
// or "" when the record carries none.
func (r ExtractionRecord) ProjectID() string {
	meta, ok := r[MetadataKey].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := meta["project_id"].(string)
	return id
}

// Domain returns metadata.domain as reported by the model, or "N/A".
func (r ExtractionRecord) Domain() string {
	meta, ok := r["metadata"].(map[string]any)
	if !ok {
		return "N/A"
	}
	if d, ok := meta["domain"].(string); ok && d != "" {
		return d
	}
	return "N/A"
}

// StringList returns the string elements of the list stored at key.
// Non-string elements are skipped.
func (r ExtractionRecord) StringList(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// DecisionCategory groups flattened decision rows.
type DecisionCategory string

const (
	CategoryTechnical DecisionCategory = "Technical"
	CategoryBusiness  DecisionCategory = "Business"
	CategoryRisk      DecisionCategory = "Risk"
)

// DecisionEntry is one row of the flat decision table.
type DecisionEntry struct {
	Project  string           `json:"project"`
	Domain   string           `json:"domain"`
	Category DecisionCategory `json:"category"`
	Type     string           `json:"type"`
	Decision string           `json:"decision"`
}

// ConsolidatedAnalysis aggregates every extraction record of a batch. It
// deliberately carries no timestamps: the same records and the same model
// answer always serialize to the same bytes.
type ConsolidatedAnalysis struct {
	Batch        string          `json:"batch"`
	ProjectCount int             `json:"project_count"`
	Projects     []string        `json:"projects"`
	Patterns     json.RawMessage `json:"patterns"`
	Decisions    []DecisionEntry `json:"decisions"`
}
