// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RubricCriterion is one graded criterion of the grades export.
type RubricCriterion struct {
	Name        string  `json:"name" yaml:"name"`
	MaxPoints   float64 `json:"max_points" yaml:"max_points"`
	Description string  `json:"description" yaml:"description"`
	HasComments bool    `json:"has_comments" yaml:"has_comments"`
}

// GroupGrade is the grade a tutor assigned to one project group.
type GroupGrade struct {
	GroupID     string             `json:"group_id" yaml:"group_id"`
	Repository  string             `json:"repository" yaml:"repository"`
	Tutor       string             `json:"tutor" yaml:"tutor"`
	Scores      map[string]float64 `json:"scores" yaml:"scores"`
	Comments    map[string]string  `json:"comments" yaml:"comments"`
	TotalPoints float64            `json:"total_points" yaml:"total_points"`
	Feedback    string             `json:"feedback" yaml:"feedback"`
}

// BatchGrades holds the complete grades export of one batch.
type BatchGrades struct {
	Criteria       []RubricCriterion `json:"criteria" yaml:"criteria"`
	Groups         []GroupGrade      `json:"groups" yaml:"groups"`
	PossiblePoints float64           `json:"possible_points" yaml:"possible_points"`
}

// Group returns the grade for groupID, or nil.
func (g *BatchGrades) Group(groupID string) *GroupGrade {
	for i := range g.Groups {
		if g.Groups[i].GroupID == groupID {
			return &g.Groups[i]
		}
	}
	return nil
}

// GradeStats summarizes the graded groups of a batch.
type GradeStats struct {
	TotalGroups    int     `json:"total_groups"`
	GradedGroups   int     `json:"graded_groups"`
	Mean           float64 `json:"mean"`
	Max            float64 `json:"max"`
	Min            float64 `json:"min"`
	PossiblePoints float64 `json:"possible_points"`
}

// Stats computes statistics over groups with a positive total. ok is false
// when no group has been graded.
func (g *BatchGrades) Stats() (stats GradeStats, ok bool) {
	var sum float64
	first := true
	for _, grp := range g.Groups {
		if grp.TotalPoints <= 0 {
			continue
		}
		stats.GradedGroups++
		sum += grp.TotalPoints
		if first || grp.TotalPoints > stats.Max {
			stats.Max = grp.TotalPoints
		}
		if first || grp.TotalPoints < stats.Min {
			stats.Min = grp.TotalPoints
		}
		first = false
	}
	if stats.GradedGroups == 0 {
		return GradeStats{}, false
	}
	stats.TotalGroups = len(g.Groups)
	stats.Mean = sum / float64(stats.GradedGroups)
	stats.PossiblePoints = g.PossiblePoints
	return stats, true
}

// Percent returns points as a percentage of the batch's possible points.
func (g *BatchGrades) Percent(points float64) float64 {
	if g.PossiblePoints <= 0 {
		return 0
	}
	return points / g.PossiblePoints * 100
}
