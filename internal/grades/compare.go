// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grades

import (
	"math"
	"sort"

	"github.com/pdiddy/submission-analyzer/pkg/types"
)

// significantChange is the percentage-point difference beyond which a
// group counts as improved or declined.
const significantChange = 5.0

// Delta is one group's normalized grade in two batches.
type Delta struct {
	GroupID       string  `json:"group_id"`
	FirstPoints   float64 `json:"first_points"`
	SecondPoints  float64 `json:"second_points"`
	FirstPercent  float64 `json:"first_percent"`
	SecondPercent float64 `json:"second_percent"`
	Difference    float64 `json:"difference"`
}

// Comparison classifies the groups present in both batches.
type Comparison struct {
	Common   []string `json:"common_groups"`
	Improved []Delta  `json:"improved"`
	Declined []Delta  `json:"declined"`
	Stable   []Delta  `json:"stable"`
}

// Compare normalizes each common group's total against its batch's
// possible points and classifies the change. Improved is ordered by
// largest gain, Declined by largest loss, Stable by group id.
func Compare(first, second *types.BatchGrades) Comparison {
	cmp := Comparison{
		Common:   []string{},
		Improved: []Delta{},
		Declined: []Delta{},
		Stable:   []Delta{},
	}

	for _, g1 := range first.Groups {
		g2 := second.Group(g1.GroupID)
		if g2 == nil {
			continue
		}
		cmp.Common = append(cmp.Common, g1.GroupID)

		p1 := first.Percent(g1.TotalPoints)
		p2 := second.Percent(g2.TotalPoints)
		d := Delta{
			GroupID:       g1.GroupID,
			FirstPoints:   g1.TotalPoints,
			SecondPoints:  g2.TotalPoints,
			FirstPercent:  round2(p1),
			SecondPercent: round2(p2),
			Difference:    round2(p2 - p1),
		}
		switch {
		case p2-p1 > significantChange:
			cmp.Improved = append(cmp.Improved, d)
		case p2-p1 < -significantChange:
			cmp.Declined = append(cmp.Declined, d)
		default:
			cmp.Stable = append(cmp.Stable, d)
		}
	}

	sort.Strings(cmp.Common)
	sort.SliceStable(cmp.Improved, func(i, j int) bool { return cmp.Improved[i].Difference > cmp.Improved[j].Difference })
	sort.SliceStable(cmp.Declined, func(i, j int) bool { return cmp.Declined[i].Difference < cmp.Declined[j].Difference })
	sort.SliceStable(cmp.Stable, func(i, j int) bool { return cmp.Stable[i].GroupID < cmp.Stable[j].GroupID })
	return cmp
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
