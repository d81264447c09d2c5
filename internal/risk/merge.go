package risk

import (
	"math"
	"time"
)

// aiAdvisory is recommended when the AI score alone exceeds 50.
const aiAdvisory = "Consider alternative routes based on AI analysis"

// Merge combines the traditional and AI assessments for a route.
// The overall score is the mean of the two; warnings are the
// deduplicated union; recommendations carry over from the traditional
// assessment, plus the advisory when the AI score exceeds 50.
func Merge(routeID string, traditional Assessment, ai Summary, at time.Time) Combined {
	overall := int(math.Round(float64(traditional.Score+ai.Score) / 2))

	recommendations := append([]string{}, traditional.Recommendations...)
	if ai.Score > 50 {
		recommendations = append(recommendations, aiAdvisory)
	}

	return Combined{
		RouteID:         routeID,
		Traditional:     traditional,
		AI:              ai,
		Overall:         overall,
		Level:           LevelFor(overall),
		Warnings:        dedupe(traditional.Warnings, ai.Warnings),
		Recommendations: recommendations,
		AssessedAt:      at,
	}
}

// dedupe unions warning lists preserving first-seen order.
func dedupe(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, w := range list {
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	return out
}
