package engine

import (
	"math"

	"github.com/opensource-finance/shieldaml/internal/domain"
)

// Prediction is the aggregated output of the tree ensemble.
type Prediction struct {
	Score      int
	RiskLevel  domain.RiskLevel
	TreeScores map[string]int
}

// predict runs every tree, combines the unrounded clamped tree scores by
// weight, clamps the sum to 100 and rounds once to an integer. Rounding is
// half away from zero (math.Round); per-tree scores are rounded the same
// way for reporting only; the weighted sum uses the unrounded values.
func predict(f FeatureSet) Prediction {
	treeScores := make(map[string]int, len(ensembleTrees))
	weighted := 0.0

	for _, t := range ensembleTrees {
		raw := t.score(f)
		weighted += raw * t.weight
		treeScores[t.name] = int(math.Round(raw))
	}

	final := int(math.Round(min(weighted, 100)))

	return Prediction{
		Score:      final,
		RiskLevel:  domain.RiskLevelForScore(final),
		TreeScores: treeScores,
	}
}
