package analytics

import (
	"math"

	"github.com/okian/flowsense/internal/domain/model"
)

// ScoreIrregularity maps a cycle length variance onto [0,1] and a tier.
func ScoreIrregularity(variance float64, cal Calibration) model.Irregularity {
	if math.IsNaN(variance) || variance <= 0 || cal.IrregularityNormalizer <= 0 {
		return model.Irregularity{Score: 0, Tier: model.TierLow}
	}

	score := math.Min(variance/cal.IrregularityNormalizer, 1.0)
	tier := model.TierLow
	switch {
	case score > cal.IrregularityHighTier:
		tier = model.TierHigh
	case score > cal.IrregularityMediumTier:
		tier = model.TierMedium
	}
	return model.Irregularity{Score: score, Tier: tier}
}
