package analytics

import (
	"fmt"
	"sort"

	"github.com/okian/flowsense/internal/domain/model"
)

// Findings is everything the rule table can key on.
type Findings struct {
	Stats        model.CycleStats
	Irregularity model.Irregularity
	Trend        model.CycleTrend
	Anomalies    []model.Anomaly
	Health       model.HealthScoreResult
	Predictions  []model.Prediction
}

// Rule is one row of the recommendation table.
type Rule struct {
	ID       string
	Priority model.Priority
	Category string
	Text     string
	Match    func(Findings) bool
}

// Recommender maps findings to ranked recommendations. Rules are
// independent; no rule suppresses another.
type Recommender struct {
	rules []Rule
}

// NewRecommender creates a Recommender over rules, or over DefaultRules(cal)
// when rules is empty.
func NewRecommender(cal Calibration, rules ...Rule) *Recommender {
	if len(rules) == 0 {
		rules = DefaultRules(cal)
	}
	return &Recommender{rules: rules}
}

// Recommend evaluates every rule and returns the matches ranked by priority,
// then table order. Only exact duplicate texts are collapsed.
func (r *Recommender) Recommend(f Findings) []model.Recommendation {
	out := make([]model.Recommendation, 0)
	seen := make(map[string]struct{})
	for _, rule := range r.rules {
		if rule.Match == nil || !rule.Match(f) {
			continue
		}
		if _, dup := seen[rule.Text]; dup {
			continue
		}
		seen[rule.Text] = struct{}{}
		out = append(out, model.Recommendation{
			Rule:     rule.ID,
			Text:     rule.Text,
			Priority: rule.Priority,
			Category: rule.Category,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})
	return out
}

// Recommendation categories.
const (
	CategoryCycle       = "cycle"
	CategoryBiometrics  = "biometrics"
	CategoryWellbeing   = "wellbeing"
	CategoryActivity    = "activity"
	CategoryHeart       = "heart"
	CategoryPredictions = "predictions"
	CategoryData        = "data"
)

// lowConfidence is the next-period confidence under which predictions are
// called out as uncertain.
const lowConfidence = 0.5

// DefaultRules returns the stock rule table.
func DefaultRules(cal Calibration) []Rule {
	return []Rule{
		{
			ID: "irregularity_high", Priority: model.PriorityHigh, Category: CategoryCycle,
			Text:  "Your cycle lengths vary a lot. Consider discussing irregular cycles with a healthcare provider.",
			Match: func(f Findings) bool { return f.Irregularity.Tier == model.TierHigh },
		},
		{
			ID: "irregularity_medium", Priority: model.PriorityMedium, Category: CategoryCycle,
			Text:  "Your cycle length varies moderately. Keep logging each period to sharpen predictions.",
			Match: func(f Findings) bool { return f.Irregularity.Tier == model.TierMedium },
		},
		{
			ID: "insufficient_history", Priority: model.PriorityLow, Category: CategoryData,
			Text: fmt.Sprintf("Log at least %d complete cycles to unlock reliable predictions.", model.MinReliableCycles),
			Match: func(f Findings) bool { return !f.Stats.Reliable() },
		},
		{
			ID: "anomaly_high", Priority: model.PriorityHigh, Category: CategoryBiometrics,
			Text:  "Some readings were far outside your usual range. Check your device fit and talk to a professional if it persists.",
			Match: func(f Findings) bool { return hasSeverity(f.Anomalies, model.SeverityHigh) },
		},
		{
			ID: "anomaly_medium", Priority: model.PriorityMedium, Category: CategoryBiometrics,
			Text:  "A few readings were unusual for you. Keep an eye on them over the coming days.",
			Match: func(f Findings) bool { return hasSeverity(f.Anomalies, model.SeverityMedium) },
		},
		{
			ID: "heart_rate_anomaly", Priority: model.PriorityMedium, Category: CategoryHeart,
			Text:  "Your heart rate showed unusual readings. Rest, hydrate and measure again at a calm moment.",
			Match: func(f Findings) bool { return hasType(f.Anomalies, model.HeartRate, model.RestingHeartRate) },
		},
		{
			ID: "score_poor", Priority: model.PriorityHigh, Category: CategoryWellbeing,
			Text:  "Your overall wellbeing score is low. Small daily changes in activity and rest can help.",
			Match: scoreIn(model.CategoryPoor),
		},
		{
			ID: "score_fair", Priority: model.PriorityMedium, Category: CategoryWellbeing,
			Text:  "Your wellbeing score is fair. A little more daily movement could lift it.",
			Match: scoreIn(model.CategoryFair),
		},
		{
			ID: "score_excellent", Priority: model.PriorityLow, Category: CategoryWellbeing,
			Text:  "Your wellbeing indicators look excellent. Keep it up.",
			Match: scoreIn(model.CategoryExcellent),
		},
		{
			ID: "low_activity", Priority: model.PriorityMedium, Category: CategoryActivity,
			Text: fmt.Sprintf("You are averaging under half of your %.0f daily step goal. Try adding a short walk.", cal.DailyStepTarget),
			Match: func(f Findings) bool {
				a, ok := f.Health.Factor(FactorActivity)
				return ok && a.Points < a.MaxPoints/2
			},
		},
		{
			ID: "heart_rate_out_of_range", Priority: model.PriorityMedium, Category: CategoryHeart,
			Text: fmt.Sprintf("Your average heart rate sits outside the typical %.0f to %.0f bpm range.", cal.HeartRateMin, cal.HeartRateMax),
			Match: func(f Findings) bool {
				hr, ok := f.Health.Factor(FactorHeartRate)
				return ok && (hr.Value < cal.HeartRateMin || hr.Value > cal.HeartRateMax)
			},
		},
		{
			ID: "low_confidence", Priority: model.PriorityLow, Category: CategoryPredictions,
			Text: "Predictions are uncertain because your cycle length varies. Consistent logging will improve them.",
			Match: func(f Findings) bool {
				for _, p := range f.Predictions {
					if p.Kind == model.KindNextPeriod && p.Sufficient && p.Confidence < lowConfidence {
						return true
					}
				}
				return false
			},
		},
		{
			ID: "trend_lengthening", Priority: model.PriorityLow, Category: CategoryCycle,
			Text:  "Your cycles have been getting longer recently.",
			Match: func(f Findings) bool { return f.Trend.Direction == model.TrendLengthening },
		},
		{
			ID: "trend_shortening", Priority: model.PriorityLow, Category: CategoryCycle,
			Text:  "Your cycles have been getting shorter recently.",
			Match: func(f Findings) bool { return f.Trend.Direction == model.TrendShortening },
		},
		{
			ID: "missing_biometrics", Priority: model.PriorityLow, Category: CategoryData,
			Text:  "Connect a wearable or log heart rate and steps to receive a wellbeing score.",
			Match: func(f Findings) bool { return len(f.Health.Factors) == 0 },
		},
	}
}

// scoreIn matches a score band, but only when at least one factor was
// evaluated; a missing score is not a poor one.
func scoreIn(c model.Category) func(Findings) bool {
	return func(f Findings) bool {
		return len(f.Health.Factors) > 0 && model.CategoryForScore(f.Health.Score) == c
	}
}

func hasSeverity(anomalies []model.Anomaly, s model.Severity) bool {
	for _, a := range anomalies {
		if a.Severity == s {
			return true
		}
	}
	return false
}

func hasType(anomalies []model.Anomaly, types ...model.BiometricType) bool {
	for _, a := range anomalies {
		for _, t := range types {
			if a.Type == t {
				return true
			}
		}
	}
	return false
}
