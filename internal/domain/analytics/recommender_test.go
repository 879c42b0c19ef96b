package analytics_test

import (
	"testing"

	"github.com/okian/flowsense/internal/domain/analytics"
	"github.com/okian/flowsense/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ruleIDs(recs []model.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Rule
	}
	return out
}

func TestRecommender(t *testing.T) {
	cal := analytics.DefaultCalibration()
	r := analytics.NewRecommender(cal)
	reliable := model.CycleStats{Count: 6, Mean: 28}

	Convey("Given the default rule table", t, func() {
		Convey("When there is no data at all", func() {
			recs := r.Recommend(analytics.Findings{})

			Convey("Then only data hints are produced", func() {
				So(ruleIDs(recs), ShouldResemble, []string{"insufficient_history", "missing_biometrics"})
			})
		})

		Convey("When cycles are highly irregular and a high anomaly exists", func() {
			recs := r.Recommend(analytics.Findings{
				Stats:        reliable,
				Irregularity: model.Irregularity{Score: 0.9, Tier: model.TierHigh},
				Anomalies:    []model.Anomaly{{Type: model.HeartRate, Severity: model.SeverityHigh}},
				Health: model.HealthScoreResult{Score: 100, Factors: []model.HealthFactor{
					{Name: analytics.FactorHeartRate, Value: 70, Points: 25, MaxPoints: 25},
				}},
			})

			Convey("Then high priority advice comes first", func() {
				ids := ruleIDs(recs)
				So(ids, ShouldResemble, []string{"irregularity_high", "anomaly_high", "heart_rate_anomaly", "score_excellent"})
				So(recs[0].Priority, ShouldEqual, model.PriorityHigh)
			})
		})

		Convey("When the score is poor because of activity and heart rate", func() {
			recs := r.Recommend(analytics.Findings{
				Stats: reliable,
				Health: model.HealthScoreResult{Score: 30, Factors: []model.HealthFactor{
					{Name: analytics.FactorHeartRate, Value: 110, Points: 10, MaxPoints: 25},
					{Name: analytics.FactorActivity, Value: 2000, Points: 5, MaxPoints: 25},
				}},
			})
			So(ruleIDs(recs), ShouldResemble, []string{"score_poor", "low_activity", "heart_rate_out_of_range"})
		})

		Convey("When predictions are uncertain and cycles lengthen", func() {
			recs := r.Recommend(analytics.Findings{
				Stats:        reliable,
				Irregularity: model.Irregularity{Score: 0.5, Tier: model.TierMedium},
				Trend:        model.CycleTrend{Direction: model.TrendLengthening},
				Predictions:  []model.Prediction{{Kind: model.KindNextPeriod, Sufficient: true, Confidence: 0.4}},
				Health: model.HealthScoreResult{Score: 60, Factors: []model.HealthFactor{
					{Name: analytics.FactorActivity, Value: 6000, Points: 15, MaxPoints: 25},
				}},
			})
			So(ruleIDs(recs), ShouldResemble, []string{
				"irregularity_medium", "score_fair", "low_confidence", "trend_lengthening",
			})
		})

		Convey("When a score of zero comes from evaluated factors", func() {
			recs := r.Recommend(analytics.Findings{
				Stats: reliable,
				Health: model.HealthScoreResult{Score: 0, Factors: []model.HealthFactor{
					{Name: analytics.FactorHeartRate, Value: 150, Points: 0, MaxPoints: 25},
				}},
			})
			So(ruleIDs(recs), ShouldContain, "score_poor")
		})
	})

	Convey("Given a custom rule table", t, func() {
		always := func(analytics.Findings) bool { return true }
		custom := analytics.NewRecommender(cal,
			analytics.Rule{ID: "a", Priority: model.PriorityLow, Text: "same", Match: always},
			analytics.Rule{ID: "b", Priority: model.PriorityHigh, Text: "urgent", Match: always},
			analytics.Rule{ID: "c", Priority: model.PriorityLow, Text: "same", Match: always},
			analytics.Rule{ID: "d", Priority: model.PriorityMedium, Text: "Same", Match: always},
			analytics.Rule{ID: "e", Priority: model.PriorityHigh, Text: "never"},
		)
		recs := custom.Recommend(analytics.Findings{})

		Convey("Then only exact duplicate texts collapse and ranking is stable", func() {
			So(ruleIDs(recs), ShouldResemble, []string{"b", "d", "a"})
		})
	})
}
