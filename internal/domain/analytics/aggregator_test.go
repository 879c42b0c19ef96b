package analytics_test

import (
	"math"
	"testing"

	"github.com/okian/flowsense/internal/domain/analytics"
	"github.com/okian/flowsense/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregateCycles(t *testing.T) {
	Convey("Given cycle histories", t, func() {
		Convey("When there is no history", func() {
			s := analytics.AggregateCycles(nil)

			Convey("Then an empty result is returned", func() {
				So(s.Count, ShouldEqual, 0)
				So(s.Mean, ShouldEqual, 0)
				So(s.StdDev, ShouldEqual, 0)
				So(s.Reliable(), ShouldBeFalse)
			})
		})

		Convey("When every cycle has the same length", func() {
			s := analytics.AggregateCycles(cycles(28, 28, 28, 28))

			Convey("Then variance is zero", func() {
				So(s.Mean, ShouldEqual, 28)
				So(s.Variance, ShouldEqual, 0)
				So(s.StdDev, ShouldEqual, 0)
				So(s.Count, ShouldEqual, 4)
				So(s.Reliable(), ShouldBeTrue)
			})
		})

		Convey("When lengths vary", func() {
			s := analytics.AggregateCycles(cycles(28, 30, 27, 29))

			Convey("Then the population statistics are used", func() {
				So(s.Mean, ShouldEqual, 28.5)
				So(s.Variance, ShouldAlmostEqual, 1.25, 1e-12)
				So(s.StdDev, ShouldAlmostEqual, math.Sqrt(1.25), 1e-12)
				So(s.Min, ShouldEqual, 27)
				So(s.Max, ShouldEqual, 30)
				So(s.MeanPeriodLength, ShouldEqual, 5)
			})
		})

		Convey("When the latest cycle is ongoing", func() {
			recs := cycles(28, 30)
			ongoing := model.CycleRecord{ID: "open", StartDate: base.AddDate(0, 0, 58)}
			s := analytics.AggregateCycles(append(recs, ongoing))

			Convey("Then it moves the last start but not the lengths", func() {
				So(s.Count, ShouldEqual, 2)
				So(s.Mean, ShouldEqual, 29)
				So(s.LastStart, ShouldEqual, ongoing.StartDate)
			})
		})
	})
}

func TestScoreIrregularity(t *testing.T) {
	cal := analytics.DefaultCalibration()

	Convey("Given variances", t, func() {
		Convey("When cycles are identical", func() {
			s := analytics.AggregateCycles(cycles(29, 29, 29))
			ir := analytics.ScoreIrregularity(s.Variance, cal)
			So(ir.Score, ShouldEqual, 0)
			So(ir.Tier, ShouldEqual, model.TierLow)
		})

		Convey("When lengths are 28, 30, 27, 29", func() {
			s := analytics.AggregateCycles(cycles(28, 30, 27, 29))
			ir := analytics.ScoreIrregularity(s.Variance, cal)
			So(ir.Score, ShouldAlmostEqual, 0.0125, 1e-12)
			So(ir.Tier, ShouldEqual, model.TierLow)
		})

		Convey("When the tier boundaries are crossed", func() {
			So(analytics.ScoreIrregularity(40, cal).Tier, ShouldEqual, model.TierLow)
			So(analytics.ScoreIrregularity(41, cal).Tier, ShouldEqual, model.TierMedium)
			So(analytics.ScoreIrregularity(70, cal).Tier, ShouldEqual, model.TierMedium)
			So(analytics.ScoreIrregularity(71, cal).Tier, ShouldEqual, model.TierHigh)
		})

		Convey("When variance exceeds the normalizer", func() {
			ir := analytics.ScoreIrregularity(625, cal)
			So(ir.Score, ShouldEqual, 1)
			So(ir.Tier, ShouldEqual, model.TierHigh)
		})

		Convey("When the normalizer is overridden", func() {
			c := analytics.NewCalibration(analytics.WithIrregularityNormalizer(10))
			So(analytics.ScoreIrregularity(5, c).Score, ShouldEqual, 0.5)
		})
	})
}

func TestCalibrationOptions(t *testing.T) {
	Convey("Given calibration options", t, func() {
		Convey("When values are valid they apply", func() {
			c := analytics.NewCalibration(
				analytics.WithConfidenceBounds(0.2, 0.9),
				analytics.WithLutealPhaseDays(13),
				analytics.WithAnomalyThresholds(2, 2.8),
				analytics.WithFertileWindow(4, 2),
			)
			So(c.ConfidenceFloor, ShouldEqual, 0.2)
			So(c.ConfidenceCeiling, ShouldEqual, 0.9)
			So(c.LutealPhaseDays, ShouldEqual, 13)
			So(c.AnomalyHighThreshold, ShouldEqual, 2.8)
			So(c.FertileDaysBefore, ShouldEqual, 4)
		})

		Convey("When values are invalid they are ignored", func() {
			c := analytics.NewCalibration(
				analytics.WithConfidenceBounds(0.9, 0.2),
				analytics.WithLutealPhaseDays(0),
				analytics.WithAnomalyThresholds(3, 2),
				analytics.WithIrregularityNormalizer(-1),
				analytics.WithPredictionFreshness(0),
				analytics.WithHeartRateBand(100, 60, 80, 0.5),
				analytics.WithDailyStepTarget(0),
			)
			So(c, ShouldResemble, analytics.DefaultCalibration())
		})
	})
}
