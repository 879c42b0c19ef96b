package analytics_test

import (
	"testing"
	"time"

	"github.com/okian/flowsense/internal/domain/analytics"
	"github.com/okian/flowsense/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func date(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPredictor(t *testing.T) {
	p := analytics.NewPredictor(analytics.DefaultCalibration())

	Convey("Given four 28 day cycles starting on January 1st", t, func() {
		// starts: Jan 1, Jan 29, Feb 26, Mar 26
		s := analytics.AggregateCycles(cycles(28, 28, 28, 28))
		asOf := date(time.March, 27).Add(10 * time.Hour)
		preds := p.Predict(s, asOf)

		Convey("Then all three kinds are returned in order", func() {
			So(preds, ShouldHaveLength, 3)
			So(preds[0].Kind, ShouldEqual, model.KindNextPeriod)
			So(preds[1].Kind, ShouldEqual, model.KindOvulation)
			So(preds[2].Kind, ShouldEqual, model.KindFertileWindow)
		})

		Convey("Then the next period follows the mean length", func() {
			So(preds[0].Sufficient, ShouldBeTrue)
			So(preds[0].Date, ShouldEqual, date(time.April, 23))
			So(preds[0].Confidence, ShouldEqual, 0.95)
		})

		Convey("Then ovulation is fourteen days in", func() {
			So(preds[1].CycleDay, ShouldEqual, 14)
			So(preds[1].Date, ShouldEqual, date(time.April, 9))
			So(preds[1].Confidence, ShouldEqual, preds[0].Confidence)
		})

		Convey("Then the fertile window brackets ovulation", func() {
			So(preds[2].WindowStart, ShouldEqual, date(time.April, 4))
			So(preds[2].WindowEnd, ShouldEqual, date(time.April, 10))
		})

		Convey("Then predictions expire after the freshness window", func() {
			for _, pr := range preds {
				So(pr.ExpiresAt, ShouldEqual, asOf.Add(24*time.Hour))
				So(pr.ComputedAt, ShouldEqual, asOf)
			}
		})

		Convey("When the predicted date is today", func() {
			today := date(time.April, 23).Add(6 * time.Hour)
			next := p.NextPeriod(s, today)

			Convey("Then it expires at the end of that day", func() {
				So(next.Date, ShouldEqual, date(time.April, 23))
				So(next.ExpiresAt, ShouldEqual, date(time.April, 24))
			})
		})

		Convey("When the projected start has already passed", func() {
			preds := p.Predict(s, date(time.May, 1))

			Convey("Then it rolls forward by whole cycles", func() {
				So(preds[0].Date, ShouldEqual, date(time.May, 21))
				So(preds[1].Date, ShouldEqual, date(time.May, 7))
			})
		})

		Convey("When this cycle's ovulation has passed", func() {
			preds := p.Predict(s, date(time.April, 15))

			Convey("Then the next cycle's ovulation is used", func() {
				So(preds[0].Date, ShouldEqual, date(time.April, 23))
				So(preds[1].Date, ShouldEqual, date(time.May, 7))
				So(preds[2].WindowStart, ShouldEqual, date(time.May, 2))
			})
		})
	})

	Convey("Given cycles of 28, 30, 27 and 29 days", t, func() {
		s := analytics.AggregateCycles(cycles(28, 30, 27, 29))
		preds := p.Predict(s, s.LastStart)

		Convey("Then ovulation is about 14.5 days in", func() {
			So(preds[1].CycleDay, ShouldAlmostEqual, 14.5, 1e-12)
			So(preds[1].Sufficient, ShouldBeTrue)
		})
	})

	Convey("Given confidence across spreads", t, func() {
		So(p.Confidence(analytics.AggregateCycles(cycles(20, 40, 20, 40))), ShouldAlmostEqual, 1-10.0/30, 1e-12)
		So(p.Confidence(analytics.AggregateCycles(cycles(5, 55, 5, 55))), ShouldEqual, 0.3)
		So(p.Confidence(model.CycleStats{}), ShouldEqual, 0)
	})

	Convey("Given no history", t, func() {
		asOf := date(time.June, 1)
		preds := p.Predict(model.CycleStats{}, asOf)

		Convey("Then every kind is empty with zero confidence", func() {
			So(preds, ShouldHaveLength, 3)
			for _, pr := range preds {
				So(pr.Sufficient, ShouldBeFalse)
				So(pr.Confidence, ShouldEqual, 0)
				So(pr.Date.IsZero(), ShouldBeTrue)
				So(pr.ExpiresAt, ShouldEqual, asOf.Add(24*time.Hour))
			}
		})
	})

	Convey("Given cycles shorter than the luteal phase", t, func() {
		s := analytics.AggregateCycles(cycles(12, 12, 12))
		preds := p.Predict(s, s.LastStart)

		Convey("Then only the next period can be projected", func() {
			So(preds[0].Sufficient, ShouldBeTrue)
			So(preds[1].Sufficient, ShouldBeFalse)
			So(preds[2].Sufficient, ShouldBeFalse)
		})
	})

	Convey("Given a custom luteal phase", t, func() {
		custom := analytics.NewPredictor(analytics.NewCalibration(analytics.WithLutealPhaseDays(12)))
		s := analytics.AggregateCycles(cycles(28, 28, 28, 28))
		So(custom.Predict(s, s.LastStart)[1].CycleDay, ShouldEqual, 16)
	})
}
