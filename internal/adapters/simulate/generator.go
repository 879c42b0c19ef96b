// Package simulate produces deterministic synthetic cycles and biometric
// samples for demos, seeding and load tests.
package simulate

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/flowsense/internal/domain/model"
)

// Default generator constants.
const (
	defaultCycles        = 12
	defaultDays          = 90
	heartRateReadings    = 4
	anomalySpikeBPM      = 45
	minCycleLength       = 18
	maxCycleLength       = 45
	sampleSource         = "simulator"
	heartRateMeasureHour = 8
)

var sampleNamespace = uuid.MustParse("3f0c3b7e-9a51-4d1e-8a53-7c2d0f6b1e42")

// Dataset is everything generated for one user.
type Dataset struct {
	UserID  string
	Profile Profile
	Cycles  []model.CycleRecord
	Samples []model.BiometricSample
}

// Generator creates datasets. The same seed, user and options always
// produce the same data regardless of call order.
type Generator struct {
	seed   uint64
	cycles int
	days   int
}

// Option configures a Generator.
type Option func(*Generator)

// WithCycles sets how many completed cycles each dataset carries.
func WithCycles(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.cycles = n
		}
	}
}

// WithDays sets how many days of biometric samples each dataset carries.
func WithDays(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.days = n
		}
	}
}

// New creates a generator for seed.
func New(seed uint64, opts ...Option) *Generator {
	g := &Generator{seed: seed, cycles: defaultCycles, days: defaultDays}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// UserID names the i-th simulated user.
func UserID(i int) string {
	return "sim-user-" + strconv.Itoa(i)
}

// Dataset generates data for userID ending at end. Cycles are laid out
// backwards from end so the last one starts shortly before it.
func (g *Generator) Dataset(userID string, p Profile, end time.Time) Dataset {
	rng := g.rng(userID)
	end = end.UTC()
	return Dataset{
		UserID:  userID,
		Profile: p,
		Cycles:  g.cyclesFor(rng, userID, p, end),
		Samples: g.samplesFor(rng, userID, p, end),
	}
}

func (g *Generator) rng(userID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	return rand.New(rand.NewPCG(g.seed, h.Sum64()))
}

func (g *Generator) cyclesFor(rng *rand.Rand, userID string, p Profile, end time.Time) []model.CycleRecord {
	if g.cycles == 0 {
		return nil
	}
	lengths := make([]int, g.cycles)
	for i := range lengths {
		l := int(math.Round(p.CycleMean + rng.NormFloat64()*p.CycleJitter))
		lengths[i] = min(max(l, minCycleLength), maxCycleLength)
	}

	// the current, ongoing cycle began a few days before end
	cursor := day(end).AddDate(0, 0, -(1 + rng.IntN(lengths[len(lengths)-1])))
	records := make([]model.CycleRecord, g.cycles+1)
	records[g.cycles] = model.CycleRecord{
		ID:           cycleID(userID, cursor),
		UserID:       userID,
		StartDate:    cursor,
		PeriodLength: p.PeriodLength,
	}
	for i := g.cycles - 1; i >= 0; i-- {
		start := cursor.AddDate(0, 0, -lengths[i])
		stop := cursor.AddDate(0, 0, -1)
		records[i] = model.CycleRecord{
			ID:           cycleID(userID, start),
			UserID:       userID,
			StartDate:    start,
			EndDate:      &stop,
			CycleLength:  lengths[i],
			PeriodLength: max(1, p.PeriodLength+rng.IntN(3)-1),
			Complete:     true,
		}
		cursor = start
	}
	return records
}

func (g *Generator) samplesFor(rng *rand.Rand, userID string, p Profile, end time.Time) []model.BiometricSample {
	if g.days == 0 {
		return nil
	}
	first := day(end).AddDate(0, 0, -g.days+1)
	samples := make([]model.BiometricSample, 0, g.days*(heartRateReadings+3))
	add := func(t model.BiometricType, v float64, ts time.Time) {
		samples = append(samples, model.BiometricSample{
			ID:         sampleID(userID, t, ts),
			UserID:     userID,
			Type:       t,
			Value:      v,
			Unit:       t.DefaultUnit(),
			Confidence: 0.9 + rng.Float64()*0.1,
			Source:     sampleSource,
			Timestamp:  ts,
		})
	}

	for d := 0; d < g.days; d++ {
		date := first.AddDate(0, 0, d)
		spike := -1
		if rng.Float64() < p.AnomalyRate {
			spike = rng.IntN(heartRateReadings)
		}
		for r := 0; r < heartRateReadings; r++ {
			v := p.HeartRate + rng.NormFloat64()*p.HeartRateJitter
			if r == spike {
				v += anomalySpikeBPM
			}
			add(model.HeartRate, round1(v), date.Add(time.Duration(heartRateMeasureHour+3*r)*time.Hour))
		}
		add(model.RestingHeartRate, round1(p.RestingHeartRate+rng.NormFloat64()*2), date.Add(4*time.Hour))
		add(model.Steps, math.Max(0, math.Round(p.DailySteps+rng.NormFloat64()*p.StepsJitter)), date.Add(23*time.Hour))
		add(model.SleepHours, round1(math.Max(0, p.SleepHours+rng.NormFloat64()*0.6)), date.Add(7*time.Hour))
	}
	return samples
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func cycleID(userID string, start time.Time) string {
	return uuid.NewSHA1(sampleNamespace, []byte(fmt.Sprintf("cycle|%s|%s", userID, start.Format(time.DateOnly)))).String()
}

func sampleID(userID string, t model.BiometricType, ts time.Time) string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ts.UnixNano()))
	return uuid.NewSHA1(sampleNamespace, append([]byte(userID+"|"+string(t)+"|"), b[:]...)).String()
}
