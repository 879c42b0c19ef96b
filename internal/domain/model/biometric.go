package model

import (
	"fmt"
	"math"
	"time"
)

// BiometricType identifies what a sample measures.
type BiometricType string

const (
	HeartRate            BiometricType = "heart_rate"
	RestingHeartRate     BiometricType = "resting_heart_rate"
	Steps                BiometricType = "steps"
	ActiveCalories       BiometricType = "active_calories"
	BloodOxygen          BiometricType = "blood_oxygen"
	BodyTemperature      BiometricType = "body_temperature"
	HeartRateVariability BiometricType = "heart_rate_variability"
	SleepHours           BiometricType = "sleep_hours"
)

var defaultUnits = map[BiometricType]string{
	HeartRate:            "bpm",
	RestingHeartRate:     "bpm",
	Steps:                "count",
	ActiveCalories:       "kcal",
	BloodOxygen:          "%",
	BodyTemperature:      "°C",
	HeartRateVariability: "ms",
	SleepHours:           "h",
}

// BiometricTypes returns every known type in a stable order.
func BiometricTypes() []BiometricType {
	return []BiometricType{
		HeartRate, RestingHeartRate, Steps, ActiveCalories,
		BloodOxygen, BodyTemperature, HeartRateVariability, SleepHours,
	}
}

// Known reports whether t is one of the supported types.
func (t BiometricType) Known() bool {
	_, ok := defaultUnits[t]
	return ok
}

// DefaultUnit returns the canonical unit for t, or "" when unknown.
func (t BiometricType) DefaultUnit() string {
	return defaultUnits[t]
}

// BiometricSample is a single timestamped measurement. Immutable once created.
type BiometricSample struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	Type       BiometricType `json:"type"`
	Value      float64       `json:"value"`
	Unit       string        `json:"unit,omitempty"`
	Confidence float64       `json:"confidence"`
	Source     string        `json:"source,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Validate checks the sample invariants.
func (s BiometricSample) Validate() error {
	switch {
	case s.Type == "":
		return fmt.Errorf("%w: type is required", ErrInvalidSample)
	case !s.Type.Known():
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSample, s.Type)
	case s.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp is required", ErrInvalidSample)
	case math.IsNaN(s.Value) || math.IsInf(s.Value, 0):
		return fmt.Errorf("%w: value must be finite", ErrInvalidSample)
	case s.Confidence < 0 || s.Confidence > 1:
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidSample, s.Confidence)
	}
	return nil
}

// Severity grades an anomaly.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Anomaly is a flagged biometric sample. Ephemeral, recomputed per analysis.
type Anomaly struct {
	SampleID    string        `json:"sample_id"`
	Type        BiometricType `json:"type"`
	Value       float64       `json:"value"`
	Timestamp   time.Time     `json:"timestamp"`
	ZScore      float64       `json:"z_score"`
	ExpectedMin float64       `json:"expected_min"`
	ExpectedMax float64       `json:"expected_max"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
}
