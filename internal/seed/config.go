// Package seed posts simulated cycles and biometric samples to a running
// FlowSense server and reads back each user's insights.
package seed

import (
	"time"
)

// Default run constants.
const (
	defaultUsers     = 25
	defaultCycles    = 12
	defaultDays      = 90
	defaultBatchSize = 250
	defaultSeed      = 20250101
	defaultTimeout   = 30 * time.Second
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Users     int           // Number of simulated users
	Cycles    int           // Completed cycles per user
	Days      int           // Days of biometric samples per user
	BatchSize int           // Samples per POST
	Seed      uint64        // Simulator seed
	Workers   int           // Concurrent users in flight
	Timeout   time.Duration // HTTP request timeout
	End       time.Time     // Last simulated day; zero means now
	Verbose   bool          // Log every user
}

// withDefaults returns a copy with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.Users <= 0 {
		c.Users = defaultUsers
	}
	if c.Cycles <= 0 {
		c.Cycles = defaultCycles
	}
	if c.Days <= 0 {
		c.Days = defaultDays
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Seed == 0 {
		c.Seed = defaultSeed
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.End.IsZero() {
		c.End = time.Now().UTC()
	}
	return c
}

// Stats holds run statistics.
type Stats struct {
	UsersSeeded      int
	CyclesPosted     int
	SamplesAccepted  int
	SamplesDuplicate int
	ReportsFetched   int
	AnomaliesFound   int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
