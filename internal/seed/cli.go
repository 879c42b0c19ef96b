package seed

import (
	"io"
)

// ShowHelp prints usage information for the seed tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `FlowSense Seed Tool
===================

Posts simulated cycles and biometric samples to a running FlowSense server,
then fetches each user's insights report.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of simulated users (default 25)
  -cycles int
        Completed cycles per user (default 12)
  -days int
        Days of biometric samples per user (default 90)
  -batch int
        Samples per request (default 250)
  -seed uint
        Simulator seed; the same seed posts the same data (default 20250101)
  -workers int
        Number of users seeded concurrently (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Log a summary for every user
  -help
        Show this help message

Examples:
  # Seed with default settings
  go run ./cmd/seed

  # Seed a larger population against another address
  go run ./cmd/seed -users 500 -workers 16 -url http://localhost:8080

  # Re-running with the same seed only produces duplicates
  go run ./cmd/seed -seed 42 && go run ./cmd/seed -seed 42 -verbose
`)
}
