package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const dateOnly = "2006-01-02"

// parseTime accepts RFC3339 timestamps or plain YYYY-MM-DD dates (UTC).
// A plain end date covers the whole day.
func parseTime(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q; use RFC3339 or YYYY-MM-DD", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// window reads start and end from the query string. Missing bounds default
// to the last s.defaultWindow ending now.
func (s *Server) window(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()

	end := s.now().UTC()
	if raw := q.Get("end"); raw != "" {
		t, err := parseTime(raw, true)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
		}
		end = t
	}

	start := end.Add(-s.defaultWindow)
	if raw := q.Get("start"); raw != "" {
		t, err := parseTime(raw, false)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
		}
		start = t
	}

	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %s is not after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}

// userID returns the {userID} path segment.
func userID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("userID"))
	if id == "" {
		return "", fmt.Errorf("missing user id")
	}
	return id, nil
}
