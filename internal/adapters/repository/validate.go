package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/flowsense/internal/domain/model"
)

func checkQuery(userID string, start, end time.Time) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUser
	}
	if end.Before(start) {
		return ErrInvalidRange
	}
	return nil
}

// prepareCycle validates rec and fills the id. Times are kept in UTC.
func prepareCycle(rec model.CycleRecord) (model.CycleRecord, error) {
	if strings.TrimSpace(rec.UserID) == "" {
		return rec, ErrInvalidUser
	}
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.StartDate = rec.StartDate.UTC()
	rec.EndDate = utcPtr(rec.EndDate)
	rec.OvulationDate = utcPtr(rec.OvulationDate)
	return rec, nil
}

// prepareSamples validates the whole batch up front and fills ids, user
// and units.
func prepareSamples(userID string, samples []model.BiometricSample) ([]model.BiometricSample, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}
	out := make([]model.BiometricSample, len(samples))
	for i, s := range samples {
		if s.UserID != "" && s.UserID != userID {
			return nil, fmt.Errorf("%w: sample %d belongs to %q", model.ErrInvalidSample, i, s.UserID)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		s.UserID = userID
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Unit == "" {
			s.Unit = s.Type.DefaultUnit()
		}
		s.Timestamp = s.Timestamp.UTC()
		out[i] = s
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
