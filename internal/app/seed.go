package service

import (
	"context"
	"fmt"

	"github.com/okian/flowsense/internal/adapters/simulate"
	"github.com/okian/flowsense/pkg/logger"
)

// demoSeed keeps demo data identical across restarts.
const demoSeed = 20250101

// seedDemo stores n simulated users ending now. Re-seeding the same users
// is harmless: records carry stable ids.
func (s *Service) seedDemo(ctx context.Context, n int) error {
	gen := simulate.New(demoSeed)
	now := s.now()
	for i := 0; i < n; i++ {
		ds := gen.Dataset(simulate.UserID(i), simulate.ProfileFor(i), now)
		for _, c := range ds.Cycles {
			if _, err := s.store.SaveCycle(ctx, c); err != nil {
				return fmt.Errorf("seed %s: %w", ds.UserID, err)
			}
		}
		if _, _, err := s.SaveSamples(ctx, ds.UserID, ds.Samples); err != nil {
			return fmt.Errorf("seed %s: %w", ds.UserID, err)
		}
		s.logger.Debug(ctx, "seeded demo user",
			logger.String("user_id", ds.UserID),
			logger.String("profile", ds.Profile.Name),
			logger.Int("cycles", len(ds.Cycles)),
			logger.Int("samples", len(ds.Samples)),
		)
	}
	s.logger.Info(ctx, "demo users seeded", logger.Int("users", n))
	return nil
}
