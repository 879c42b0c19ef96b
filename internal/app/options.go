package service

import (
	"time"

	"github.com/okian/flowsense/internal/adapters/cache"
	"github.com/okian/flowsense/internal/adapters/repository"
	"github.com/okian/flowsense/internal/config"
	"github.com/okian/flowsense/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces the whole configuration. Apply it before the
// single-field options below.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			c := *cfg
			s.cfg = &c
		}
	}
}

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.cfg.WorkerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the refresh queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.QueueSize = size
		}
	}
}

// WithDedupeSize sets how many sample ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.DedupeSize = size
		}
	}
}

// WithDemoUsers seeds the store with n simulated users on start.
func WithDemoUsers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.cfg.DemoUsers = n
		}
	}
}

// WithStore uses store instead of the one named by the configuration.
// The caller keeps ownership and closes it after Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCache uses c instead of the cache named by the configuration.
// The caller keeps ownership and closes it after Stop.
func WithCache(c cache.ReportCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
