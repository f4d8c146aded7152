package config

import (
	"sync/atomic"

	"wren/internal/logger"
	"wren/pkg/errors"
	"wren/pkg/metrics"
)

// Store holds the active configuration and swaps it atomically when the
// file changes. Every delivery reads one consistent *Config for its whole
// pass through the pipeline; deliveries already in flight keep the config
// they started with.
type Store struct {
	current atomic.Pointer[Config]
}

func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Current returns the active configuration. Callers must treat it as
// read-only.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// StartWatcher re-reads the config file whenever it is rewritten. A
// reload that fails to parse, validate, or be accepted by onApply is
// dropped and the previous configuration stays active. onApply runs
// before the swap so subscribers (rule compilation, credential tables)
// can veto a config they cannot use.
func (s *Store) StartWatcher(log logger.Logger, onApply func(*Config) error) {
	Watch(func() {
		defer func() {
			if r := recover(); r != nil {
				err, stack := errors.RecoverPanic(r)
				log.Errorw("config reload panicked, keeping previous configuration",
					"error", err,
					"stack", stack,
				)
				metrics.IncConfigReload("failure")
			}
		}()

		fresh, err := Reload()
		if err != nil {
			log.Errorw("config reload rejected, keeping previous configuration", "error", err)
			metrics.IncConfigReload("failure")
			return
		}

		if onApply != nil {
			if err := onApply(fresh); err != nil {
				log.Errorw("config reload rejected by subscriber, keeping previous configuration", "error", err)
				metrics.IncConfigReload("failure")
				return
			}
		}

		s.current.Store(fresh)
		metrics.IncConfigReload("success")
		log.Infow("configuration reloaded",
			"enabled_providers", len(fresh.EnabledProviders()),
		)
	})
}
