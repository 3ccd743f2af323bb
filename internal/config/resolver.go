package config

import (
	"fmt"
	"sync"
)

// Resolver loads Settings at most once and hands out the same instance afterwards.
// Concurrent first calls block on a single load; a failed load is not retried.
type Resolver struct {
	opts []Option

	once     sync.Once
	settings *Settings
	legacy   *LegacyView
	err      error
}

// NewResolver returns a Resolver that loads with opts on first use.
func NewResolver(opts ...Option) *Resolver {
	return &Resolver{opts: opts}
}

// Settings returns the resolved settings, loading them on the first call.
func (r *Resolver) Settings() (*Settings, error) {
	r.resolve()
	return r.settings, r.err
}

// Legacy returns the flat view derived from the same Settings instance.
//
// Deprecated: use Settings.
func (r *Resolver) Legacy() (*LegacyView, error) {
	r.resolve()
	return r.legacy, r.err
}

func (r *Resolver) resolve() {
	r.once.Do(func() {
		settings, err := Load(r.opts...)
		if err != nil {
			r.err = fmt.Errorf("resolve settings: %w", err)
			return
		}
		legacy := NewLegacyView(settings)
		r.settings = settings
		r.legacy = &legacy
	})
}

var defaultResolver = NewResolver()

// Get resolves the process-wide settings from the environment and ./.env.
// Prefer building a Resolver at startup and passing *Settings explicitly; Get
// exists for code paths that cannot receive it.
func Get() (*Settings, error) {
	return defaultResolver.Settings()
}

// MustGet is like Get but panics on error.
func MustGet() *Settings {
	s, err := Get()
	if err != nil {
		panic(err)
	}
	return s
}
