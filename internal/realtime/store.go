package realtime

import (
	"sync"

	"github.com/muurk/rtinspect/internal/logging"
)

// WriteSource identifies which path replaced a Config.
type WriteSource int

const (
	// SourceExternal is a replacement made by the owner's own code (flags, reconnect)
	SourceExternal WriteSource = iota
	// SourceCommit is a user-confirmed draft from the Editor
	SourceCommit
	// SourceCredentials is the anon-token sync triggered by a credential update
	SourceCredentials
)

// String returns the source name used in logs
func (s WriteSource) String() string {
	switch s {
	case SourceExternal:
		return "external"
	case SourceCommit:
		return "commit"
	case SourceCredentials:
		return "credentials"
	default:
		return "unknown"
	}
}

// ConfigOwner owns the externally visible Config.
type ConfigOwner interface {
	Config() Config
	SetConfig(cfg Config)
}

// sourcedOwner is implemented by owners that record the write path and can
// apply read-modify-write updates atomically. Store implements it.
type sourcedOwner interface {
	Replace(cfg Config, source WriteSource)
	Update(fn func(Config) Config, source WriteSource)
}

// ChangeFunc observes Config replacements.
type ChangeFunc func(cfg Config, source WriteSource)

// Store is the default ConfigOwner.
type Store struct {
	// notifyMu serializes writes with their notifications so observers see
	// replacements in the order they were applied.
	notifyMu sync.Mutex

	mu         sync.RWMutex
	cfg        Config
	lastSource WriteSource
	observers  map[uint64]ChangeFunc
	nextID     uint64
}

// NewStore creates a Store holding cfg.
func NewStore(cfg Config) *Store {
	return &Store{
		cfg:       cfg,
		observers: make(map[uint64]ChangeFunc),
	}
}

// Config returns the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// LastSource returns the write path of the most recent replacement.
func (s *Store) LastSource() WriteSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSource
}

// SetConfig replaces the configuration as an external write.
func (s *Store) SetConfig(cfg Config) {
	s.Replace(cfg, SourceExternal)
}

// Replace swaps in cfg and notifies observers.
func (s *Store) Replace(cfg Config, source WriteSource) {
	s.Update(func(Config) Config { return cfg }, source)
}

// Update applies fn to the current configuration under the store lock, so
// concurrent writers never lose each other's fields. Observers run outside the
// store lock but before the next write is applied; they must not write to the
// Store themselves.
func (s *Store) Update(fn func(Config) Config, source WriteSource) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.cfg = fn(s.cfg)
	s.lastSource = source
	cfg := s.cfg
	observers := make([]ChangeFunc, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	logging.LogConfigChange(source.String(), cfg.ProjectRef, cfg.Token, cfg.Bearer)

	for _, o := range observers {
		o(cfg, source)
	}
}

// Observe registers fn for every replacement. The returned function removes it.
func (s *Store) Observe(fn ChangeFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// replaceConfig writes cfg to owner, recording source when the owner supports it.
func replaceConfig(owner ConfigOwner, cfg Config, source WriteSource) {
	if so, ok := owner.(sourcedOwner); ok {
		so.Replace(cfg, source)
		return
	}
	owner.SetConfig(cfg)
}

// updateConfig applies fn to owner's configuration, atomically when supported.
func updateConfig(owner ConfigOwner, fn func(Config) Config, source WriteSource) {
	if so, ok := owner.(sourcedOwner); ok {
		so.Update(fn, source)
		return
	}
	owner.SetConfig(fn(owner.Config()))
}
