package settings

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/rtinspect/internal/logging"
)

// Source fetches the current credential list.
type Source interface {
	Fetch(ctx context.Context) ([]Credential, error)
	Name() string
}

// Observer is called with the new credential list after every change.
type Observer func(creds []Credential)

// Subscription represents an active observer registration.
type Subscription struct {
	id       uint64
	provider *Provider
}

// Unsubscribe removes this subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.provider != nil {
		s.provider.unsubscribe(s.id)
		s.provider = nil
	}
}

// Provider holds the latest credential list and fans out changes.
type Provider struct {
	source Source

	// notifyMu serializes publishes with their fan-out so observers receive
	// lists in the order they were stored.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	creds     []Credential
	loaded    bool
	observers map[uint64]Observer
	nextID    uint64
}

// NewProvider creates a provider backed by source. source may be nil when
// credentials are only ever pushed with Set.
func NewProvider(source Source) *Provider {
	return &Provider{
		source:    source,
		observers: make(map[uint64]Observer),
	}
}

// Credentials returns a copy of the current list.
func (p *Provider) Credentials() []Credential {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Credential(nil), p.creds...)
}

// Loaded reports whether any list has been published yet.
func (p *Provider) Loaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Subscribe registers an observer for list changes.
func (p *Provider) Subscribe(observer Observer) *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.observers[id] = observer

	return &Subscription{id: id, provider: p}
}

func (p *Provider) unsubscribe(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.observers, id)
}

// Set publishes a new list. Observers are called only when the list differs
// from the current one (the first publish always notifies). Reports whether
// observers were notified. Observers must not call Set themselves.
func (p *Provider) Set(creds []Credential) bool {
	creds = append([]Credential(nil), creds...)

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.loaded && Equal(p.creds, creds) {
		p.mu.Unlock()
		return false
	}
	p.creds = creds
	p.loaded = true

	observers := make([]Observer, 0, len(p.observers))
	for _, o := range p.observers {
		observers = append(observers, o)
	}
	p.mu.Unlock()

	for _, o := range observers {
		o(append([]Credential(nil), creds...))
	}
	return true
}

// Refresh fetches from the source and publishes the result. On failure the
// current list is kept.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.source == nil {
		return newConfigError("no credential source configured")
	}

	creds, err := p.source.Fetch(ctx)
	if err != nil {
		return err
	}

	if p.Set(creds) {
		logging.LogCredentials(p.source.Name(), Labels(creds))
	}
	return nil
}

// cacheInvalidator is implemented by sources that cache fetches.
type cacheInvalidator interface {
	InvalidateCache()
}

// ForceRefresh is Refresh with any source cache dropped first, so the result
// reflects the backend at the time of the call.
func (p *Provider) ForceRefresh(ctx context.Context) error {
	if ci, ok := p.source.(cacheInvalidator); ok {
		ci.InvalidateCache()
	}
	return p.Refresh(ctx)
}

// Poll refreshes immediately and then every interval until ctx is done.
// Failures are logged and do not stop polling.
func (p *Provider) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			logging.Warn("Credential refresh failed",
				zap.String("source", p.source.Name()),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
