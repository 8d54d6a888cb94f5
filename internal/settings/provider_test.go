package settings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type stubSource struct {
	mu    sync.Mutex
	creds []Credential
	err   error
	calls int
}

func (s *stubSource) Fetch(ctx context.Context) ([]Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]Credential(nil), s.creds...), nil
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) set(creds []Credential, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	s.err = err
}

func TestProviderSetNotifiesOnChangeOnly(t *testing.T) {
	p := NewProvider(nil)

	var notified [][]Credential
	p.Subscribe(func(creds []Credential) {
		notified = append(notified, creds)
	})

	list := []Credential{{Label: "anon", Value: "key-B"}}
	if !p.Set(list) {
		t.Error("first Set() should notify")
	}
	if p.Set(list) {
		t.Error("Set() with identical list should not notify")
	}
	if !p.Set([]Credential{{Label: "anon", Value: "key-D"}}) {
		t.Error("Set() with changed list should notify")
	}

	if len(notified) != 2 {
		t.Fatalf("observer called %d times, want 2", len(notified))
	}
	if notified[1][0].Value != "key-D" {
		t.Errorf("second notification value = %s, want key-D", notified[1][0].Value)
	}
}

func TestProviderFirstEmptyListNotifies(t *testing.T) {
	p := NewProvider(nil)

	calls := 0
	p.Subscribe(func([]Credential) { calls++ })

	p.Set(nil)
	if calls != 1 {
		t.Errorf("observer called %d times, want 1", calls)
	}
	if !p.Loaded() {
		t.Error("Loaded() should be true after Set")
	}
}

func TestProviderUnsubscribe(t *testing.T) {
	p := NewProvider(nil)

	calls := 0
	sub := p.Subscribe(func([]Credential) { calls++ })
	sub.Unsubscribe()
	sub.Unsubscribe()

	p.Set([]Credential{{Label: "anon", Value: "x"}})
	if calls != 0 {
		t.Errorf("observer called %d times after Unsubscribe, want 0", calls)
	}
}

func TestProviderCredentialsIsCopy(t *testing.T) {
	p := NewProvider(nil)
	p.Set([]Credential{{Label: "anon", Value: "key-B"}})

	got := p.Credentials()
	got[0].Value = "mutated"

	if p.Credentials()[0].Value != "key-B" {
		t.Error("Credentials() must return a copy")
	}
}

func TestProviderRefreshKeepsListOnError(t *testing.T) {
	src := &stubSource{creds: []Credential{{Label: "anon", Value: "key-B"}}}
	p := NewProvider(src)

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	src.set(nil, errors.New("boom"))
	if err := p.Refresh(context.Background()); err == nil {
		t.Error("Refresh() should return the fetch error")
	}

	if got := p.Credentials(); len(got) != 1 || got[0].Value != "key-B" {
		t.Errorf("Credentials() = %v, want previous list kept", got)
	}
}

func TestProviderForceRefreshBypassesCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(mockSettingsResponse))
			return
		}
		_, _ = w.Write([]byte(`{"services": [{"app": {"id": 1}, "service_api_keys": [{"tags": "anon", "api_key": "key-D"}]}]}`))
	}))
	defer server.Close()

	p := NewProvider(newTestClient(server.URL))
	ctx := context.Background()

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1 (Refresh may use the cache)", calls.Load())
	}

	if err := p.ForceRefresh(ctx); err != nil {
		t.Fatalf("ForceRefresh() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server called %d times, want 2 after ForceRefresh", calls.Load())
	}
	if got := p.Credentials(); len(got) != 1 || got[0].Value != "key-D" {
		t.Errorf("Credentials() = %v, want rotated key-D", got)
	}
}

func TestProviderForceRefreshWithoutCache(t *testing.T) {
	src := &stubSource{creds: []Credential{{Label: "anon", Value: "key-B"}}}
	p := NewProvider(src)

	if err := p.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh() error = %v", err)
	}
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
	if err := NewProvider(nil).ForceRefresh(context.Background()); err == nil {
		t.Error("ForceRefresh() without a source should fail")
	}
}

func TestProviderNotifiesInPublishOrder(t *testing.T) {
	p := NewProvider(nil)

	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var seen []string
	p.Subscribe(func(creds []Credential) {
		if creds[0].Value == "old" {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, creds[0].Value)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.Set([]Credential{{Label: "anon", Value: "old"}})
	}()
	<-entered
	go func() {
		defer wg.Done()
		p.Set([]Credential{{Label: "anon", Value: "new"}})
	}()

	// Give the second publish time to overtake the stalled notification
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if len(seen) != 2 || seen[0] != "old" || seen[1] != "new" {
		t.Errorf("observed %v, want [old new]", seen)
	}
	if got := p.Credentials(); got[0].Value != "new" {
		t.Errorf("Credentials() = %v, want new", got)
	}
}

func TestProviderRefreshWithoutSource(t *testing.T) {
	if err := NewProvider(nil).Refresh(context.Background()); err == nil {
		t.Error("Refresh() without a source should fail")
	}
}

func TestProviderPoll(t *testing.T) {
	src := &stubSource{creds: []Credential{{Label: "anon", Value: "key-B"}}}
	p := NewProvider(src)

	updates := make(chan []Credential, 4)
	p.Subscribe(func(creds []Credential) { updates <- creds })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Poll(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case creds := <-updates:
		if creds[0].Value != "key-B" {
			t.Errorf("first poll value = %s, want key-B", creds[0].Value)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first poll")
	}

	src.set([]Credential{{Label: "anon", Value: "key-D"}}, nil)

	select {
	case creds := <-updates:
		if creds[0].Value != "key-D" {
			t.Errorf("second poll value = %s, want key-D", creds[0].Value)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for changed credentials")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Poll did not return after cancel")
	}
}
