package realtime

import (
	"sync"
	"testing"
	"time"
)

func TestConfigAccessToken(t *testing.T) {
	cfg := Config{Token: "key-B"}
	if cfg.AccessToken() != "key-B" {
		t.Errorf("AccessToken() = %s, want key-B", cfg.AccessToken())
	}
	if cfg.Impersonating() {
		t.Error("Impersonating() should be false without bearer")
	}

	cfg.Bearer = "jwt-123"
	if cfg.AccessToken() != "jwt-123" {
		t.Errorf("AccessToken() = %s, want jwt-123", cfg.AccessToken())
	}
}

func TestConfigTopic(t *testing.T) {
	if got := (Config{}).Topic(); got != "realtime:"+DefaultChannel {
		t.Errorf("Topic() = %s", got)
	}
	if got := (Config{Channel: "room"}).Topic(); got != "realtime:room" {
		t.Errorf("Topic() = %s, want realtime:room", got)
	}
}

func TestConfigWithAndGet(t *testing.T) {
	cfg := NewConfig("ref")
	for _, field := range Fields {
		updated := cfg.With(field, "value-"+string(field))
		if got := updated.Get(field); got != "value-"+string(field) {
			t.Errorf("With(%s).Get = %s", field, got)
		}
	}

	if cfg.With(Field("nope"), "x") != cfg {
		t.Error("With(unknown) should leave the config unchanged")
	}
	if cfg.Token != "" {
		t.Error("With must not mutate the receiver")
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		input   string
		want    Field
		wantErr bool
	}{
		{"token", FieldToken, false},
		{" Bearer ", FieldBearer, false},
		{"CHANNEL", FieldChannel, false},
		{"project_ref", "", true},
	}

	for _, tt := range tests {
		got, err := ParseField(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseField(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseField(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStoreObserve(t *testing.T) {
	store := NewStore(Config{Token: "a"})

	var sources []WriteSource
	cancel := store.Observe(func(cfg Config, source WriteSource) {
		sources = append(sources, source)
	})

	store.SetConfig(Config{Token: "b"})
	store.Replace(Config{Token: "c"}, SourceCommit)
	store.Update(func(cfg Config) Config { cfg.Bearer = "jwt"; return cfg }, SourceCredentials)
	cancel()
	store.SetConfig(Config{Token: "d"})

	want := []WriteSource{SourceExternal, SourceCommit, SourceCredentials}
	if len(sources) != len(want) {
		t.Fatalf("observed %v, want %v", sources, want)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Errorf("sources[%d] = %v, want %v", i, sources[i], want[i])
		}
	}
	if store.Config().Token != "d" {
		t.Errorf("Token = %s, want d", store.Config().Token)
	}
}

func TestStoreNotifiesInWriteOrder(t *testing.T) {
	store := NewStore(Config{})

	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var seen []string
	store.Observe(func(cfg Config, _ WriteSource) {
		if cfg.Token == "old" {
			close(entered)
			<-release
		}
		mu.Lock()
		seen = append(seen, cfg.Token)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		store.SetConfig(Config{Token: "old"})
	}()
	<-entered
	go func() {
		defer wg.Done()
		store.SetConfig(Config{Token: "new"})
	}()

	// Give the second write time to overtake the stalled notification
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if len(seen) != 2 || seen[0] != "old" || seen[1] != "new" {
		t.Errorf("observed %v, want [old new]", seen)
	}
	if store.Config().Token != "new" {
		t.Errorf("Token = %s, want new", store.Config().Token)
	}
}

func TestWriteSourceString(t *testing.T) {
	if SourceCredentials.String() != "credentials" {
		t.Errorf("SourceCredentials.String() = %s", SourceCredentials.String())
	}
	if WriteSource(42).String() != "unknown" {
		t.Errorf("WriteSource(42).String() = %s", WriteSource(42).String())
	}
}
