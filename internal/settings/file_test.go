package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testKeysFile = `keys:
  - label: anon
    value: key-B
  - label: service_role
    value: key-C
`

func writeKeys(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write keys file: %v", err)
	}
}

func TestFileSourceFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	writeKeys(t, path, testKeysFile)

	creds, err := NewFileSource(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	want := []Credential{{Label: "anon", Value: "key-B"}, {Label: "service_role", Value: "key-C"}}
	if !Equal(creds, want) {
		t.Errorf("Fetch() = %v, want %v", creds, want)
	}
}

func TestFileSourceFetchErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewFileSource(filepath.Join(dir, "missing.yaml")).Fetch(context.Background()); !hasType(err, ErrTypeConfig) {
		t.Errorf("missing file error = %v, want config error", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	writeKeys(t, bad, "keys: [unterminated")
	if _, err := NewFileSource(bad).Fetch(context.Background()); !hasType(err, ErrTypeParse) {
		t.Errorf("malformed file error = %v, want parse error", err)
	}
}

func TestFileSourceFetchEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	writeKeys(t, path, "# no keys yet\n")

	creds, err := NewFileSource(path).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if creds == nil || len(creds) != 0 {
		t.Errorf("Fetch() = %#v, want non-nil empty list", creds)
	}
}

func TestFileSourceWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.yaml")
	writeKeys(t, path, testKeysFile)

	source := NewFileSource(path)
	provider := NewProvider(source)
	if err := provider.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	updates := make(chan []Credential, 4)
	provider.Subscribe(func(creds []Credential) { updates <- creds })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchErr := make(chan error, 1)
	go func() { watchErr <- source.Watch(ctx, provider) }()

	// Give the watcher time to register before writing
	time.Sleep(50 * time.Millisecond)
	writeKeys(t, path, "keys:\n  - label: anon\n    value: key-D\n")

	select {
	case creds := <-updates:
		anon, ok := FindByLabel(creds, AnonLabel)
		if !ok || anon.Value != "key-D" {
			t.Errorf("reloaded credentials = %v, want anon=key-D", creds)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for keys file reload")
	}

	cancel()
	if err := <-watchErr; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
