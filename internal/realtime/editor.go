package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/rtinspect/internal/logging"
	"github.com/muurk/rtinspect/internal/settings"
)

// CredentialSource supplies the credential list and its changes.
// *settings.Provider implements it.
type CredentialSource interface {
	Credentials() []settings.Credential
	Subscribe(observer settings.Observer) *settings.Subscription
}

// Editor stages edits to an owner's Config and commits them atomically.
type Editor struct {
	owner ConfigOwner
	sub   *settings.Subscription

	mu            sync.Mutex
	isOpen        bool
	impersonating bool
	draft         Config
	creds         []settings.Credential
}

// NewEditor creates an editor for owner and subscribes it to creds. The
// current credential list is applied immediately. creds may be nil.
func NewEditor(owner ConfigOwner, creds CredentialSource) *Editor {
	e := &Editor{
		owner: owner,
		draft: owner.Config(),
	}

	if creds != nil {
		e.creds = creds.Credentials()
		e.syncAnonToken(e.creds)
		e.sub = creds.Subscribe(e.onCredentials)
	}

	return e
}

// Teardown removes the credential subscription. The editor keeps working
// but no longer follows credential updates.
func (e *Editor) Teardown() {
	e.sub.Unsubscribe()
}

// Open starts an editing session with a fresh copy of the owner's Config,
// discarding any previous unsaved draft. A draft that carries a bearer token
// turns impersonation on.
func (e *Editor) Open() {
	cfg := e.owner.Config()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.draft = cfg
	if cfg.Bearer != "" {
		e.impersonating = true
	}
	e.isOpen = true
}

// Close ends the editing session. The draft stays as-is but is ignored until
// the next Open.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isOpen = false
}

// SetDraftField sets one draft field. Values are not validated, but bearer
// writes are dropped while impersonation is disabled so that a draft without
// impersonation never carries a bearer token. Enable impersonation first with
// ToggleImpersonation.
func (e *Editor) SetDraftField(field Field, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if field == FieldBearer && !e.impersonating {
		return
	}
	e.draft = e.draft.With(field, value)
}

// ToggleImpersonation flips impersonation and returns the new state.
// Turning it off clears the draft bearer; turning it on selects the anon
// credential as draft token when one exists.
func (e *Editor) ToggleImpersonation() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.impersonating = !e.impersonating
	if !e.impersonating {
		e.draft.Bearer = ""
		return false
	}

	if anon, ok := settings.FindByLabel(e.creds, settings.AnonLabel); ok {
		e.draft.Token = anon.Value
	}
	return true
}

// Commit replaces the owner's Config with the draft and closes the editor.
// On a closed editor the draft has been discarded and Commit does nothing.
func (e *Editor) Commit() {
	e.mu.Lock()
	if !e.isOpen {
		e.mu.Unlock()
		return
	}
	draft := e.draft
	e.isOpen = false
	e.mu.Unlock()

	replaceConfig(e.owner, draft, SourceCommit)
}

// CancelAndClose closes the editor without touching the owner's Config.
func (e *Editor) CancelAndClose() {
	e.Close()
}

// IsOpen reports whether an editing session is active.
func (e *Editor) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isOpen
}

// ImpersonationEnabled reports whether the bearer field is editable.
func (e *Editor) ImpersonationEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.impersonating
}

// Draft returns a copy of the current draft.
func (e *Editor) Draft() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Credentials returns the last credential list seen by the editor.
func (e *Editor) Credentials() []settings.Credential {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]settings.Credential(nil), e.creds...)
}

// AnonCredential returns the anon credential, if the current list has one.
func (e *Editor) AnonCredential() (settings.Credential, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return settings.FindByLabel(e.creds, settings.AnonLabel)
}

// TokenLocked reports whether token selection is disabled: impersonation is
// on and an anon credential exists. Only the UI enforces the lock.
func (e *Editor) TokenLocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, hasAnon := settings.FindByLabel(e.creds, settings.AnonLabel)
	return e.impersonating && hasAnon
}

func (e *Editor) onCredentials(creds []settings.Credential) {
	e.mu.Lock()
	e.creds = append([]settings.Credential(nil), creds...)
	e.mu.Unlock()

	e.syncAnonToken(creds)
}

// syncAnonToken is the credential write path: it points the owner's Token at
// the anon key, bypassing the draft.
func (e *Editor) syncAnonToken(creds []settings.Credential) {
	anon, ok := settings.FindByLabel(creds, settings.AnonLabel)
	if !ok {
		return
	}

	logging.Debug("Syncing token to anon credential", zap.String("token", logging.Mask(anon.Value)))
	updateConfig(e.owner, func(cfg Config) Config {
		cfg.Token = anon.Value
		return cfg
	}, SourceCredentials)
}
