// Package realtime holds the connection configuration of a realtime test
// session and the staged editor used to change it.
//
// # Ownership
//
// A Config is owned by a ConfigOwner (normally a Store). Nothing outside the
// owner mutates it; callers request a wholesale replacement with SetConfig.
//
// # Staged Editing
//
// Editor implements the "Test RLS policies" editing surface. Opening it
// copies the owner's Config into a draft. Field edits and the impersonation
// toggle change only the draft. Commit replaces the owner's Config with the
// draft and closes; CancelAndClose closes without writing:
//
//	CLOSED --Open()--> OPEN (draft = copy of owner's config)
//	OPEN --SetDraftField/ToggleImpersonation--> OPEN
//	OPEN --Commit()--> CLOSED (owner := draft)
//	OPEN --CancelAndClose()--> CLOSED (owner unchanged)
//
// # Credential Sync
//
// The editor also subscribes to a CredentialSource when it is created. Every
// time the credential list changes and contains an "anon" record, the owner's
// Token is replaced with that value directly, whether or not the editor is
// open. This is the second of exactly two write paths into the owner; the
// Store records which path produced each replacement (SourceCommit or
// SourceCredentials). Call Teardown to remove the subscription.
//
// # Thread Safety
//
// Editor and Store are safe for concurrent use. Credential updates may arrive
// from provider goroutines while the user is editing; Commit always writes the
// draft snapshot taken under the editor's lock.
package realtime
