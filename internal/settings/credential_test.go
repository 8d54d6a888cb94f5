package settings

import (
	"errors"
	"strings"
	"testing"
)

func TestFindByLabel(t *testing.T) {
	creds := []Credential{
		{Label: "anon", Value: "key-B"},
		{Label: "service_role", Value: "key-C"},
		{Label: "anon", Value: "duplicate"},
	}

	anon, ok := FindByLabel(creds, AnonLabel)
	if !ok || anon.Value != "key-B" {
		t.Errorf("FindByLabel(anon) = %v, %v; want first match key-B", anon, ok)
	}

	if _, ok := FindByLabel(creds, "missing"); ok {
		t.Error("FindByLabel(missing) should not match")
	}

	if _, ok := FindByLabel(nil, AnonLabel); ok {
		t.Error("FindByLabel on nil list should not match")
	}
}

func TestFindByValue(t *testing.T) {
	creds := []Credential{{Label: "anon", Value: "key-B"}, {Label: "service_role", Value: "key-C"}}

	if c, ok := FindByValue(creds, "key-C"); !ok || c.Label != ServiceRoleLabel {
		t.Errorf("FindByValue(key-C) = %v, %v", c, ok)
	}
	if _, ok := FindByValue(creds, ""); ok {
		t.Error("FindByValue with empty value should not match")
	}
}

func TestLabels(t *testing.T) {
	got := Labels([]Credential{{Label: "anon"}, {Label: "service_role"}})
	if strings.Join(got, ",") != "anon,service_role" {
		t.Errorf("Labels() = %v", got)
	}
}

func TestErrorTypeString(t *testing.T) {
	if ErrTypeAuth.String() != "Authentication Error" {
		t.Errorf("ErrTypeAuth.String() = %s", ErrTypeAuth.String())
	}
	if ErrorType(99).String() != "ErrorType(99)" {
		t.Errorf("ErrorType(99).String() = %s", ErrorType(99).String())
	}
}

func TestSettingsErrorWrapping(t *testing.T) {
	cause := errors.New("dial failed")
	err := classifyNetworkError("settings request failed", cause)

	if !errors.Is(err, cause) {
		t.Error("SettingsError should unwrap to its cause")
	}
	if !IsRetryable(err) {
		t.Error("generic network errors should be retryable")
	}
	if !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("Error() = %q, should include cause", err.Error())
	}
}

func TestNewStatusError(t *testing.T) {
	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{401, ErrTypeAuth, false},
		{403, ErrTypeAuth, false},
		{404, ErrTypeNotFound, false},
		{429, ErrTypeHTTP, true},
		{500, ErrTypeHTTP, true},
		{400, ErrTypeHTTP, false},
	}

	for _, tt := range tests {
		err := newStatusError(tt.status, "")
		if err.Type != tt.wantType {
			t.Errorf("status %d: Type = %v, want %v", tt.status, err.Type, tt.wantType)
		}
		if err.Retryable != tt.retryable {
			t.Errorf("status %d: Retryable = %v, want %v", tt.status, err.Retryable, tt.retryable)
		}
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	if hint := GetTroubleshootingHint(newStatusError(401, "")); !strings.Contains(hint, "RTINSPECT_ACCESS_TOKEN") {
		t.Errorf("auth hint = %q, should mention RTINSPECT_ACCESS_TOKEN", hint)
	}
	if hint := GetTroubleshootingHint(errors.New("plain")); !strings.Contains(hint, "unexpected") {
		t.Errorf("generic hint = %q", hint)
	}
}
