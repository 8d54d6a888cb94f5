package realtime

import (
	"fmt"
	"strings"
)

// Config describes one realtime test connection.
type Config struct {
	// ProjectRef identifies the project whose settings supply credentials
	ProjectRef string `json:"project_ref"`

	// Token is the API key sent as apikey (e.g., the anon key)
	Token string `json:"token"`

	// Bearer is a user JWT used in place of Token as the channel access token.
	// Empty means no impersonation.
	Bearer string `json:"bearer,omitempty"`

	// Channel is the channel name joined as "realtime:<Channel>"
	Channel string `json:"channel"`

	// Schema, Table and Filter scope postgres change subscriptions
	Schema string `json:"schema,omitempty"`
	Table  string `json:"table,omitempty"`
	Filter string `json:"filter,omitempty"`

	EnableBroadcast bool `json:"enable_broadcast"`
	EnablePresence  bool `json:"enable_presence"`
	EnableDBChanges bool `json:"enable_db_changes"`
}

// DefaultChannel is used when no channel name is configured.
const DefaultChannel = "realtime-inspector"

// NewConfig returns a Config for projectRef with broadcast and presence enabled.
func NewConfig(projectRef string) Config {
	return Config{
		ProjectRef:      projectRef,
		Channel:         DefaultChannel,
		Schema:          "public",
		Table:           "*",
		EnableBroadcast: true,
		EnablePresence:  true,
	}
}

// AccessToken returns the token presented when joining a channel: the
// impersonated user's JWT when set, the API key otherwise.
func (c Config) AccessToken() string {
	if c.Bearer != "" {
		return c.Bearer
	}
	return c.Token
}

// Impersonating reports whether a user JWT is configured.
func (c Config) Impersonating() bool {
	return c.Bearer != ""
}

// Topic returns the channel topic joined by the inspector.
func (c Config) Topic() string {
	channel := c.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return "realtime:" + channel
}

// Field names a string field of Config that can be edited in a draft.
type Field string

const (
	FieldToken   Field = "token"
	FieldBearer  Field = "bearer"
	FieldChannel Field = "channel"
	FieldSchema  Field = "schema"
	FieldTable   Field = "table"
	FieldFilter  Field = "filter"
)

// Fields lists every editable field.
var Fields = []Field{FieldToken, FieldBearer, FieldChannel, FieldSchema, FieldTable, FieldFilter}

// ParseField converts a field name (case-insensitive) into a Field.
func ParseField(name string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Fields {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown config field %q", name)
}

// Get returns the value of field.
func (c Config) Get(field Field) string {
	switch field {
	case FieldToken:
		return c.Token
	case FieldBearer:
		return c.Bearer
	case FieldChannel:
		return c.Channel
	case FieldSchema:
		return c.Schema
	case FieldTable:
		return c.Table
	case FieldFilter:
		return c.Filter
	default:
		return ""
	}
}

// With returns a copy of c with field set to value. Unknown fields leave c unchanged.
func (c Config) With(field Field, value string) Config {
	switch field {
	case FieldToken:
		c.Token = value
	case FieldBearer:
		c.Bearer = value
	case FieldChannel:
		c.Channel = value
	case FieldSchema:
		c.Schema = value
	case FieldTable:
		c.Table = value
	case FieldFilter:
		c.Filter = value
	}
	return c
}
