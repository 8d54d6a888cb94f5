package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/muurk/rtinspect/internal/realtime"
)

// Event names
const (
	EventJoin         = "phx_join"
	EventLeave        = "phx_leave"
	EventReply        = "phx_reply"
	EventError        = "phx_error"
	EventClose        = "phx_close"
	EventHeartbeat    = "heartbeat"
	EventAccessToken  = "access_token"
	EventBroadcast    = "broadcast"
	EventPresence     = "presence_state"
	EventPresenceDiff = "presence_diff"
	EventDBChanges    = "postgres_changes"
	EventSystem       = "system"
)

// PhoenixTopic is the topic used for heartbeats
const PhoenixTopic = "phoenix"

// Reply statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is a single channel frame.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

// RefString returns the ref or "" for server pushes.
func (m *Message) RefString() string {
	if m.Ref == nil {
		return ""
	}
	return *m.Ref
}

// Encode serializes the message for a text frame.
func (m *Message) Encode() ([]byte, error) {
	if m.Payload == nil {
		m.Payload = json.RawMessage("{}")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Event, err)
	}
	return data, nil
}

// Decode parses a text frame and validates the envelope.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if msg.Topic == "" {
		return nil, fmt.Errorf("invalid message: missing topic")
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("invalid message: missing event")
	}
	return &msg, nil
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// Status returns the reply status of a phx_reply, or "" for other events.
func (m *Message) Status() string {
	if m.Event != EventReply {
		return ""
	}
	var reply replyPayload
	if err := json.Unmarshal(m.Payload, &reply); err != nil {
		return ""
	}
	return reply.Status
}

// Response returns the response member of a phx_reply.
func (m *Message) Response() json.RawMessage {
	var reply replyPayload
	if err := json.Unmarshal(m.Payload, &reply); err != nil {
		return nil
	}
	return reply.Response
}

// RefCounter generates message refs.
type RefCounter struct {
	n atomic.Uint64
}

// NewRefCounter returns a counter whose first ref is "1".
func NewRefCounter() *RefCounter {
	return &RefCounter{}
}

// Next returns the next ref.
func (c *RefCounter) Next() string {
	return strconv.FormatUint(c.n.Add(1), 10)
}

// BroadcastConfig is the broadcast section of a join payload.
type BroadcastConfig struct {
	Self bool `json:"self"`
	Ack  bool `json:"ack"`
}

// PresenceConfig is the presence section of a join payload.
type PresenceConfig struct {
	Key string `json:"key"`
}

// DBChangeFilter selects database changes to receive.
type DBChangeFilter struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// JoinConfig is the config section of a join payload.
type JoinConfig struct {
	Broadcast       *BroadcastConfig `json:"broadcast,omitempty"`
	Presence        *PresenceConfig  `json:"presence,omitempty"`
	PostgresChanges []DBChangeFilter `json:"postgres_changes"`
}

// JoinPayload is the payload of a phx_join.
type JoinPayload struct {
	Config      JoinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

// NewJoinPayload builds the join payload for cfg. The bearer token is used as
// access token when set, so policies are evaluated for the impersonated user.
func NewJoinPayload(cfg realtime.Config) JoinPayload {
	p := JoinPayload{
		Config:      JoinConfig{PostgresChanges: []DBChangeFilter{}},
		AccessToken: cfg.AccessToken(),
	}
	if cfg.EnableBroadcast {
		p.Config.Broadcast = &BroadcastConfig{Self: true}
	}
	if cfg.EnablePresence {
		p.Config.Presence = &PresenceConfig{}
	}
	if cfg.EnableDBChanges {
		schema := cfg.Schema
		if schema == "" {
			schema = "public"
		}
		p.Config.PostgresChanges = append(p.Config.PostgresChanges, DBChangeFilter{
			Event:  "*",
			Schema: schema,
			Table:  cfg.Table,
			Filter: cfg.Filter,
		})
	}
	return p
}

func newMessage(topic, event, ref string, payload any) *Message {
	raw, err := json.Marshal(payload)
	if err != nil {
		// payloads built here are plain structs and maps
		raw = json.RawMessage("{}")
	}
	msg := &Message{Topic: topic, Event: event, Payload: raw}
	if ref != "" {
		msg.Ref = &ref
	}
	return msg
}

// JoinMessage builds the phx_join for cfg's channel.
func JoinMessage(cfg realtime.Config, ref string) *Message {
	return newMessage(cfg.Topic(), EventJoin, ref, NewJoinPayload(cfg))
}

// LeaveMessage builds a phx_leave for topic.
func LeaveMessage(topic, ref string) *Message {
	return newMessage(topic, EventLeave, ref, struct{}{})
}

// HeartbeatMessage builds a heartbeat on the phoenix topic.
func HeartbeatMessage(ref string) *Message {
	return newMessage(PhoenixTopic, EventHeartbeat, ref, struct{}{})
}

// AccessTokenMessage replaces the access token of a joined topic.
func AccessTokenMessage(topic, token, ref string) *Message {
	return newMessage(topic, EventAccessToken, ref, map[string]string{"access_token": token})
}

// BroadcastMessage publishes payload under event name on topic.
func BroadcastMessage(topic, event string, payload any, ref string) *Message {
	return newMessage(topic, EventBroadcast, ref, map[string]any{
		"type":    EventBroadcast,
		"event":   event,
		"payload": payload,
	})
}
