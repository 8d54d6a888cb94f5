// Package protocol implements the realtime channel wire format.
//
// The realtime service speaks the Phoenix channel protocol over a WebSocket
// text connection. Every frame is a JSON object with four members:
//
//	{"topic": "realtime:room-1", "event": "phx_join", "payload": {...}, "ref": "1"}
//
// # Events
//
// Client to server:
//   - phx_join: subscribe to a topic; the payload carries the channel config
//     and the access token
//   - heartbeat: keepalive on the "phoenix" topic, expected every 30 seconds
//   - access_token: replace the token of a joined channel
//   - phx_leave: unsubscribe from a topic
//   - broadcast: publish a message to other subscribers
//
// Server to client:
//   - phx_reply: answer to a ref, with payload {"status": "ok"|"error", "response": {...}}
//   - broadcast, presence_state, presence_diff, postgres_changes: channel traffic
//   - phx_error, phx_close, system: channel lifecycle
//
// # Usage
//
//	refs := protocol.NewRefCounter()
//	join := protocol.JoinMessage(cfg, refs.Next())
//	data, err := join.Encode()
//	...
//	msg, err := protocol.Decode(frame)
//	if msg.Event == protocol.EventReply && msg.Status() == protocol.StatusOK {
//	    ...
//	}
//
// Encoding and decoding are stateless and safe for concurrent use. RefCounter
// uses atomic operations.
package protocol
