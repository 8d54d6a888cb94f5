package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/rtinspect/internal/protocol"
	"github.com/muurk/rtinspect/internal/realtime"
	"github.com/muurk/rtinspect/internal/urls"
)

// joinRecord captures what the fake server saw.
type joinRecord struct {
	apiKey      string
	vsn         string
	topic       string
	accessToken string
}

// newRealtimeServer starts a fake realtime endpoint. It answers the join with
// an ok reply, pushes one broadcast and then either waits for the client to
// leave or closes normally when closeAfterPush is set.
func newRealtimeServer(t *testing.T, closeAfterPush bool, joins chan<- joinRecord) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc(urls.RealtimePath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		join, err := protocol.Decode(data)
		if err != nil || join.Event != protocol.EventJoin {
			return
		}

		var payload protocol.JoinPayload
		_ = json.Unmarshal(join.Payload, &payload)
		joins <- joinRecord{
			apiKey:      r.URL.Query().Get("apikey"),
			vsn:         r.URL.Query().Get("vsn"),
			topic:       join.Topic,
			accessToken: payload.AccessToken,
		}

		reply := `{"topic":"` + join.Topic + `","event":"phx_reply","payload":{"status":"ok","response":{}},"ref":"` + join.RefString() + `"}`
		push := `{"topic":"` + join.Topic + `","event":"broadcast","payload":{"event":"hello"},"ref":null}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(reply))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(push))

		if closeAfterPush {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientJoinAndReceive(t *testing.T) {
	joins := make(chan joinRecord, 1)
	server := newRealtimeServer(t, false, joins)

	cfg := realtime.NewConfig("ref")
	cfg.Token = "anon-key"
	cfg.Channel = "room-1"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewClient(server.URL)
	messages := make(chan *protocol.Message, 8)
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx, cfg, messages) }()

	select {
	case join := <-joins:
		if join.apiKey != "anon-key" {
			t.Errorf("apikey = %s, want anon-key", join.apiKey)
		}
		if join.vsn != urls.ProtocolVersion {
			t.Errorf("vsn = %s, want %s", join.vsn, urls.ProtocolVersion)
		}
		if join.topic != "realtime:room-1" {
			t.Errorf("topic = %s, want realtime:room-1", join.topic)
		}
		if join.accessToken != "anon-key" {
			t.Errorf("access_token = %s, want anon-key", join.accessToken)
		}
	case <-ctx.Done():
		t.Fatal("server never saw a join")
	}

	reply := <-messages
	if reply.Status() != protocol.StatusOK {
		t.Errorf("first message = %s %s, want ok reply", reply.Event, reply.Status())
	}

	// The malformed frame is dropped
	push := <-messages
	if push.Event != protocol.EventBroadcast {
		t.Errorf("second message event = %s, want broadcast", push.Event)
	}

	if !client.Connected() {
		t.Error("Connected() should be true while running")
	}
	if err := client.UpdateAccessToken("new-token"); err != nil {
		t.Errorf("UpdateAccessToken() error = %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() after cancel = %v, want nil", err)
	}

	// out is closed once Run returns
	for range messages {
	}
	if client.Connected() {
		t.Error("Connected() should be false after Run returns")
	}
}

func TestClientImpersonationUsesBearer(t *testing.T) {
	joins := make(chan joinRecord, 1)
	server := newRealtimeServer(t, true, joins)

	cfg := realtime.Config{Token: "anon-key", Bearer: "user-jwt", Channel: "room"}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages := make(chan *protocol.Message, 8)
	err := NewClient(server.URL).Run(ctx, cfg, messages)
	if err != nil {
		t.Fatalf("Run() after server close = %v, want nil", err)
	}

	join := <-joins
	if join.apiKey != "anon-key" {
		t.Errorf("apikey = %s, want anon-key", join.apiKey)
	}
	if join.accessToken != "user-jwt" {
		t.Errorf("access_token = %s, want user-jwt", join.accessToken)
	}
}

func TestClientHandshakeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	messages := make(chan *protocol.Message)
	err := NewClient(server.URL).Run(context.Background(), realtime.Config{Token: "bad"}, messages)
	if err == nil {
		t.Fatal("Run() should fail on a rejected handshake")
	}

	if _, ok := <-messages; ok {
		t.Error("messages should be closed")
	}
}

func TestClientRequiresToken(t *testing.T) {
	messages := make(chan *protocol.Message)
	if err := NewClient("http://localhost").Run(context.Background(), realtime.Config{}, messages); err == nil {
		t.Error("Run() without a token should fail")
	}
}

func TestClientNotConnected(t *testing.T) {
	client := NewClient("http://localhost")

	if err := client.UpdateAccessToken("x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("UpdateAccessToken() = %v, want ErrNotConnected", err)
	}
	if err := client.Broadcast("ping", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Broadcast() = %v, want ErrNotConnected", err)
	}
}
