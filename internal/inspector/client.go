package inspector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/rtinspect/internal/logging"
	"github.com/muurk/rtinspect/internal/protocol"
	"github.com/muurk/rtinspect/internal/realtime"
	"github.com/muurk/rtinspect/internal/urls"
)

const (
	// DefaultHeartbeatInterval is how often a heartbeat is sent
	DefaultHeartbeatInterval = 25 * time.Second

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed without any frame from the peer
	readWait = 60 * time.Second

	// Maximum message size accepted from the peer
	maxMessageSize = 1 << 20
)

// ErrNotConnected is returned by operations that need a live connection.
var ErrNotConnected = errors.New("not connected")

// errServerClosed stops the loops when the server closes normally.
var errServerClosed = errors.New("connection closed by server")

// Client is a realtime channel test client.
type Client struct {
	// ProjectURL is the project base URL (http, https, ws or wss)
	ProjectURL string

	// Dialer is the websocket dialer
	Dialer *websocket.Dialer

	// HeartbeatInterval is the heartbeat period
	HeartbeatInterval time.Duration

	refs *protocol.RefCounter

	mu    sync.Mutex // guards conn, topic and writes
	conn  *websocket.Conn
	topic string
}

// NewClient creates a client for the project at projectURL.
func NewClient(projectURL string) *Client {
	return &Client{
		ProjectURL:        projectURL,
		Dialer:            &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		HeartbeatInterval: DefaultHeartbeatInterval,
		refs:              protocol.NewRefCounter(),
	}
}

// Connected reports whether a connection is live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run connects with cfg, joins its channel and forwards received messages to
// out until ctx is cancelled or the connection fails. out is closed on return.
// A cancelled context is not an error.
func (c *Client) Run(ctx context.Context, cfg realtime.Config, out chan<- *protocol.Message) error {
	defer close(out)

	conn, err := c.dial(ctx, cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.topic = cfg.Topic()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.topic = ""
		}
		c.mu.Unlock()
		_ = conn.Close()
		logging.Info("Realtime connection closed", zap.String("topic", cfg.Topic()))
	}()

	if err := c.send(protocol.JoinMessage(cfg, c.refs.Next())); err != nil {
		return fmt.Errorf("failed to join %s: %w", cfg.Topic(), err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.readLoop(gctx, conn, out)
	})

	g.Go(func() error {
		return c.heartbeatLoop(gctx)
	})

	// Unblocks the read loop once either loop fails or ctx is cancelled.
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			_ = c.send(protocol.LeaveMessage(cfg.Topic(), c.refs.Next()))
			c.mu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			c.mu.Unlock()
		}
		return conn.Close()
	})

	err = g.Wait()
	if ctx.Err() != nil || errors.Is(err, errServerClosed) {
		return nil
	}
	return err
}

func (c *Client) dial(ctx context.Context, cfg realtime.Config) (*websocket.Conn, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("no API key configured")
	}

	endpoint, err := urls.RealtimeURL(c.ProjectURL, cfg.Token)
	if err != nil {
		return nil, err
	}

	logging.Info("Connecting to realtime",
		zap.String("project_url", c.ProjectURL),
		zap.String("topic", cfg.Topic()),
		zap.Bool("impersonating", cfg.Impersonating()),
	)

	conn, resp, err := c.Dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with HTTP %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", c.ProjectURL, err)
	}

	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- *protocol.Message) error {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			return err
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errServerClosed
			}
			return fmt.Errorf("read failed: %w", err)
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			logging.Warn("Dropping malformed frame",
				zap.Int("length", len(data)),
				zap.Error(err),
			)
			continue
		}
		logging.LogChannelMessage("received", msg.Topic, msg.Event, msg.RefString(), msg.Payload)

		if msg.Event == protocol.EventReply && msg.Topic != protocol.PhoenixTopic && msg.Status() == protocol.StatusError {
			logging.Warn("Channel reply with error",
				zap.String("topic", msg.Topic),
				zap.String("response", string(msg.Response())),
			)
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Client) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.send(protocol.HeartbeatMessage(c.refs.Next())); err != nil {
				return fmt.Errorf("heartbeat failed: %w", err)
			}
		}
	}
}

// UpdateAccessToken sends a new access token for the joined channel.
func (c *Client) UpdateAccessToken(token string) error {
	c.mu.Lock()
	topic := c.topic
	c.mu.Unlock()

	if topic == "" {
		return ErrNotConnected
	}
	return c.send(protocol.AccessTokenMessage(topic, token, c.refs.Next()))
}

// Broadcast publishes payload under event on the joined channel.
func (c *Client) Broadcast(event string, payload any) error {
	c.mu.Lock()
	topic := c.topic
	c.mu.Unlock()

	if topic == "" {
		return ErrNotConnected
	}
	return c.send(protocol.BroadcastMessage(topic, event, payload, c.refs.Next()))
}

func (c *Client) send(msg *protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Event, err)
	}

	logging.LogChannelMessage("sent", msg.Topic, msg.Event, msg.RefString(), msg.Payload)
	return nil
}
