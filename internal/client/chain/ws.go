package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Registry event stream. The registry pushes one event per listing state
// change; the stream keeps the local read model fresh between sync pages.

type RegistryEvent struct {
	EventType string `json:"event_type"`
	TokenID   uint64 `json:"token_id"`
	Seller    string `json:"seller,omitempty"`
	Buyer     string `json:"buyer,omitempty"`
	PriceE8s  uint64 `json:"price_e8s,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

const (
	EventListed   = "listed"
	EventUnlisted = "unlisted"
	EventSold     = "sold"
)

type WSClient struct {
	url  string
	conn *websocket.Conn
}

func NewWSClient(url string) *WSClient {
	return &WSClient{url: url}
}

func (c *WSClient) Connect(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("ws client is nil")
	}
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)
	c.conn = conn
	return nil
}

func (c *WSClient) Close(status websocket.StatusCode, reason string) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close(status, reason)
}

type subscribeRequest struct {
	Type string `json:"type"`
}

func (c *WSClient) Subscribe(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("ws not connected")
	}
	payload, err := json.Marshal(subscribeRequest{Type: "listings"})
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func (c *WSClient) Read(ctx context.Context) (RegistryEvent, []byte, error) {
	if c == nil || c.conn == nil {
		return RegistryEvent{}, nil, fmt.Errorf("ws not connected")
	}
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return RegistryEvent{}, nil, err
	}
	var ev RegistryEvent
	_ = json.Unmarshal(data, &ev)
	return ev, data, nil
}

func (c *WSClient) respondPong(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("ws not connected")
	}
	return c.conn.Write(ctx, websocket.MessageText, []byte(`{"event_type":"pong"}`))
}

type EventStreamOptions struct {
	URL               string
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	BackoffMin        time.Duration
	BackoffMax        time.Duration
	Logger            *zap.Logger
}

type EventStream struct {
	opts      EventStreamOptions
	seenFirst bool
}

func NewEventStream(opts EventStreamOptions) *EventStream {
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 20 * time.Second
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.BackoffMin == 0 {
		opts.BackoffMin = 1 * time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 30 * time.Second
	}
	return &EventStream{opts: opts}
}

// Run connects, subscribes, and dispatches events until ctx is cancelled,
// reconnecting with jittered backoff after any failure.
func (s *EventStream) Run(ctx context.Context, onEvent func(RegistryEvent, []byte)) error {
	if s == nil {
		return fmt.Errorf("stream is nil")
	}
	if strings.TrimSpace(s.opts.URL) == "" {
		return fmt.Errorf("stream url is empty")
	}
	backoff := s.opts.BackoffMin
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		client := NewWSClient(s.opts.URL)
		if err := client.Connect(ctx); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("registry ws connect failed", zap.Error(err))
			}
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		if s.opts.Logger != nil {
			s.opts.Logger.Info("registry ws connected")
		}
		if err := client.Subscribe(ctx); err != nil {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn("registry ws subscribe failed", zap.Error(err))
			}
			_ = client.Close(websocket.StatusInternalError, "subscribe failed")
			if err := sleepWithJitter(ctx, backoff); err != nil {
				return err
			}
			backoff = nextBackoff(backoff, s.opts.BackoffMax)
			continue
		}
		backoff = s.opts.BackoffMin

		err := s.consume(ctx, client, onEvent)
		_ = client.Close(websocket.StatusNormalClosure, "reconnect")
		if err == nil || errors.Is(err, context.Canceled) {
			return err
		}
		if err := sleepWithJitter(ctx, backoff); err != nil {
			return err
		}
		backoff = nextBackoff(backoff, s.opts.BackoffMax)
	}
}

func (s *EventStream) consume(ctx context.Context, client *WSClient, onEvent func(RegistryEvent, []byte)) error {
	if client == nil {
		return fmt.Errorf("ws client is nil")
	}
	heartbeatErr := make(chan error, 1)
	heartbeatCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(s.opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				heartbeatErr <- heartbeatCtx.Err()
				return
			case <-ticker.C:
				pingCtx, cancelPing := context.WithTimeout(heartbeatCtx, s.opts.PingTimeout)
				err := client.conn.Ping(pingCtx)
				cancelPing()
				if err != nil {
					heartbeatErr <- err
					return
				}
			}
		}
	}()

	for {
		select {
		case err := <-heartbeatErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		default:
		}
		ev, raw, err := client.Read(ctx)
		if err != nil {
			if s.opts.Logger != nil && !errors.Is(err, context.Canceled) {
				s.opts.Logger.Warn("registry ws read failed", zap.Error(err))
			}
			return err
		}
		if isPingPayload(ev, raw) {
			_ = client.respondPong(ctx)
			continue
		}
		if s.opts.Logger != nil && !s.seenFirst {
			s.seenFirst = true
			s.opts.Logger.Info("registry ws first event", zap.String("event_type", ev.EventType))
		}
		if onEvent != nil {
			onEvent(ev, raw)
		}
	}
}

func isPingPayload(ev RegistryEvent, raw []byte) bool {
	if strings.EqualFold(ev.EventType, "ping") {
		return true
	}
	if strings.TrimSpace(string(raw)) == "ping" {
		return true
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err == nil {
		return strings.EqualFold(head.Type, "ping")
	}
	return false
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(base / 2)))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
