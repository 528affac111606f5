package discord

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Gateway intents: guilds, members, guild messages, direct messages and
// message content.
const gatewayIntents = (1 << 0) | (1 << 1) | (1 << 9) | (1 << 12) | (1 << 15)

// Gateway maintains the event connection to Discord: identify, heartbeat,
// dispatch, and reconnect with exponential backoff. Dispatched events are
// handed to the engine on their own goroutines; ordering per user is the
// engine's concern, not the socket reader's.
type Gateway struct {
	url       string
	token     string
	transport *Transport
	handler   ports.EventHandler
	logger    *slog.Logger

	minWait time.Duration
	maxWait time.Duration

	connected atomic.Bool
	seq       atomic.Int64

	// writeMu serializes socket writes: the heartbeat goroutine and the
	// read loop's op-1 replies share one connection.
	writeMu sync.Mutex
}

// NewGateway creates a gateway client. Events flow into handler; guild and
// bot-identity state flows into transport's cache.
func NewGateway(url, token string, transport *Transport, handler ports.EventHandler, logger *slog.Logger, minWait, maxWait time.Duration) *Gateway {
	if minWait <= 0 {
		minWait = time.Second
	}
	if maxWait <= 0 {
		maxWait = time.Minute
	}
	return &Gateway{
		url:       url,
		token:     token,
		transport: transport,
		handler:   handler,
		logger:    logger.With("component", "gateway"),
		minWait:   minWait,
		maxWait:   maxWait,
	}
}

// Connected reports whether the gateway session is currently live. Used by
// the readiness probe.
func (g *Gateway) Connected() bool {
	return g.connected.Load()
}

// Run connects and processes events until ctx is cancelled, reconnecting
// with exponential backoff after any session loss.
func (g *Gateway) Run(ctx context.Context) {
	wait := g.minWait
	for {
		start := time.Now()
		err := g.session(ctx)
		g.connected.Store(false)
		if ctx.Err() != nil {
			return
		}

		// A session that survived a while means the last reconnect worked;
		// start the backoff over.
		if time.Since(start) > time.Minute {
			wait = g.minWait
		}

		g.logger.Warn("gateway session ended, reconnecting", "error", err, "wait", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		wait *= 2
		if wait > g.maxWait {
			wait = g.maxWait
		}
	}
}

type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s"`
	T  string          `json:"t"`
}

func (g *Gateway) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when ctx is cancelled so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var hello payload
	if err := conn.ReadJSON(&hello); err != nil {
		return err
	}
	if hello.Op != opHello {
		return errors.New("expected hello as first gateway payload")
	}
	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return err
	}

	if err := g.identify(conn); err != nil {
		return err
	}

	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go g.heartbeat(conn, time.Duration(helloData.HeartbeatInterval)*time.Millisecond, heartbeatDone)

	for {
		var p payload
		if err := conn.ReadJSON(&p); err != nil {
			return err
		}
		if p.S != nil {
			g.seq.Store(*p.S)
		}

		switch p.Op {
		case opDispatch:
			g.dispatch(ctx, p)
		case opHeartbeat:
			g.sendHeartbeat(conn)
		case opReconnect, opInvalidSession:
			return errors.New("server requested reconnect")
		case opHeartbeatAck:
			// nothing to do
		}
	}
}

func (g *Gateway) writeJSON(conn *websocket.Conn, v any) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (g *Gateway) identify(conn *websocket.Conn) error {
	return g.writeJSON(conn, map[string]any{
		"op": opIdentify,
		"d": map[string]any{
			"token":   g.token,
			"intents": gatewayIntents,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "modmail-backend",
				"device":  "modmail-backend",
			},
		},
	})
}

func (g *Gateway) heartbeat(conn *websocket.Conn, interval time.Duration, done chan struct{}) {
	if interval <= 0 {
		interval = 41250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := g.sendHeartbeat(conn); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) sendHeartbeat(conn *websocket.Conn) error {
	seq := g.seq.Load()
	var d any
	if seq > 0 {
		d = seq
	}
	return g.writeJSON(conn, map[string]any{"op": opHeartbeat, "d": d})
}

func (g *Gateway) dispatch(ctx context.Context, p payload) {
	switch p.T {
	case "READY":
		var ready struct {
			User   wireUser    `json:"user"`
			Guilds []wireGuild `json:"guilds"`
		}
		if err := json.Unmarshal(p.D, &ready); err != nil {
			g.logger.Error("failed to decode READY", "error", err)
			return
		}
		g.transport.setBotUser(ready.User.ID)
		for _, guild := range ready.Guilds {
			// READY carries unavailable stubs; GUILD_CREATE fills them in.
			g.transport.upsertGuild(guild.toDomain())
		}
		g.connected.Store(true)
		g.logger.Info("gateway ready", "bot_user_id", ready.User.ID, "guilds", len(ready.Guilds))

	case "GUILD_CREATE":
		var guild wireGuild
		if err := json.Unmarshal(p.D, &guild); err != nil {
			g.logger.Error("failed to decode GUILD_CREATE", "error", err)
			return
		}
		g.transport.upsertGuild(guild.toDomain())

	case "GUILD_DELETE":
		var guild wireGuild
		if err := json.Unmarshal(p.D, &guild); err != nil {
			g.logger.Error("failed to decode GUILD_DELETE", "error", err)
			return
		}
		if !guild.Unavailable {
			g.transport.removeGuild(guild.ID)
		}

	case "MESSAGE_CREATE":
		var msg wireMessage
		if err := json.Unmarshal(p.D, &msg); err != nil {
			g.logger.Error("failed to decode MESSAGE_CREATE", "error", err)
			return
		}
		go g.handler.HandleMessage(ctx, msg.toDomain())

	case "INTERACTION_CREATE":
		var it wireInteraction
		if err := json.Unmarshal(p.D, &it); err != nil {
			g.logger.Error("failed to decode INTERACTION_CREATE", "error", err)
			return
		}
		if it.Type != interactionTypeComponent {
			return
		}
		go g.handler.HandleInteraction(ctx, it.toDomain())
	}
}
