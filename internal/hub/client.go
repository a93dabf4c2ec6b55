package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

// Connection states. Active may only move forward to Closing; there is no
// resurrection.
const (
	StateConnecting int32 = iota
	StateAuthenticating
	StateActive
	StateClosing
	StateClosed
)

// Client is one live WebSocket connection. Inbound frames are processed
// strictly sequentially in the read pump, which preserves causal command
// ordering per connection.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	socketID string
	send     chan []byte

	world  *domain.World
	config domain.WorldConfig

	state atomic.Int32

	// mu guards user, traits, label and channels after authentication.
	mu       sync.RWMutex
	user     *domain.User
	traits   []string
	label    string
	channels map[string]bool

	ctx         context.Context
	cancel      context.CancelFunc
	authTimer   *time.Timer
	closeOnce   sync.Once
	cleanupOnce sync.Once
}

func NewClient(h *Hub, conn *websocket.Conn, world *domain.World, config domain.WorldConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		hub:      h,
		conn:     conn,
		socketID: uuid.NewString(),
		send:     make(chan []byte, sendBufferSize),
		world:    world,
		config:   config,
		channels: make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.state.Store(StateConnecting)
	return c
}

// Run registers the client and starts its pumps. The connection enters
// AUTHENTICATING and is closed if no valid authenticate frame arrives within
// the hub's auth timeout.
func (c *Client) Run() {
	c.hub.register(c)
	c.state.Store(StateAuthenticating)
	c.authTimer = time.AfterFunc(c.hub.authTimeout, func() {
		if c.state.Load() == StateAuthenticating {
			logrus.WithField("socket_id", c.socketID).Info("Authentication timeout, closing connection")
			c.Close()
		}
	})
	go c.writePump()
	go c.readPump()
}

// Close moves the connection to CLOSING and tears the socket down. Safe to
// call from any goroutine, idempotent; closing an already-closing connection
// is a no-op.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(StateClosing)
		c.cancel()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.conn.Close()
	})
}

// cleanup releases everything the connection held: hub registration, bus
// topics, subscriber tracking, volatile memberships, the connection label.
// Runs exactly once, from the read pump's exit path.
func (c *Client) cleanup() {
	c.cleanupOnce.Do(func() {
		c.state.Store(StateClosing)
		c.cancel()
		c.hub.unregister(c)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		c.mu.Lock()
		user := c.user
		label := c.label
		channels := make([]string, 0, len(c.channels))
		for id := range c.channels {
			channels = append(channels, id)
		}
		c.channels = make(map[string]bool)
		c.mu.Unlock()

		if user != nil {
			for _, channelID := range channels {
				remaining, err := c.hub.stateRepo.TrackUnsubscription(ctx, channelID, user.ID, c.socketID)
				if err != nil {
					logrus.WithError(err).WithField("channel", channelID).Warn("Failed to track unsubscription on close")
					continue
				}
				if remaining == 0 {
					if err := c.hub.chat.ReleaseVolatile(ctx, channelID, user.ID); err != nil {
						logrus.WithError(err).WithField("channel", channelID).Warn("Failed to release volatile membership")
					}
				}
			}
			if err := c.hub.stateRepo.UnregisterConnection(ctx, label); err != nil {
				logrus.WithError(err).Warn("Failed to unregister connection label")
			}
		}

		// The send channel is never closed: the hub goroutine may still hold
		// a reference and enqueue a late frame. writePump exits through the
		// connection context instead.
		c.state.Store(StateClosed)
		logrus.WithField("socket_id", c.socketID).Debug("Connection cleaned up")
	})
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logrus.WithField("socket_id", c.socketID).WithError(err).Warn("WebSocket read error")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		// Frames are handled inline: no two frames from the same connection
		// run concurrently.
		c.handleFrame(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("socket_id", c.socketID).WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue puts an outbound frame on the client's send queue without ever
// blocking the caller. A full queue means the client has stalled; the frame
// is dropped and the write pump's ping cycle will surface a dead peer.
func (c *Client) enqueue(message []byte) {
	if c.state.Load() >= StateClosing {
		return
	}
	select {
	case c.send <- message:
	default:
		logrus.WithField("socket_id", c.socketID).Warn("Client send channel full, dropping frame")
	}
}

// frameEnvelope is the part of every inbound frame the connection layer
// reads. The correlation id stays raw so numeric and string ids both echo
// back unchanged.
type frameEnvelope struct {
	Type string          `json:"type"`
	ID   json.RawMessage `json:"id"`
}

func (c *Client) handleFrame(message []byte) {
	var envelope frameEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil || envelope.Type == "" {
		c.sendError(nil, service.ErrInvalidInput)
		return
	}

	switch envelope.Type {
	case "ping":
		c.sendRaw(map[string]interface{}{"type": "pong", "id": envelope.ID})
		return
	case "authenticate":
		c.authenticate(envelope.ID, message)
		return
	}

	if c.state.Load() != StateActive {
		c.sendError(envelope.ID, service.ErrPermissionDenied)
		return
	}

	payload, err := c.hub.router.Dispatch(c.ctx, c, envelope.Type, message)
	if err != nil {
		c.sendError(envelope.ID, err)
		return
	}
	if c.ctx.Err() != nil {
		// The connection closed while the handler ran; discard the result
		// instead of writing to a dead socket.
		return
	}
	c.sendSuccess(envelope.ID, payload)
}

// authenticate processes the first client frame. Auth errors are fatal to
// the connection attempt.
func (c *Client) authenticate(id json.RawMessage, message []byte) {
	if c.state.Load() != StateAuthenticating {
		c.sendError(id, service.ErrInvalidInput)
		return
	}
	var body struct {
		Token    string `json:"token"`
		ClientID string `json:"client_id"`
		Label    string `json:"label"`
	}
	if err := json.Unmarshal(message, &body); err != nil {
		c.sendError(id, service.ErrAuthMalformed)
		c.Close()
		return
	}

	var (
		user   *domain.User
		traits []string
		err    error
	)
	switch {
	case body.Token != "":
		var identity *service.Identity
		identity, err = c.hub.auth.Verify(body.Token, c.config)
		if err == nil {
			traits = identity.Traits
			user, err = c.hub.auth.LoginWithToken(c.ctx, c.world.ID, identity)
		}
	case body.ClientID != "":
		user, err = c.hub.auth.LoginWithClientID(c.ctx, c.world.ID, body.ClientID)
	default:
		err = service.ErrAuthMalformed
	}
	if err != nil {
		c.sendError(id, err)
		c.Close()
		return
	}

	label := body.Label
	if label == "" {
		label = "unknown"
	}

	c.mu.Lock()
	c.user = user
	c.traits = traits
	c.label = label
	c.mu.Unlock()

	if c.authTimer != nil {
		c.authTimer.Stop()
	}
	c.state.Store(StateActive)

	if err := c.hub.stateRepo.RegisterConnection(c.ctx, label); err != nil {
		logrus.WithError(err).Warn("Failed to register connection label")
	}
	// Every active connection listens on its user scope, its world scope and
	// (via the bus) the control channel.
	if err := c.hub.subscribe(c.ctx, c, bus.UserTopic(c.world.ID, user.ID)); err != nil {
		logrus.WithError(err).Warn("Failed to subscribe user topic")
	}
	if err := c.hub.subscribe(c.ctx, c, bus.WorldTopic(c.world.ID)); err != nil {
		logrus.WithError(err).Warn("Failed to subscribe world topic")
	}

	logrus.WithFields(logrus.Fields{
		"socket_id": c.socketID,
		"world_id":  c.world.ID,
		"user_id":   user.ID,
	}).Info("Connection authenticated")

	c.sendSuccess(id, map[string]interface{}{
		"user": user.SerializePublic(),
		"world": map[string]interface{}{
			"id":    c.world.ID,
			"title": c.world.Title,
		},
	})
}

// --- module.Session implementation ---

func (c *Client) SocketID() string                { return c.socketID }
func (c *Client) World() *domain.World            { return c.world }
func (c *Client) WorldConfig() domain.WorldConfig { return c.config }

func (c *Client) User() *domain.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

func (c *Client) Traits() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.traits
}

func (c *Client) SubscribeChannel(ctx context.Context, channelID string) error {
	user := c.User()
	if user == nil {
		return service.ErrPermissionDenied
	}
	if err := c.hub.subscribe(ctx, c, bus.ChannelTopic(channelID)); err != nil {
		return service.ErrBrokerUnavailable
	}
	if err := c.hub.stateRepo.TrackSubscription(ctx, channelID, user.ID, c.socketID); err != nil {
		return service.ErrBrokerUnavailable
	}
	c.mu.Lock()
	c.channels[channelID] = true
	c.mu.Unlock()
	return nil
}

func (c *Client) UnsubscribeChannel(ctx context.Context, channelID string) error {
	user := c.User()
	if user == nil {
		return service.ErrPermissionDenied
	}
	c.mu.Lock()
	delete(c.channels, channelID)
	c.mu.Unlock()
	if err := c.hub.unsubscribe(ctx, c, bus.ChannelTopic(channelID)); err != nil {
		return service.ErrBrokerUnavailable
	}
	remaining, err := c.hub.stateRepo.TrackUnsubscription(ctx, channelID, user.ID, c.socketID)
	if err != nil {
		return service.ErrBrokerUnavailable
	}
	if remaining == 0 {
		if err := c.hub.chat.ReleaseVolatile(ctx, channelID, user.ID); err != nil {
			return err
		}
	}
	return nil
}

// --- outbound frames ---

func (c *Client) sendRaw(frame map[string]interface{}) {
	encoded, err := json.Marshal(frame)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal outbound frame")
		return
	}
	c.enqueue(encoded)
}

// sendSuccess writes a correlated success response. A map payload is merged
// into the response object; anything else lands under "result".
func (c *Client) sendSuccess(id json.RawMessage, payload interface{}) {
	out := map[string]interface{}{"status": "success"}
	if len(id) > 0 {
		out["id"] = id
	}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err == nil {
			var fields map[string]interface{}
			if json.Unmarshal(encoded, &fields) == nil {
				for k, v := range fields {
					if k != "status" && k != "id" {
						out[k] = v
					}
				}
			} else {
				out["result"] = payload
			}
		}
	}
	c.sendRaw(out)
}

func (c *Client) sendError(id json.RawMessage, err error) {
	out := map[string]interface{}{
		"status": "error",
		"error":  map[string]interface{}{"code": service.ErrorCode(err)},
	}
	if len(id) > 0 {
		out["id"] = id
	}
	c.sendRaw(out)
}
