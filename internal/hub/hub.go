package hub

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/module"
	"github.com/eventhall/eventhall/internal/repository"
	"github.com/eventhall/eventhall/internal/service"
)

// WebSocket timing and size limits, shared by hub and client.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024

	// Send channel buffer per client.
	sendBufferSize = 256
)

// Hub owns the set of live connections of this process, maps bus topics to
// their local subscribers, and applies control frames. Cross-process state
// never lives here; it flows through the bus or the store.
type Hub struct {
	bus       bus.Bus
	router    *module.Router
	worlds    *service.WorldService
	auth      *service.AuthService
	chat      *service.ChatService
	stateRepo repository.StateRepository

	authTimeout time.Duration

	mu      sync.RWMutex
	clients map[string]*Client
	// topics maps a bus topic to the local clients subscribed to it.
	topics map[string]map[*Client]bool

	stopOnce sync.Once
	done     chan struct{}
}

func NewHub(
	b bus.Bus,
	router *module.Router,
	worlds *service.WorldService,
	auth *service.AuthService,
	chat *service.ChatService,
	stateRepo repository.StateRepository,
	authTimeout time.Duration,
) *Hub {
	if b == nil || router == nil || worlds == nil || auth == nil || chat == nil || stateRepo == nil {
		panic("dependencies cannot be nil for Hub")
	}
	if authTimeout <= 0 {
		authTimeout = 10 * time.Second
	}
	return &Hub{
		bus:         b,
		router:      router,
		worlds:      worlds,
		auth:        auth,
		chat:        chat,
		stateRepo:   stateRepo,
		authTimeout: authTimeout,
		clients:     make(map[string]*Client),
		topics:      make(map[string]map[*Client]bool),
		done:        make(chan struct{}),
	}
}

// Run consumes the bus until Stop is called or the bus closes. It should run
// in its own goroutine.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running")
	for {
		select {
		case event, ok := <-h.bus.Events():
			if !ok {
				log.Info("Bus closed, hub shutting down")
				return
			}
			if event.Channel == bus.ControlChannel {
				h.handleControl(event)
			} else {
				h.fanOut(event)
			}
		case <-h.done:
			log.Info("Hub is shutting down")
			return
		}
	}
}

// Stop closes every live connection and stops the run loop.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.mu.RLock()
		clients := make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.RUnlock()
		for _, c := range clients {
			c.Close()
		}
	})
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.socketID] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.socketID)
	var topics []string
	for topic, subscribers := range h.topics {
		if subscribers[c] {
			delete(subscribers, c)
			if len(subscribers) == 0 {
				delete(h.topics, topic)
				topics = append(topics, topic)
			}
		}
	}
	h.mu.Unlock()

	// Drop the process-level bus subscriptions that lost their last local
	// subscriber.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, topic := range topics {
		if err := h.bus.Unsubscribe(ctx, topic); err != nil {
			logrus.WithError(err).WithField("topic", topic).Warn("Failed to unsubscribe bus topic")
		}
	}
}

// subscribe attaches a client to a bus topic, subscribing the process when
// the topic gains its first local subscriber.
func (h *Hub) subscribe(ctx context.Context, c *Client, topic string) error {
	h.mu.Lock()
	subscribers, ok := h.topics[topic]
	if !ok {
		subscribers = make(map[*Client]bool)
		h.topics[topic] = subscribers
	}
	first := len(subscribers) == 0
	subscribers[c] = true
	h.mu.Unlock()

	if first {
		if err := h.bus.Subscribe(ctx, topic); err != nil {
			h.mu.Lock()
			delete(h.topics[topic], c)
			h.mu.Unlock()
			return err
		}
	}
	return nil
}

func (h *Hub) unsubscribe(ctx context.Context, c *Client, topic string) error {
	h.mu.Lock()
	subscribers, ok := h.topics[topic]
	if ok {
		delete(subscribers, c)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		return h.bus.Unsubscribe(ctx, topic)
	}
	return nil
}

// fanOut delivers a bus event to every local subscriber of its topic except
// the originating socket.
func (h *Hub) fanOut(event bus.Event) {
	h.mu.RLock()
	subscribers := h.topics[event.Channel]
	recipients := make([]*Client, 0, len(subscribers))
	for c := range subscribers {
		if event.Sender != "" && c.socketID == event.Sender {
			continue
		}
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		c.enqueue(event.Payload)
	}
}

// handleControl applies one administrative control frame to the local
// connection set. Dropping an already-closing connection is a no-op.
func (h *Hub) handleControl(event bus.Event) {
	var frame bus.ControlFrame
	if err := json.Unmarshal(event.Payload, &frame); err != nil {
		logrus.WithError(err).Warn("Dropping unparseable control frame")
		return
	}
	log := logrus.WithFields(logrus.Fields{
		"op":       frame.Op,
		"world_id": frame.WorldID,
		"pattern":  frame.LabelPattern,
	})

	if frame.Op == bus.ControlWorldReload {
		h.worlds.Invalidate(frame.WorldID)
		return
	}

	h.mu.RLock()
	matched := make([]*Client, 0)
	for _, c := range h.clients {
		if c.matches(frame.WorldID, frame.LabelPattern) {
			matched = append(matched, c)
		}
	}
	h.mu.RUnlock()
	log.WithField("matched", len(matched)).Info("Applying control frame")

	switch frame.Op {
	case bus.ControlDrop:
		for _, c := range matched {
			c.Close()
		}
	case bus.ControlReload:
		payload, err := json.Marshal(map[string]interface{}{"type": "connection.reload"})
		if err != nil {
			return
		}
		for _, c := range matched {
			c.enqueue(payload)
		}
	default:
		log.Warn("Unknown control op")
	}
}

// matches implements the control frame selector: world id equality and a
// glob pattern over the connection's version label.
func (c *Client) matches(worldID, labelPattern string) bool {
	if c.world == nil {
		return false
	}
	if worldID != "" && c.world.ID != worldID {
		return false
	}
	if labelPattern != "" {
		ok, err := path.Match(labelPattern, c.label)
		if err != nil || !ok {
			return false
		}
	}
	return true
}
