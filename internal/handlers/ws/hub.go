package ws

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/logging"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/metrics"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/presence"
	"github.com/Triostacksoftware/HSCODE-sub000/internal/service"
	"github.com/gofiber/websocket/v2"
)

const writeWait = 10 * time.Second

// Socket is the part of *websocket.Conn the hub writes through.
type Socket interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client wraps one websocket connection with its identity and send queue
type Client struct {
	ID     presence.ConnID
	UserID uint

	conn       Socket
	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}
	once       sync.Once
	lastPong   atomic.Int64
}

// Touch records a keepalive from the client.
func (c *Client) Touch() {
	c.lastPong.Store(time.Now().UnixNano())
}

func (c *Client) LastPong() time.Time {
	return time.Unix(0, c.lastPong.Load())
}

// Done is closed once the client is unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WriterDone is closed once the writer goroutine has returned and will not
// touch the socket again.
func (c *Client) WriterDone() <-chan struct{} {
	return c.writerDone
}

type HubOptions struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	SendBuffer   int

	// SendTimeout bounds how long Emit waits on a full send buffer before
	// evicting the connection.
	SendTimeout time.Duration
}

// Hub manages all active WebSocket connections. It implements
// service.Notifier: services emit through it without knowing about sockets.
type Hub struct {
	presence *service.PresenceService
	registry *presence.Registry

	clients    map[presence.ConnID]*Client
	clientsMux sync.RWMutex

	// emitMu serialises fan-out so every connection sees events in the
	// order they were emitted.
	emitMu sync.Mutex
	nextID atomic.Uint64

	opts HubOptions
}

// Envelope is the outbound wire format.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewHub creates a new Hub instance
func NewHub(presenceService *service.PresenceService, opts HubOptions) *Hub {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= opts.PingInterval {
		opts.PongTimeout = 3 * opts.PingInterval
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = writeWait
	}
	return &Hub{
		presence: presenceService,
		registry: presenceService.Registry(),
		clients:  make(map[presence.ConnID]*Client),
		opts:     opts,
	}
}

// Register adds a connection for userID and starts its writer. The caller
// owns the read loop and must call Unregister when it ends.
func (h *Hub) Register(userID uint, conn Socket) *Client {
	client := &Client{
		ID:     presence.ConnID(h.nextID.Add(1)),
		UserID: userID,
		conn:   conn,
		send:       make(chan []byte, h.opts.SendBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	client.Touch()

	h.clientsMux.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.clientsMux.Unlock()

	h.presence.Connect(client.ID, userID)
	metrics.WSConnections.Inc()
	go h.writePump(client)

	logging.Info().Uint("user_id", userID).Uint64("conn_id", uint64(client.ID)).Int("total", count).Msg("connection registered")
	return client
}

// Unregister closes the connection and runs the disconnect cascade. It is
// safe to call from any close path, any number of times.
func (h *Hub) Unregister(client *Client) {
	client.once.Do(func() {
		close(client.done)

		h.clientsMux.Lock()
		delete(h.clients, client.ID)
		count := len(h.clients)
		h.clientsMux.Unlock()

		_ = client.conn.Close()
		metrics.WSConnections.Dec()
		h.presence.Unsubscribe(client.ID)

		logging.Info().Uint("user_id", client.UserID).Uint64("conn_id", uint64(client.ID)).Int("total", count).Msg("connection closed")
	})
}

// Emit delivers one event to every connection selected by target, each at
// most once. A connection whose send buffer stays full for SendTimeout is
// evicted.
func (h *Hub) Emit(target service.Target, event string, payload interface{}) {
	frame, err := json.Marshal(Envelope{Type: event, Payload: payload})
	if err != nil {
		logging.Error().Err(err).Str("event", event).Msg("marshal event")
		return
	}

	var full, evicted []*Client
	h.emitMu.Lock()
	for _, client := range h.resolve(target) {
		select {
		case client.send <- frame:
			metrics.EventsEmitted.WithLabelValues(event).Inc()
		default:
			full = append(full, client)
		}
	}
	if len(full) > 0 {
		timer := time.NewTimer(h.opts.SendTimeout)
		expired := false
		for _, client := range full {
			if !h.enqueue(client, frame, timer.C, &expired) {
				metrics.FramesDropped.Inc()
				evicted = append(evicted, client)
				continue
			}
			metrics.EventsEmitted.WithLabelValues(event).Inc()
		}
		timer.Stop()
	}
	h.emitMu.Unlock()

	// Eviction re-enters Emit through the roster broadcast, so it runs
	// after the lock is released.
	for _, client := range evicted {
		logging.Warn().Uint("user_id", client.UserID).Uint64("conn_id", uint64(client.ID)).Str("event", event).Msg("send buffer full, evicting connection")
		h.Unregister(client)
	}
}

// enqueue waits for room in the client's buffer until timeout fires. Once
// it has fired, later clients get a single non-blocking attempt.
func (h *Hub) enqueue(client *Client, frame []byte, timeout <-chan time.Time, expired *bool) bool {
	if !*expired {
		select {
		case client.send <- frame:
			return true
		case <-client.done:
			return true
		case <-timeout:
			*expired = true
		}
	}
	select {
	case client.send <- frame:
		return true
	default:
		return false
	}
}

// Send delivers an event to a single connection.
func (h *Hub) Send(client *Client, event string, payload interface{}) {
	h.Emit(service.ToConn(client.ID), event, payload)
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// resolve turns a target into live clients, deduplicated by connection.
func (h *Hub) resolve(target service.Target) []*Client {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	if target.Everyone {
		out := make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			if h.excluded(target, c) {
				continue
			}
			out = append(out, c)
		}
		return out
	}

	seen := make(map[presence.ConnID]struct{})
	var out []*Client
	add := func(ids []presence.ConnID) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			c, ok := h.clients[id]
			if !ok || h.excluded(target, c) {
				continue
			}
			out = append(out, c)
		}
	}
	for _, room := range target.Rooms {
		add(h.registry.Connections(room))
	}
	for _, userID := range target.Users {
		add(h.registry.UserConnections(userID))
	}
	add(target.Conns)
	return out
}

func (h *Hub) excluded(target service.Target, c *Client) bool {
	if target.Except != 0 && c.ID == target.Except {
		return true
	}
	return target.ExceptUser != 0 && c.UserID == target.ExceptUser
}

// writePump is the only goroutine writing to the socket. It also sends
// keepalive pings and drops the connection when pongs stop arriving.
func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer func() {
		ticker.Stop()
		close(client.writerDone)
	}()

	for {
		select {
		case <-client.done:
			return
		case frame := <-client.send:
			select {
			case <-client.done:
				return
			default:
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.Debug().Err(err).Uint64("conn_id", uint64(client.ID)).Msg("write failed")
				h.Unregister(client)
				return
			}
		case <-ticker.C:
			if time.Since(client.LastPong()) > h.opts.PongTimeout {
				logging.Info().Uint("user_id", client.UserID).Uint64("conn_id", uint64(client.ID)).Msg("pong timeout")
				h.Unregister(client)
				return
			}
			if err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logging.Debug().Err(err).Uint64("conn_id", uint64(client.ID)).Msg("ping failed")
				h.Unregister(client)
				return
			}
		}
	}
}
