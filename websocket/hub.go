package websocket

import (
	"sync"

	"go.uber.org/zap"

	"vibeify/types"
)

// AllScans is the subscription key for clients following every scan
const AllScans = "all"

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run()
	Broadcast(msg types.ProgressMessage)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	ClientCount() int
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by scan ID
	clients map[string]map[*Client]bool

	// Broadcast channel for sending messages to subscribers of a scan
	broadcast chan types.ProgressMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	mu  sync.RWMutex
	log *zap.SugaredLogger
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.SugaredLogger) Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.ProgressMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run starts the hub's main event loop
func (h *hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.scanID] == nil {
				h.clients[client.scanID] = make(map[*Client]bool)
			}
			h.clients[client.scanID][client] = true
			h.mu.Unlock()
			h.log.Debugw("websocket client connected", "scan", client.scanID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client.scanID, client)
			h.mu.Unlock()
			h.log.Debugw("websocket client disconnected", "scan", client.scanID)

		case message := <-h.broadcast:
			h.mu.Lock()
			h.deliver(message.ScanID, message)
			if message.ScanID != AllScans {
				h.deliver(AllScans, message)
			}
			h.mu.Unlock()
		}
	}
}

// deliver sends message to every client subscribed under key, dropping
// clients whose send buffer is full
func (h *hub) deliver(key string, message types.ProgressMessage) {
	for client := range h.clients[key] {
		select {
		case client.send <- message:
		default:
			h.remove(key, client)
		}
	}
}

// remove must be called with h.mu held
func (h *hub) remove(key string, client *Client) {
	clients, ok := h.clients[key]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.send)
	}
	if len(clients) == 0 {
		delete(h.clients, key)
	}
}

// Broadcast queues a progress message for delivery
func (h *hub) Broadcast(msg types.ProgressMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warnw("websocket broadcast channel full, dropping message", "scan", msg.ScanID)
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// ClientCount returns the number of connected clients
func (h *hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}
