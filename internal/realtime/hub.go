package realtime

import (
	"sync"
)

// All is the topic of clients that want every event.
const All = ""

// Client is a single subscriber connection.
// The network conn itself is managed by the websocket handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// Hub keeps subscribers per topic (a session id, or All) and broadcasts to them.
type Hub struct {
	mu             sync.RWMutex
	topicToClients map[string]map[Client]struct{}
}

func NewHub() *Hub {
	return &Hub{topicToClients: make(map[string]map[Client]struct{})}
}

// Register adds a client under topic.
func (h *Hub) Register(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topicToClients[topic]; !ok {
		h.topicToClients[topic] = make(map[Client]struct{})
	}
	h.topicToClients[topic][client] = struct{}{}
}

// Unregister removes a client; empty topics are dropped.
func (h *Hub) Unregister(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.topicToClients[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topicToClients, topic)
		}
	}
}

// Broadcast sends message to the clients of topic and to every All client.
// It reports how many sends succeeded; failed clients are cleaned up by their handler.
func (h *Hub) Broadcast(topic string, message []byte) int {
	h.mu.RLock()
	targets := make([]Client, 0, len(h.topicToClients[topic])+len(h.topicToClients[All]))
	for c := range h.topicToClients[topic] {
		targets = append(targets, c)
	}
	if topic != All {
		for c := range h.topicToClients[All] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if c.Send(message) {
			sent++
		}
	}
	return sent
}

// Len reports the number of registered clients across all topics.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.topicToClients {
		n += len(clients)
	}
	return n
}

// CloseAll closes and forgets every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	all := h.topicToClients
	h.topicToClients = make(map[string]map[Client]struct{})
	h.mu.Unlock()
	for _, clients := range all {
		for c := range clients {
			c.Close()
		}
	}
}
