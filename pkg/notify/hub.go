// Package notify fans out change signals to in-process subscribers and,
// optionally, to other instances through a relay.
package notify

import (
	"context"
	"sync"

	"go-panel-backend/pkg/logger"
)

const defaultBuffer = 16

// Message is what travels over a relay.
type Message struct {
	Origin  string `json:"origin"`
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// Relay forwards locally published messages to other instances.
type Relay interface {
	Publish(ctx context.Context, msg Message) error
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan string
	nextID uint64
	buffer int
	relay  Relay
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[uint64]chan string),
		buffer: defaultBuffer,
	}
}

// SetRelay enables cross-instance delivery.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// Subscribe returns a channel of payloads for topic and a cancel func. The
// channel is closed on cancel; cancel may be called more than once.
func (h *Hub) Subscribe(topic string) (<-chan string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan string, h.buffer)
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[uint64]chan string)
	}
	h.subs[topic][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if topicSubs, ok := h.subs[topic]; ok {
				delete(topicSubs, id)
				if len(topicSubs) == 0 {
					delete(h.subs, topic)
				}
			}
			close(ch)
		})
	}
}

// Publish delivers payload to local subscribers and hands it to the relay.
func (h *Hub) Publish(ctx context.Context, topic, payload string) {
	h.Deliver(topic, payload)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return
	}
	if err := relay.Publish(ctx, Message{Topic: topic, Payload: payload}); err != nil {
		logger.Log.Warn("notify relay publish failed", "topic", topic, "error", err)
	}
}

// Deliver sends to local subscribers only. A full subscriber buffer drops
// the payload; subscribers treat payloads as "something changed" signals.
func (h *Hub) Deliver(topic, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs[topic] {
		select {
		case ch <- payload:
		default:
			logger.Log.Debug("notify subscriber buffer full, dropping", "topic", topic)
		}
	}
}

// Subscribers returns the number of live subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
