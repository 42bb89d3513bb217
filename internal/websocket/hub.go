package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultEventsChannel is the Redis channel used to fan events out across instances.
const DefaultEventsChannel = "marketplace:ws:events"

// ClusterMessage is an event travelling between API instances.
type ClusterMessage struct {
	RecipientID string          `json:"recipient_id"`
	InstanceID  string          `json:"instance_id"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Hub keeps the open connections of this instance, grouped by subject.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]map[*Client]struct{}
	instanceID string
	provider   PubSubProvider
	channel    string
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub. A nil provider means single-instance mode.
func NewHub(provider PubSubProvider, channel string) *Hub {
	if provider == nil {
		provider = &NoOpPubSub{}
	}
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		instanceID: uuid.NewString(),
		provider:   provider,
		channel:    channel,
	}
}

// Run subscribes to the cluster channel and delivers remote events until ctx ends.
func (h *Hub) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	msgs, err := h.provider.Subscribe(ctx, h.channel)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", h.channel, err)
	}
	h.cancel = cancel
	h.done = make(chan struct{})

	go func() {
		defer close(h.done)
		for raw := range msgs {
			var msg ClusterMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				log.Warn().Err(err).Msg("[Hub] Dropping malformed cluster message")
				continue
			}
			if msg.InstanceID == h.instanceID {
				continue
			}
			h.deliverLocal(msg.RecipientID, msg.Payload)
		}
	}()
	log.Info().Str("instance_id", h.instanceID).Str("channel", h.channel).Msg("[Hub] Started")
	return nil
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.Subject]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.Subject] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.Subject]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.Subject)
	}
	c.CloseSend()
}

// deliverLocal queues message for every local connection of subject and
// returns how many received it.
func (h *Hub) deliverLocal(subject string, message []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[subject]))
	for c := range h.clients[subject] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.enqueue(message) {
			delivered++
			continue
		}
		log.Warn().Str("subject", subject).Str("conn_id", c.ConnectionID).Msg("[Hub] Send buffer full, dropping connection")
		h.unregister(c)
	}
	return delivered
}

// SendToSubject delivers message to subject on this instance and publishes it
// for the other instances.
func (h *Hub) SendToSubject(subject string, message []byte) error {
	h.deliverLocal(subject, message)

	payload, err := json.Marshal(ClusterMessage{
		RecipientID: subject,
		InstanceID:  h.instanceID,
		Payload:     message,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return err
	}
	return h.provider.Publish(h.channel, payload)
}

// SendJSONToSubject marshals v and sends it with SendToSubject.
func (h *Hub) SendJSONToSubject(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal ws event: %w", err)
	}
	return h.SendToSubject(subject, data)
}

// ClientCount returns the number of local connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close stops the cluster subscription and closes every local connection.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
		<-h.done
	}
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.CloseSend()
		}
	}
	if err := h.provider.Close(); err != nil {
		log.Warn().Err(err).Msg("[Hub] Error closing pubsub provider")
	}
}
