package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Manager routes inbound frames by type and sends typed events.
type Manager struct {
	hub      *Hub
	handlers map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает новый менеджер WebSocket с обработчиком heartbeat
func NewManager(hub *Hub) *Manager {
	m := &Manager{
		hub:      hub,
		handlers: make(map[string]func(data json.RawMessage, client *Client) error),
	}
	m.RegisterHandler(EventUserHeartbeat, func(_ json.RawMessage, client *Client) error {
		m.sendToClient(client, Event{Type: EventServerHeartbeat, Data: map[string]int64{"timestamp": time.Now().UnixMilli()}})
		return nil
	})
	return m
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.handlers[eventType] = handler
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Malformed JSON closes the connection; an unknown type only yields an error event.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event inboundEvent
	if err := json.Unmarshal(message, &event); err != nil {
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}
	handler, ok := m.handlers[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}
	return handler(event.Data, client)
}

// SendErrorToClient отправляет сообщение об ошибке только этому соединению.
func (m *Manager) SendErrorToClient(client *Client, code, message string) {
	m.sendToClient(client, Event{Type: EventServerError, Data: map[string]string{"code": code, "message": message}})
}

func (m *Manager) sendToClient(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if !client.enqueue(data) {
		log.Debug().Str("subject", client.Subject).Str("type", event.Type).Msg("[WebSocketManager] Could not queue event")
	}
}

// SendEventToSubject отправляет событие всем соединениям субъекта
func (m *Manager) SendEventToSubject(subject, eventType string, data interface{}) error {
	return m.hub.SendJSONToSubject(subject, Event{Type: eventType, Data: data})
}
