package websocket

// Server-pushed event types.
const (
	// EventMessageCreated is sent to the receiver of a new direct message.
	EventMessageCreated = "message.created"

	// EventNotificationCreated is sent to the owner of a new notification.
	EventNotificationCreated = "notification.created"

	EventServerHeartbeat = "server:heartbeat"
	EventServerError     = "server:error"
)

// Client-sent event types.
const (
	EventUserHeartbeat = "user:heartbeat"
)
