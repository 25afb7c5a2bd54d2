package bus

import "time"

// Event kinds published by the daemon.
const (
	KindMessageNew   = "message.new"
	KindStateChanged = "connection.state_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
