package bus

import "time"

// Event is a domain event published on the bus. Kind is a dot-separated
// name; subscribers filter by prefix (e.g. "gw." or "conn.").
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
