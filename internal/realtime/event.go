package realtime

import "context"

// Event actions. Consumers apply creates and updates by upserting Data and
// deletes by dropping the record named by ID.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is the payload delivered to subscribers. Topic is stamped by the
// publisher so multi-topic consumers can route without out-of-band state.
type Event struct {
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
	ID     string `json:"id,omitempty"`
}

// Notifier publishes feature events. Publishing is fire-and-forget for the
// caller: a slow or absent consumer never blocks or fails the operation that
// produced the event.
type Notifier interface {
	Publish(ctx context.Context, topic Topic, event Event) error
}
