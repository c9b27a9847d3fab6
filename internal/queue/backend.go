package queue

import "context"

// Delivery is one message pulled off the transport together with the opaque
// token needed to settle it.
type Delivery struct {
	Body []byte
	tag  any
}

// Backend abstracts the queue transport. Implementations must provide
// at-least-once semantics: a message stays available until acknowledged, and
// a nack with requeue makes it deliverable again.
type Backend interface {
	Publish(ctx context.Context, body []byte) error
	// Consume returns a stream of deliveries. The channel closes when the
	// context is cancelled or the transport shuts down.
	Consume(ctx context.Context) (<-chan Delivery, error)
	Ack(d Delivery) error
	Nack(d Delivery, requeue bool) error
	Close() error
}
