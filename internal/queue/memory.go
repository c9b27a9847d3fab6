package queue

import (
	"context"
	"errors"
	"sync"
)

// MemoryBackend is a channel-backed transport for tests and single-process
// deployments. Messages survive nack-with-requeue but not process restarts.
type MemoryBackend struct {
	mu       sync.Mutex
	messages chan []byte
	closed   bool
}

func NewMemoryBackend(capacity int) *MemoryBackend {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryBackend{
		messages: make(chan []byte, capacity),
	}
}

func (m *MemoryBackend) Publish(ctx context.Context, body []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("memory backend closed")
	}
	m.mu.Unlock()

	select {
	case m.messages <- body:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemoryBackend) Consume(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case body, ok := <-m.messages:
				if !ok {
					return
				}
				select {
				case out <- Delivery{Body: body}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (m *MemoryBackend) Ack(Delivery) error {
	return nil
}

func (m *MemoryBackend) Nack(d Delivery, requeue bool) error {
	if !requeue {
		return nil
	}
	return m.Publish(context.Background(), d.Body)
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.messages)
	}
	return nil
}
