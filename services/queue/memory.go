// Package queuesvc implements core.Queue on process memory & on redis lists.
package queuesvc

import (
	"context"

	"github.com/trezcool/mahudhurio/core"
)

// InMemory is a bounded channel-backed queue. Messages are lost on restart.
type InMemory struct {
	ch chan core.QueueMessage
}

var _ core.Queue = (*InMemory)(nil)

func NewInMemory(size int) *InMemory {
	if size <= 0 {
		size = 1
	}
	return &InMemory{ch: make(chan core.QueueMessage, size)}
}

// Publish blocks while the queue is full, until ctx is done.
func (q *InMemory) Publish(ctx context.Context, msg core.QueueMessage) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *InMemory) Consume(ctx context.Context) (<-chan core.QueueMessage, error) {
	out := make(chan core.QueueMessage)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Len is the number of buffered messages.
func (q *InMemory) Len() int {
	return len(q.ch)
}
