package core

import "context"

// QueueMessage is a unit of work published on a Queue.
type QueueMessage struct {
	Type string
	Body []byte
}

// Queue is any FIFO broker that work can be handed to.
type Queue interface {
	Publish(ctx context.Context, msg QueueMessage) error
	// Consume streams messages until ctx is done. The channel is closed afterwards.
	Consume(ctx context.Context) (<-chan QueueMessage, error)
}
