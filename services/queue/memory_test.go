package queuesvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
)

func TestInMemory(t *testing.T) {
	q := NewInMemory(2)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, core.QueueMessage{Type: "a", Body: []byte("1")}))
	require.NoError(t, q.Publish(ctx, core.QueueMessage{Type: "b", Body: []byte("2")}))
	assert.Equal(t, 2, q.Len())

	t.Run("full queue honours ctx", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		assert.Equal(t, context.DeadlineExceeded, q.Publish(ctx, core.QueueMessage{Type: "c"}))
	})

	t.Run("fifo", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		messages, err := q.Consume(ctx)
		require.NoError(t, err)

		assert.Equal(t, "a", (<-messages).Type)
		assert.Equal(t, "b", (<-messages).Type)

		cancel()
		_, ok := <-messages
		assert.False(t, ok, "channel should be closed once ctx is done")
	})

	t.Run("size is at least one", func(t *testing.T) {
		assert.Equal(t, 1, cap(NewInMemory(0).ch))
	})
}
