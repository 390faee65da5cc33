package notification_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core/notification"
	queuesvc "github.com/trezcool/mahudhurio/services/queue"
	"github.com/trezcool/mahudhurio/tests"
)

// flakyService fails the first `failures` deliveries.
type flakyService struct {
	notification.Service

	mu       sync.Mutex
	failures int
	attempts int
}

func (svc *flakyService) Deliver(ctx context.Context, tmpl notification.Template) (notification.Notification, error) {
	svc.mu.Lock()
	svc.attempts++
	fail := svc.attempts <= svc.failures
	svc.mu.Unlock()
	if fail {
		return notification.Notification{}, errors.New("db down")
	}
	return svc.Service.Deliver(ctx, tmpl)
}

func (svc *flakyService) Attempts() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.attempts
}

func tmpl(title string) notification.Template {
	return notification.Template{Title: title, Message: title + "!", Type: notification.TypeClass, EntityType: "class"}
}

func countStored(t *testing.T, stack *testutil.Stack) func() int {
	return func() int {
		notifs, err := stack.NotificationSvc.Query(context.Background(), notification.QueryFilter{})
		require.NoError(t, err)
		return len(notifs)
	}
}

func TestInlineEmitter(t *testing.T) {
	stack := testutil.NewStack()
	emitter := notification.NewInlineEmitter(stack.NotificationSvc, stack.Logger)

	emitter.Emit(context.Background(), tmpl("Class created"))
	emitter.Emit(context.Background(), notification.Template{Title: "Invalid", Message: "x", Type: "gossip"})

	assert.Equal(t, 1, countStored(t, stack)())
}

func TestDispatcher(t *testing.T) {
	stack := testutil.NewStack()
	stored := countStored(t, stack)

	run := func(svc notification.Service, opts notification.DispatcherOptions) (*notification.Dispatcher, func()) {
		d := notification.NewDispatcher(queuesvc.NewInMemory(10), svc, stack.Logger, opts)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = d.Run(ctx)
		}()
		return d, func() {
			cancel()
			<-done
		}
	}

	t.Run("delivers in order", func(t *testing.T) {
		stack.Reset()
		d, stop := run(stack.NotificationSvc, notification.DispatcherOptions{})
		defer stop()

		d.Emit(context.Background(), tmpl("First"))
		d.Emit(context.Background(), tmpl("Second"))
		assert.Eventually(t, func() bool { return stored() == 2 }, time.Second, 5*time.Millisecond)

		notifs, err := stack.NotificationSvc.Query(context.Background(), notification.QueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, "Second", notifs[0].Title)
	})

	t.Run("retries", func(t *testing.T) {
		stack.Reset()
		svc := &flakyService{Service: stack.NotificationSvc, failures: 2}
		d, stop := run(svc, notification.DispatcherOptions{MaxAttempts: 3, RetryDelay: time.Millisecond})
		defer stop()

		d.Emit(context.Background(), tmpl("Eventually"))
		assert.Eventually(t, func() bool { return stored() == 1 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 3, svc.Attempts())
	})

	t.Run("gives up", func(t *testing.T) {
		stack.Reset()
		svc := &flakyService{Service: stack.NotificationSvc, failures: 5}
		d, stop := run(svc, notification.DispatcherOptions{MaxAttempts: 2, RetryDelay: time.Millisecond})

		d.Emit(context.Background(), tmpl("Never"))
		assert.Eventually(t, func() bool { return svc.Attempts() == 2 }, time.Second, 5*time.Millisecond)
		stop()
		assert.Equal(t, 0, stored())
		assert.Equal(t, 2, svc.Attempts())
	})

	t.Run("full queue drops instead of blocking", func(t *testing.T) {
		queue := queuesvc.NewInMemory(1)
		d := notification.NewDispatcher(queue, stack.NotificationSvc, stack.Logger, notification.DispatcherOptions{
			PublishTimeout: 20 * time.Millisecond,
		})

		start := time.Now()
		d.Emit(context.Background(), tmpl("Kept"))
		d.Emit(context.Background(), tmpl("Dropped"))
		assert.Less(t, int64(time.Since(start)), int64(500*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		messages, err := queue.Consume(ctx)
		require.NoError(t, err)
		select {
		case msg := <-messages:
			assert.Contains(t, string(msg.Body), "Kept")
		case <-time.After(time.Second):
			t.Fatal("queued notification not consumed")
		}
		select {
		case msg := <-messages:
			t.Errorf("unexpected queued message %s", msg.Body)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("does not retry invalid templates", func(t *testing.T) {
		stack.Reset()
		svc := &flakyService{Service: stack.NotificationSvc}
		d, stop := run(svc, notification.DispatcherOptions{MaxAttempts: 3, RetryDelay: time.Millisecond})

		d.Emit(context.Background(), notification.Template{Title: " ", Message: "x", Type: notification.TypeSystem})
		d.Emit(context.Background(), tmpl("Valid"))
		assert.Eventually(t, func() bool { return stored() == 1 }, time.Second, 5*time.Millisecond)
		stop()
		assert.Equal(t, 2, svc.Attempts())
	})
}
