package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/mahudhurio/core"
)

const (
	queueMessageType      = "notification"
	defaultPublishTimeout = 250 * time.Millisecond
)

var (
	emittedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mahudhurio_notifications_emitted_total",
		Help: "Notifications handed to the emitter, by type.",
	}, []string{"type"})
	deliveredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mahudhurio_notifications_delivered_total",
		Help: "Notifications stored.",
	})
	failedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mahudhurio_notifications_failed_total",
		Help: "Notifications dropped, by stage.",
	}, []string{"stage"})
)

// Emitter is fire-and-forget: failures are logged, never returned.
type Emitter interface {
	Emit(ctx context.Context, tmpl Template)
}

// InlineEmitter delivers in the caller's goroutine.
type InlineEmitter struct {
	svc    Service
	logger core.Logger
}

var _ Emitter = (*InlineEmitter)(nil)

func NewInlineEmitter(svc Service, logger core.Logger) *InlineEmitter {
	return &InlineEmitter{svc: svc, logger: logger}
}

func (e *InlineEmitter) Emit(ctx context.Context, tmpl Template) {
	emittedCounter.WithLabelValues(string(tmpl.Type)).Inc()
	ntf, err := e.svc.Deliver(ctx, tmpl)
	if stored(ntf, err, e.logger, "notification.InlineEmitter") {
		return
	}
	failedCounter.WithLabelValues("deliver").Inc()
	e.logger.Error(fmt.Sprintf("notification.InlineEmitter: %v", err), err)
}

// stored counts ntf as delivered when it was inserted, warning about any email failure.
func stored(ntf Notification, err error, logger core.Logger, caller string) bool {
	if ntf.ID == "" {
		return false
	}
	if err != nil {
		failedCounter.WithLabelValues("email").Inc()
		logger.Warn(fmt.Sprintf("%s: %q stored without emails: %v", caller, ntf.Title, err))
	}
	deliveredCounter.Inc()
	return true
}

type DispatcherOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
	// PublishTimeout bounds how long Emit waits on a full or slow queue.
	PublishTimeout time.Duration
}

// Dispatcher publishes templates to a queue; Run consumes them and delivers with retries.
type Dispatcher struct {
	queue  core.Queue
	svc    Service
	logger core.Logger
	opts   DispatcherOptions
}

var _ Emitter = (*Dispatcher)(nil)

func NewDispatcher(queue core.Queue, svc Service, logger core.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	return &Dispatcher{queue: queue, svc: svc, logger: logger, opts: opts}
}

// Emit does not inherit ctx cancellation: the notification outlives the request.
// A publish that cannot complete within PublishTimeout is dropped.
func (d *Dispatcher) Emit(_ context.Context, tmpl Template) {
	emittedCounter.WithLabelValues(string(tmpl.Type)).Inc()

	body, err := json.Marshal(tmpl)
	if err != nil {
		failedCounter.WithLabelValues("publish").Inc()
		d.logger.Error(fmt.Sprintf("notification.Dispatcher: encoding template: %v", err), err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.PublishTimeout)
	defer cancel()
	if err := d.queue.Publish(ctx, core.QueueMessage{Type: queueMessageType, Body: body}); err != nil {
		failedCounter.WithLabelValues("publish").Inc()
		d.logger.Error(fmt.Sprintf("notification.Dispatcher: publishing: %v", err), err)
	}
}

// Run blocks until ctx is done or the queue is closed.
func (d *Dispatcher) Run(ctx context.Context) error {
	messages, err := d.queue.Consume(ctx)
	if err != nil {
		return errors.Wrap(err, "consuming notification queue")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			d.handle(ctx, msg)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, msg core.QueueMessage) {
	if msg.Type != queueMessageType {
		d.logger.Warn(fmt.Sprintf("notification.Dispatcher: unexpected message type %q", msg.Type))
		return
	}

	var tmpl Template
	if err := json.Unmarshal(msg.Body, &tmpl); err != nil {
		failedCounter.WithLabelValues("decode").Inc()
		d.logger.Error(fmt.Sprintf("notification.Dispatcher: decoding: %v", err), err)
		return
	}

	var err error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		var ntf Notification
		if ntf, err = d.svc.Deliver(ctx, tmpl); stored(ntf, err, d.logger, "notification.Dispatcher") {
			return
		}
		if _, invalid := errors.Cause(err).(*core.ValidationError); invalid {
			break
		}
		if attempt < d.opts.MaxAttempts {
			select {
			case <-ctx.Done():
				failedCounter.WithLabelValues("deliver").Inc()
				d.logger.Error(fmt.Sprintf("notification.Dispatcher: shutting down with %q undelivered", tmpl.Title))
				return
			case <-time.After(d.opts.RetryDelay * time.Duration(attempt)):
			}
		}
	}
	failedCounter.WithLabelValues("deliver").Inc()
	d.logger.Error(fmt.Sprintf("notification.Dispatcher: delivering %q: %v", tmpl.Title, err), err)
}
