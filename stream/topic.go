package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.uber.org/multierr"

	"go.korebot.dev/core/internal/logging"
)

// Producer is the single underlying data source for a Topic: e.g. one ROS
// subscription. It runs until ctx is done or it returns an error, calling
// emit for every value it produces.
type Producer[T any] func(ctx context.Context, emit func(T)) error

var (
	activeSubscriptionsMeasure = stats.Int64("stream/active_subscriptions", "live topic subscriptions", stats.UnitDimensionless)
	droppedValuesMeasure       = stats.Int64("stream/dropped_values", "values dropped by per-subscriber backpressure", stats.UnitDimensionless)

	// ActiveSubscriptionsView and DroppedValuesView are exported but not
	// registered by this package; a process embedding it gets the
	// P3/backpressure signals once it calls view.Register on them.
	ActiveSubscriptionsView = &view.View{
		Name:        "stream/active_subscriptions",
		Measure:     activeSubscriptionsMeasure,
		Description: "number of live subscriptions per topic",
		TagKeys:     []tag.Key{topicNameKey},
		Aggregation: view.LastValue(),
	}
	DroppedValuesView = &view.View{
		Name:        "stream/dropped_values_total",
		Measure:     droppedValuesMeasure,
		Description: "total values dropped due to slow subscribers",
		TagKeys:     []tag.Key{topicNameKey},
		Aggregation: view.Count(),
	}

	topicNameKey = tag.MustNewKey("topic")
)

type subscriber[T any] struct {
	ch       chan T
	onNext   func(T)
	onError  func(error)
	cancel   context.CancelFunc
	dropped  atomic.Int64
}

// Topic is a hot, multi-subscriber observable with replay-1 and
// per-subscriber latest-value backpressure (C1 of the spec). The zero
// value is not usable; construct with NewTopic.
type Topic[T any] struct {
	name    string
	produce Producer[T]
	pool    *WorkerPool
	logger  logging.Logger

	mu            sync.Mutex
	subs          map[uint64]*subscriber[T]
	nextID        uint64
	latest        *T
	producerErr   error
	producerCancel context.CancelFunc
	producerDone  chan struct{}
}

// NewTopic builds a topic backed by produce. The producer does not run
// until the first subscriber attaches.
func NewTopic[T any](name string, produce Producer[T], logger logging.Logger) *Topic[T] {
	return &Topic[T]{
		name:    name,
		produce: produce,
		pool:    DefaultPool(),
		logger:  logger,
		subs:    make(map[uint64]*subscriber[T]),
	}
}

// WithPool overrides the worker pool subscriber callbacks dispatch on.
func (t *Topic[T]) WithPool(pool *WorkerPool) *Topic[T] {
	t.pool = pool
	return t
}

// SubscriberCount reports the number of currently attached subscribers.
func (t *Topic[T]) SubscriberCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// ProducerRunning reports whether the underlying producer has been started
// and not yet torn down (P3): it becomes true on the first Subscribe and
// false once the last subscriber detaches. A producer that has returned an
// error still counts as running until then.
func (t *Topic[T]) ProducerRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.producerCancel != nil
}

// PeekError returns the last error the underlying producer returned, or nil
// if it has never failed. It is the HotCache's non-blocking error accessor:
// a caller that only wants to know whether the topic's last run failed, and
// why, without subscribing, reads this instead of waiting on onError.
func (t *Topic[T]) PeekError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.producerErr
}

// Subscribe attaches a new subscriber. onNext is called once synchronously
// with the last known value (replay-1) before Subscribe returns, if a
// value has already been produced; afterward it is invoked on the worker
// pool for each new value, with older undelivered values dropped when
// onNext can't keep up. onError is invoked at most once, when the
// producer fails; the subscription is then considered terminated.
//
// The returned cancel func detaches this subscriber; when the last
// subscriber detaches, the producer is stopped (its context cancelled)
// and a future Subscribe call restarts it from scratch.
func (t *Topic[T]) Subscribe(ctx context.Context, onNext func(T), onError func(error)) func() {
	t.mu.Lock()

	sub := &subscriber[T]{ch: make(chan T, 1), onNext: onNext, onError: onError}
	id := t.nextID
	t.nextID++
	t.subs[id] = sub

	replay := t.latest
	starting := len(t.subs) == 1 && t.producerCancel == nil

	if starting {
		t.startProducerLocked()
	}
	t.mu.Unlock()

	if replay != nil {
		onNext(*replay)
	}

	subCtx, subCancel := context.WithCancel(ctx)
	sub.cancel = subCancel
	go t.dispatchLoop(subCtx, sub)

	recordActiveSubscriptions(t.name, t.SubscriberCount())

	var once sync.Once
	return func() {
		once.Do(func() {
			t.unsubscribe(id, sub)
		})
	}
}

func (t *Topic[T]) dispatchLoop(ctx context.Context, sub *subscriber[T]) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-sub.ch:
			if !ok {
				return
			}
			done := make(chan struct{})
			err := t.pool.Go(ctx, func() {
				defer close(done)
				sub.onNext(v)
			})
			if err != nil {
				return
			}
			<-done
		}
	}
}

func (t *Topic[T]) unsubscribe(id uint64, sub *subscriber[T]) {
	t.mu.Lock()
	delete(t.subs, id)
	last := len(t.subs) == 0
	if last && t.producerCancel != nil {
		t.producerCancel()
	}
	t.mu.Unlock()

	sub.cancel()

	if last {
		// Wait for the producer goroutine to fully exit so a subsequent
		// Subscribe deterministically restarts it rather than racing
		// with its teardown.
		t.mu.Lock()
		done := t.producerDone
		t.mu.Unlock()
		if done != nil {
			<-done
		}
		t.mu.Lock()
		t.producerCancel = nil
		t.producerDone = nil
		t.mu.Unlock()
	}

	recordActiveSubscriptions(t.name, t.SubscriberCount())
}

func (t *Topic[T]) startProducerLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	t.producerCancel = cancel
	done := make(chan struct{})
	t.producerDone = done

	go func() {
		defer close(done)
		err := t.produce(ctx, t.emit)
		if err != nil && ctx.Err() == nil {
			t.handleProducerError(err)
		}
	}()
}

func (t *Topic[T]) handleProducerError(err error) {
	t.mu.Lock()
	t.producerErr = err
	subs := make([]*subscriber[T], 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	if t.logger != nil {
		t.logger.Errorw("topic producer failed", "topic", t.name, "error", err)
	}

	var callbackErrs error
	for _, s := range subs {
		callbackErrs = multierr.Append(callbackErrs, deliverOnError(s, err))
	}
	if callbackErrs != nil && t.logger != nil {
		t.logger.Warnw("one or more subscriber error callbacks failed", "topic", t.name, "error", callbackErrs)
	}
}

// deliverOnError invokes sub's onError in isolation: a panicking callback
// must not prevent the topic from notifying the rest of its subscribers
// during teardown, so it is recovered and returned as an error instead.
func deliverOnError[T any](sub *subscriber[T], err error) (callbackErr error) {
	if sub.onError == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			callbackErr = errors.Errorf("stream: onError callback panicked: %v", r)
		}
	}()
	sub.onError(err)
	return nil
}

// emit fans a value out to every subscriber using a drop-oldest,
// keep-latest policy: each subscriber channel has capacity 1, so a
// subscriber that hasn't drained its previous value has that value
// replaced rather than queued.
func (t *Topic[T]) emit(v T) {
	t.mu.Lock()
	t.latest = &v
	subs := make([]*subscriber[T], 0, len(t.subs))
	for _, s := range t.subs {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- v:
		default:
			select {
			case <-s.ch:
				s.dropped.Add(1)
				recordDrop(t.name)
			default:
			}
			select {
			case s.ch <- v:
			default:
			}
		}
	}
}

func recordActiveSubscriptions(name string, n int) {
	ctx, err := tag.New(context.Background(), tag.Upsert(topicNameKey, name))
	if err != nil {
		return
	}
	stats.Record(ctx, activeSubscriptionsMeasure.M(int64(n)))
}

func recordDrop(name string) {
	ctx, err := tag.New(context.Background(), tag.Upsert(topicNameKey, name))
	if err != nil {
		return
	}
	stats.Record(ctx, droppedValuesMeasure.M(1))
}
