package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.viam.com/test"

	"go.korebot.dev/core/internal/logging"
)

func tickProducer(period time.Duration) Producer[int] {
	return func(ctx context.Context, emit func(int)) error {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				i++
				emit(i)
			}
		}
	}
}

func TestReplayOneOnSubscribe(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var emitted atomic.Int32
	topic := NewTopic[int]("counter", func(ctx context.Context, emit func(int)) error {
		emit(42)
		emitted.Store(42)
		<-ctx.Done()
		return nil
	}, logger)

	var got atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	cancel := topic.Subscribe(context.Background(), func(v int) {
		got.Store(int32(v))
		wg.Done()
	}, nil)
	defer cancel()

	wg.Wait()
	test.That(t, got.Load(), test.ShouldEqual, int32(42))
}

func TestRefcountedProducerLifecycle(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var running atomic.Bool
	topic := NewTopic[int]("rc", func(ctx context.Context, emit func(int)) error {
		running.Store(true)
		defer running.Store(false)
		<-ctx.Done()
		return nil
	}, logger)

	test.That(t, topic.ProducerRunning(), test.ShouldBeFalse)

	cancel1 := topic.Subscribe(context.Background(), func(int) {}, nil)
	time.Sleep(20 * time.Millisecond)
	test.That(t, topic.ProducerRunning(), test.ShouldBeTrue)
	test.That(t, running.Load(), test.ShouldBeTrue)

	cancel2 := topic.Subscribe(context.Background(), func(int) {}, nil)
	test.That(t, topic.SubscriberCount(), test.ShouldEqual, 2)

	cancel1()
	test.That(t, topic.ProducerRunning(), test.ShouldBeTrue)

	cancel2()
	time.Sleep(20 * time.Millisecond)
	test.That(t, topic.ProducerRunning(), test.ShouldBeFalse)
	test.That(t, running.Load(), test.ShouldBeFalse)
}

// TestFastAndSlowSubscribers is the spec's seed scenario 1: a fast
// subscriber keeps up with a 10Hz producer over 2s (~20 values), while
// a slow subscriber doing 250ms of work per value only manages ~8, and neither
// slows the other down.
func TestFastAndSlowSubscribers(t *testing.T) {
	logger := logging.NewTestLogger(t)
	topic := NewTopic[int]("rate", tickProducer(100*time.Millisecond), logger)

	var fastCount atomic.Int32
	cancelFast := topic.Subscribe(context.Background(), func(int) {
		fastCount.Add(1)
	}, nil)

	var slowCount atomic.Int32
	cancelSlow := topic.Subscribe(context.Background(), func(int) {
		time.Sleep(250 * time.Millisecond)
		slowCount.Add(1)
	}, nil)

	time.Sleep(2 * time.Second)
	cancelFast()
	cancelSlow()

	test.That(t, int(fastCount.Load()) >= 15, test.ShouldBeTrue)
	test.That(t, int(slowCount.Load()) >= 5, test.ShouldBeTrue)
	test.That(t, int(slowCount.Load()) <= 12, test.ShouldBeTrue)

	time.Sleep(20 * time.Millisecond)
	test.That(t, topic.ProducerRunning(), test.ShouldBeFalse)
	test.That(t, topic.SubscriberCount(), test.ShouldEqual, 0)
}

func TestProducerErrorPropagatesOnce(t *testing.T) {
	logger := logging.NewTestLogger(t)
	boom := errNew("boom")
	topic := NewTopic[int]("err", func(ctx context.Context, emit func(int)) error {
		emit(1)
		return boom
	}, logger)

	test.That(t, topic.PeekError(), test.ShouldBeNil)

	var errCount atomic.Int32
	done := make(chan struct{})
	topic.Subscribe(context.Background(), func(int) {}, func(err error) {
		errCount.Add(1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error propagation")
	}
	test.That(t, errCount.Load(), test.ShouldEqual, int32(1))
	test.That(t, topic.PeekError(), test.ShouldEqual, boom)
}

// TestProducerErrorReachesAllSubscribersDespitePanickingCallback covers
// teardown error aggregation: one subscriber's onError panics, but the
// producer failure must still reach every other subscriber.
func TestProducerErrorReachesAllSubscribersDespitePanickingCallback(t *testing.T) {
	logger := logging.NewTestLogger(t)
	boom := errNew("boom")
	topic := NewTopic[int]("err-multi", func(ctx context.Context, emit func(int)) error {
		emit(1)
		return boom
	}, logger)

	var goodCalled atomic.Bool
	goodDone := make(chan struct{})
	topic.Subscribe(context.Background(), func(int) {}, func(err error) {
		goodCalled.Store(true)
		close(goodDone)
	})
	topic.Subscribe(context.Background(), func(int) {}, func(err error) {
		panic("subscriber callback exploded")
	})

	select {
	case <-goodDone:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error propagation")
	}
	test.That(t, goodCalled.Load(), test.ShouldBeTrue)
}

func TestMessageConversion(t *testing.T) {
	logger := logging.NewTestLogger(t)
	wire := NewTopic[int]("wire", tickProducer(20*time.Millisecond), logger)
	logical := Convert[int, string](wire, func(i int) string {
		return "v"
	}, logger)

	var got atomic.Int32
	cancel := logical.Subscribe(context.Background(), func(s string) {
		if s == "v" {
			got.Add(1)
		}
	}, nil)
	defer cancel()

	time.Sleep(200 * time.Millisecond)
	test.That(t, got.Load() > 0, test.ShouldBeTrue)
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func errNew(s string) error { return simpleErr(s) }
