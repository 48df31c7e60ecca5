package stream

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"go.korebot.dev/core/internal/logging"
)

func TestPushTopicDeliversPublishedValues(t *testing.T) {
	topic, publish := NewPushTopic[string]("text_query", logging.NewTestLogger(t))

	received := make(chan string, 4)
	cancel := topic.Subscribe(context.Background(), func(v string) { received <- v }, nil)
	defer cancel()

	// give the producer goroutine a moment to start selecting on ch.
	time.Sleep(10 * time.Millisecond)
	publish("hello")

	select {
	case v := <-received:
		test.That(t, v, test.ShouldEqual, "hello")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published value")
	}
}
