package stream

import (
	"context"

	"go.korebot.dev/core/internal/logging"
)

// Publisher pushes values into a topic built with NewPushTopic. It is
// safe to call from multiple goroutines.
type Publisher[T any] func(v T)

// NewPushTopic builds a Topic whose producer is fed externally (e.g. a
// text_query stream driven by user input, or an agent's response_stream
// driven by completed replies) rather than by polling some external
// system. The returned Publisher is the only way values enter the topic;
// publishing before any subscriber attaches never blocks: the most recent
// such value is held in a one-slot buffer (replacing any older one) and
// emitted once the first subscriber starts the producer.
func NewPushTopic[T any](name string, logger logging.Logger) (*Topic[T], Publisher[T]) {
	ch := make(chan T, 1)
	produce := func(ctx context.Context, emit func(T)) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case v := <-ch:
				emit(v)
			}
		}
	}
	topic := NewTopic[T](name, produce, logger)
	publish := func(v T) {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
	return topic, publish
}
