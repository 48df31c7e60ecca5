package stream

import (
	"context"

	"go.korebot.dev/core/internal/logging"
)

// Convert builds a derived Topic of logical type T backed by a wire topic
// of type W, applying conv exactly once per emitted value before
// fan-out — the spec's "a topic declared as logical type T may be backed
// by a different wire type W" conversion hook. The derived topic
// participates in its own refcounting: it subscribes to the wire topic
// only while it has subscribers of its own.
func Convert[W, T any](wire *Topic[W], conv func(W) T, logger logging.Logger) *Topic[T] {
	return NewTopic[T](wire.name+"/converted", func(ctx context.Context, emit func(T)) error {
		errCh := make(chan error, 1)
		cancel := wire.Subscribe(ctx, func(w W) {
			emit(conv(w))
		}, func(err error) {
			select {
			case errCh <- err:
			default:
			}
		})
		defer cancel()

		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return err
		}
	}, logger)
}
