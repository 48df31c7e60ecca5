package agent

import (
	"context"
	"sync"

	"go.korebot.dev/core/internal/logging"
	"go.korebot.dev/core/skill"
	"go.korebot.dev/core/stream"
)

// peekCache is a persistent subscription exposing a non-blocking Peek,
// the spec's §9 "HotCache<T>... peek returning Option<T>" note applied to
// the shell's optional observation/image inputs: unlike TopicLatest,
// constructing one never blocks waiting for a first value.
type peekCache[T any] struct {
	mu     sync.RWMutex
	value  T
	have   bool
	cancel func()
}

func newPeekCache[T any](ctx context.Context, topic *stream.Topic[T]) *peekCache[T] {
	c := &peekCache[T]{}
	c.cancel = topic.Subscribe(ctx, func(v T) {
		c.mu.Lock()
		c.value = v
		c.have = true
		c.mu.Unlock()
	}, nil)
	return c
}

func (c *peekCache[T]) Peek() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value, c.have
}

func (c *peekCache[T]) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Shell is the agent orchestration shell (C7): it wires a text-query
// stream and optional observation/image streams to a reasoner, executing
// any skills the reasoner requests and publishing the final reply to
// response_stream.
type Shell struct {
	logger   logging.Logger
	library  *skill.Library
	reasoner Reasoner

	textQuery       *stream.Topic[string]
	Responses       *stream.Topic[string]
	publishResponse stream.Publisher[string]

	observation *peekCache[any]
	images      *peekCache[[]byte]

	maxToolHops int
}

// ShellOption configures a Shell at construction.
type ShellOption func(*Shell)

// WithObservationStream attaches an optional structured observation-data
// stream whose latest value is snapshotted into every turn.
func WithObservationStream(ctx context.Context, topic *stream.Topic[any]) ShellOption {
	return func(s *Shell) { s.observation = newPeekCache(ctx, topic) }
}

// WithImageStream attaches an optional image stream whose latest frame is
// snapshotted into every turn.
func WithImageStream(ctx context.Context, topic *stream.Topic[[]byte]) ShellOption {
	return func(s *Shell) { s.images = newPeekCache(ctx, topic) }
}

// WithMaxToolHops bounds how many reasoner<->skill round-trips one query
// may trigger; a query that exceeds it is logged and dropped without a
// reply being published. Defaults to 3.
func WithMaxToolHops(n int) ShellOption {
	return func(s *Shell) { s.maxToolHops = n }
}

// NewShell builds a Shell over textQuery, publishing replies onto its own
// response_stream topic.
func NewShell(logger logging.Logger, library *skill.Library, reasoner Reasoner, textQuery *stream.Topic[string], opts ...ShellOption) *Shell {
	responses, publish := stream.NewPushTopic[string]("response_stream", logger)
	s := &Shell{
		logger:          logger,
		library:         library,
		reasoner:        reasoner,
		textQuery:       textQuery,
		Responses:       responses,
		publishResponse: publish,
		maxToolHops:     3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run subscribes to the text-query stream and drives one turn per query
// until ctx is done. It blocks.
func (s *Shell) Run(ctx context.Context) {
	done := make(chan struct{})
	cancel := s.textQuery.Subscribe(ctx, func(query string) {
		s.handleTurn(ctx, query, nil, nil)
	}, func(err error) {
		if s.logger != nil {
			s.logger.Errorw("text query stream failed", "error", err)
		}
	})
	defer cancel()

	<-ctx.Done()
	close(done)
	if err := s.library.TerminateAll(); err != nil {
		if s.logger != nil {
			s.logger.Warnw("shell shutdown: some running skills failed to terminate cleanly", "error", err)
		}
	}
}

// Ask runs one turn directly with an explicit query and optional image,
// bypassing the text-query topic — used by skills (e.g. ObserveStream)
// that synthesize their own prompts rather than waiting on user input.
func (s *Shell) Ask(ctx context.Context, query string, image []byte) {
	s.handleTurn(ctx, query, image, nil)
}

// handleTurn runs the reasoner, executes any requested tool calls through
// the skill library, and loops up to maxToolHops times feeding results
// back before publishing the final text.
func (s *Shell) handleTurn(ctx context.Context, query string, image []byte, observation any) {
	if observation == nil && s.observation != nil {
		if v, ok := s.observation.Peek(); ok {
			observation = v
		}
	}
	if image == nil && s.images != nil {
		if v, ok := s.images.Peek(); ok {
			image = v
		}
	}

	turn := Turn{Query: query, Observation: observation, Image: image}
	tools := s.tools()

	for hop := 0; hop < s.maxToolHops; hop++ {
		reply, err := s.reasoner.Respond(ctx, turn, tools)
		if err != nil {
			if s.logger != nil {
				s.logger.Errorw("reasoner failed", "error", err)
			}
			return
		}
		if len(reply.ToolCalls) == 0 {
			s.publishResponse(reply.Text)
			return
		}

		var results []ToolResult
		for _, call := range reply.ToolCalls {
			res := s.library.Call(ctx, call.Name, call.Args)
			results = append(results, ToolResult{Call: call, Result: res})
		}
		turn.ToolResults = results
	}

	if s.logger != nil {
		s.logger.Warnw("reasoner exceeded max tool hops, dropping turn", "query", query)
	}
}

func (s *Shell) tools() []Tool {
	descriptors := s.library.GetTools()
	out := make([]Tool, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, Tool{Name: d.Name, Description: d.Description, Parameters: d.Parameters})
	}
	return out
}
