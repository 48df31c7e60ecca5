package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.korebot.dev/core/internal/logging"
	"go.korebot.dev/core/skill"
	"go.korebot.dev/core/stream"
)

// observePrompt is the fixed natural-language prompt ObserveStream
// re-submits to the agent alongside each captured frame.
const observePrompt = "Here is a frame from the live video feed. Describe anything relevant you observe."

// observeStreamSkill subscribes to a video stream and, at a caller-set
// period, pulls the latest frame, base64-encodes it, and feeds it back to
// the shell with a fixed prompt (spec §4.7 ObserveStream). It is itself a
// running skill, cancellable via Library.Terminate, with an optional
// max_duration bounding total run time.
type observeStreamSkill struct {
	shell   *Shell
	video   *stream.Topic[[]byte]
	library *skill.Library
	logger  logging.Logger

	stop chan struct{}
}

// NewObserveStreamDescriptor builds the ObserveStream skill descriptor,
// bound to shell, video and library at registration time (the descriptor
// closure is this skill's dependency injection, replacing the spec's
// deferred runtime construction — see the skill package's design note).
func NewObserveStreamDescriptor(shell *Shell, video *stream.Topic[[]byte], library *skill.Library, logger logging.Logger) skill.Descriptor {
	return skill.Descriptor{
		Name:        "observe_stream",
		Description: "periodically capture a frame from the video feed and describe it",
		Params: []skill.ParamSpec{
			{Name: "period_seconds", Type: skill.ParamNumber, Description: "seconds between captured frames", Required: true},
			{Name: "max_duration_seconds", Type: skill.ParamNumber, Description: "optional total run time bound", Required: false},
		},
		New: func(args map[string]any) (skill.Skill, error) {
			return &observeStreamSkill{shell: shell, video: video, library: library, logger: logger}, nil
		},
	}
}

func (o *observeStreamSkill) Call(ctx context.Context, args map[string]any) skill.Result {
	period, ok := numberArg(args, "period_seconds")
	if !ok || period <= 0 {
		return skill.Result{Success: false, FailureReason: "period_seconds must be a positive number"}
	}
	var maxDuration time.Duration
	if md, ok := numberArg(args, "max_duration_seconds"); ok && md > 0 {
		maxDuration = time.Duration(md * float64(time.Second))
	}

	o.stop = make(chan struct{})
	frames := newPeekCache(ctx, o.video)

	go o.run(ctx, time.Duration(period*float64(time.Second)), maxDuration, frames)

	if o.library != nil {
		o.library.RegisterRunning("observe_stream", o, o.Stop)
	}

	return skill.Result{Success: true}
}

func (o *observeStreamSkill) run(ctx context.Context, period, maxDuration time.Duration, frames *peekCache[[]byte]) {
	defer frames.Close()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if maxDuration > 0 {
		timer := time.NewTimer(maxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-o.stop:
			return
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-ticker.C:
			frame, ok := frames.Peek()
			if !ok {
				continue
			}
			encoded := base64.StdEncoding.EncodeToString(frame)
			prompt := fmt.Sprintf("%s\n[image/base64]%s", observePrompt, encoded)
			o.shell.Ask(ctx, prompt, frame)
		}
	}
}

func (o *observeStreamSkill) Stop() {
	if o.stop == nil {
		return
	}
	select {
	case <-o.stop:
	default:
		close(o.stop)
	}
}

func numberArg(args map[string]any, key string) (float64, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
