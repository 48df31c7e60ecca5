package skill

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.korebot.dev/core/internal/logging"
)

// ErrNotFound is returned by operations that require a previously
// registered descriptor or a currently running skill.
var ErrNotFound = errors.New("skill: not found")

// ErrAlreadyRegistered guards Register against silently replacing an
// existing descriptor.
var ErrAlreadyRegistered = errors.New("skill: already registered")

// CancelFunc is the cancellation handle a running skill registers
// alongside its instance; Terminate invokes it exactly once.
type CancelFunc func()

type runningEntry struct {
	instance Skill
	cancel   CancelFunc
	// handle distinguishes successive registrations under the same skill
	// name in logs (e.g. observe_stream restarted after a prior
	// terminate), since name alone is reused across a skill's lifetime.
	handle uuid.UUID
}

// Library is a SkillLibrary (spec §4.6): it owns the descriptor
// registry, deferred constructor kwargs, and the set of currently
// running skill instances.
type Library struct {
	logger logging.Logger

	mu          sync.Mutex
	descriptors map[string]Descriptor
	storedArgs  map[string]map[string]any
	running     map[string]runningEntry
}

// NewLibrary builds an empty Library.
func NewLibrary(logger logging.Logger) *Library {
	return &Library{
		logger:      logger,
		descriptors: make(map[string]Descriptor),
		storedArgs:  make(map[string]map[string]any),
		running:     make(map[string]runningEntry),
	}
}

// Register adds a skill descriptor to the registry.
func (l *Library) Register(d Descriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.descriptors[d.Name]; exists {
		return errors.Wrapf(ErrAlreadyRegistered, "skill %q", d.Name)
	}
	l.descriptors[d.Name] = d
	return nil
}

// Remove deletes a skill descriptor and any stored constructor kwargs for
// it. It does not affect an already-running instance.
func (l *Library) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.descriptors, name)
	delete(l.storedArgs, name)
}

// Contains reports whether name is a registered descriptor.
func (l *Library) Contains(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.descriptors[name]
	return ok
}

// List returns every registered descriptor, in no particular order.
func (l *Library) List() []Descriptor {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Descriptor, 0, len(l.descriptors))
	for _, d := range l.descriptors {
		out = append(out, d)
	}
	return out
}

// CreateInstance defers construction: it only stores kwargs for name,
// merged on top of any previously stored kwargs. Construction happens
// later, inside Call.
func (l *Library) CreateInstance(name string, kwargs map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.descriptors[name]; !ok {
		return errors.Wrapf(ErrNotFound, "skill %q", name)
	}
	existing := l.storedArgs[name]
	if existing == nil {
		existing = make(map[string]any)
	}
	for k, v := range kwargs {
		existing[k] = v
	}
	l.storedArgs[name] = existing
	return nil
}

// Call merges stored kwargs (from CreateInstance) with call-site args
// (stored wins on conflict), constructs the skill via its descriptor,
// and invokes it.
func (l *Library) Call(ctx context.Context, name string, args map[string]any) Result {
	l.mu.Lock()
	desc, ok := l.descriptors[name]
	stored := l.storedArgs[name]
	l.mu.Unlock()

	if !ok {
		return Result{Success: false, FailureReason: "not registered", Error: errors.Wrapf(ErrNotFound, "skill %q", name)}
	}

	merged := make(map[string]any, len(args)+len(stored))
	for k, v := range args {
		merged[k] = v
	}
	for k, v := range stored {
		merged[k] = v
	}

	instance, err := desc.New(merged)
	if err != nil {
		if l.logger != nil {
			l.logger.Errorw("skill construction failed", "skill", name, "error", err)
		}
		return Result{Success: false, FailureReason: "construction failed", Error: err}
	}

	result := instance.Call(ctx, merged)
	if result.Error != nil && l.logger != nil {
		l.logger.Errorw("skill invocation failed", "skill", name, "error", result.Error)
	}
	return result
}

// RegisterRunning records a currently-executing skill instance and its
// cancellation handle under name, so a later Terminate(name) can stop it.
// Long-running skills call this themselves from within Call, after
// spawning their background worker and before returning (as
// ObserveStream does); a caller may also register an instance itself.
func (l *Library) RegisterRunning(name string, instance Skill, cancel CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	handle := uuid.New()
	l.running[name] = runningEntry{instance: instance, cancel: cancel, handle: handle}
	if l.logger != nil {
		l.logger.Infow("skill registered as running", "skill", name, "handle", handle)
	}
}

// IsRunning reports whether name currently has a registered running
// instance.
func (l *Library) IsRunning(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[name]
	return ok
}

// Terminate stops a running skill (P4): it calls Stop() on the instance
// if it implements Stoppable, invokes the stored cancellation handle, and
// always unregisters it. It is idempotent: a second call for the same
// name, or a call for a name that was never running, returns false
// without error and without panicking.
func (l *Library) Terminate(name string) bool {
	l.mu.Lock()
	entry, ok := l.running[name]
	if ok {
		delete(l.running, name)
	}
	l.mu.Unlock()

	if !ok {
		return false
	}
	if l.logger != nil {
		l.logger.Infow("terminating running skill", "skill", name, "handle", entry.handle)
	}
	if stoppable, ok := entry.instance.(Stoppable); ok {
		stoppable.Stop()
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	return true
}

// TerminateAll stops every currently running skill, for process shutdown.
// A single misbehaving Stop/cancel must not prevent the rest from being
// torn down, so each is run in isolation and any panic is recovered and
// folded into the aggregate error via multierr rather than propagated.
func (l *Library) TerminateAll() error {
	l.mu.Lock()
	names := make([]string, 0, len(l.running))
	for name := range l.running {
		names = append(names, name)
	}
	l.mu.Unlock()

	var errs error
	for _, name := range names {
		errs = multierr.Append(errs, l.terminateRecover(name))
	}
	return errs
}

func (l *Library) terminateRecover(name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("skill: terminating %q panicked: %v", name, r)
		}
	}()
	l.Terminate(name)
	return nil
}
