package memory

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/teris-io/shortid"

	"go.korebot.dev/core/internal/logging"
	"go.korebot.dev/core/spatialmath"
)

// SpatialMemory ingests a merged stream of (frame, position, rotation)
// observations, gating on distance and time so only meaningfully new
// views are stored (P7), embeds and persists each kept frame, and answers
// similarity and spatial queries over what's been stored.
type SpatialMemory struct {
	store      *Store
	embedder   EmbeddingProvider
	logger     logging.Logger
	clock      clock.Clock
	dMin, tMin float64
	flushEvery int
	onFlush    func() error

	mu          sync.Mutex
	lastPose    spatialmath.Vector
	havePose    bool
	lastTime    time.Time
	storedCount int
}

// Option configures a SpatialMemory at construction.
type Option func(*SpatialMemory)

// WithClock overrides the clock used for time-gating (tests inject a
// fake clock here).
func WithClock(c clock.Clock) Option {
	return func(m *SpatialMemory) { m.clock = c }
}

// WithFlushCallback registers a callback invoked every flushEvery stored
// frames (the spec's "flush the image store to durable storage" every
// 100 frames); flushEvery <= 0 disables periodic flushing.
func WithFlushCallback(flushEvery int, onFlush func() error) Option {
	return func(m *SpatialMemory) {
		m.flushEvery = flushEvery
		m.onFlush = onFlush
	}
}

// NewSpatialMemory builds a SpatialMemory gated at dMin meters / tMin
// seconds, persisting into store via embedder.
func NewSpatialMemory(store *Store, embedder EmbeddingProvider, dMin, tMin float64, logger logging.Logger, opts ...Option) *SpatialMemory {
	m := &SpatialMemory{
		store:      store,
		embedder:   embedder,
		logger:     logger,
		clock:      clock.New(),
		dMin:       dMin,
		tMin:       tMin,
		flushEvery: 100,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StoredCount returns how many frames have been persisted so far.
func (m *SpatialMemory) StoredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storedCount
}

func newFrameID(now time.Time) (string, error) {
	suffix, err := shortid.Generate()
	if err != nil {
		return "", err
	}
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("frame_%s_%s", now.Format("20060102_150405"), suffix), nil
}

// Ingest applies the gating policy (P7): it skips the frame if the pose
// moved less than dMin since the last stored frame or less than tMin
// seconds elapsed, embeds and persists it otherwise, and returns the
// stored frame id and true, or ("", false, nil) when gated out.
func (m *SpatialMemory) Ingest(image []byte, pos, rot spatialmath.Vector) (string, bool, error) {
	now := m.clock.Now()

	m.mu.Lock()
	if m.havePose {
		movedEnough := pos.Distance(m.lastPose) >= m.dMin
		timeEnough := now.Sub(m.lastTime).Seconds() >= m.tMin
		if !movedEnough || !timeEnough {
			m.mu.Unlock()
			return "", false, nil
		}
	}
	m.mu.Unlock()

	embedding, err := m.embedder.EmbedImage(image)
	if err != nil {
		// FallbackProvider already absorbs this; a bare embedder
		// returning an error here is itself the EmbeddingUnavailable
		// condition with no fallback configured, so a random vector is
		// synthesized inline to preserve ingestion liveness.
		embedding = unitFallback(len(embedding))
		if m.logger != nil {
			m.logger.Warnw("embedding failed with no fallback provider configured", "error", err)
		}
	}

	id, err := newFrameID(now)
	if err != nil {
		return "", false, errors.Wrap(ErrStore, err.Error())
	}

	frame := SpatialFrame{
		FrameID:   id,
		Position:  pos,
		Rotation:  rot,
		Timestamp: float64(now.UnixNano()) / 1e9,
		Embedding: embedding,
	}
	if err := m.store.Put(frame, image); err != nil {
		return "", false, err
	}

	m.mu.Lock()
	m.lastPose = pos
	m.havePose = true
	m.lastTime = now
	m.storedCount++
	shouldFlush := m.flushEvery > 0 && m.storedCount%m.flushEvery == 0
	m.mu.Unlock()

	if shouldFlush && m.onFlush != nil {
		if err := m.onFlush(); err != nil && m.logger != nil {
			m.logger.Errorw("periodic flush failed", "error", err)
		}
	}

	return id, true, nil
}

func unitFallback(n int) []float32 {
	if n <= 0 {
		n = 1
	}
	v := make([]float32, n)
	var norm float64
	for i := range v {
		x := rand.Float64()*2 - 1
		v[i] = float32(x)
		norm += x * x
	}
	if norm == 0 {
		v[0], norm = 1, 1
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// QueryByEmbedding performs a k-NN cosine search directly against the
// store.
func (m *SpatialMemory) QueryByEmbedding(e []float32, k int) ([]QueryResult, error) {
	return m.store.QueryByEmbedding(e, k)
}

// QueryByText embeds text through the joint image/text embedding space
// and performs the same k-NN search as QueryByEmbedding.
func (m *SpatialMemory) QueryByText(text string, k int) ([]QueryResult, error) {
	e, err := m.embedder.EmbedText(text)
	if err != nil {
		e = unitFallback(len(e))
		if m.logger != nil {
			m.logger.Warnw("text embedding failed with no fallback provider configured", "error", err)
		}
	}
	return m.store.QueryByEmbedding(e, k)
}

// QueryByLocation linearly scans stored metadata for frames within radius
// r of (x, y), ascending by distance.
func (m *SpatialMemory) QueryByLocation(x, y, r float64, k int) ([]QueryResult, error) {
	return m.store.QueryByLocation(x, y, r, k)
}
