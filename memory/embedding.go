package memory

import (
	"math"
	"math/rand"

	"go.korebot.dev/core/internal/logging"
)

// EmbeddingProvider is the external image/text-encoder collaborator (out
// of scope per spec §1, specified only by this interface). Image and
// text embeddings must share a joint space so query_by_text and
// query_by_embedding are comparable.
type EmbeddingProvider interface {
	EmbedImage(img []byte) ([]float32, error)
	EmbedText(text string) ([]float32, error)
}

// FallbackProvider wraps an EmbeddingProvider so that embedding failures
// never block ingestion: on error it logs and returns a random unit
// vector, the spec's pinned policy for EmbeddingUnavailable (design
// decision recorded in DESIGN.md — call sites that need to distinguish a
// degraded embedding from a model-backed one should check
// LastFallback()).
type FallbackProvider struct {
	inner  EmbeddingProvider
	dim    int
	logger logging.Logger
	rng    *rand.Rand

	lastFallback bool
}

// NewFallbackProvider wraps inner, producing dim-length fallback vectors.
func NewFallbackProvider(inner EmbeddingProvider, dim int, logger logging.Logger) *FallbackProvider {
	return &FallbackProvider{inner: inner, dim: dim, logger: logger, rng: rand.New(rand.NewSource(1))}
}

// LastFallback reports whether the most recent Embed* call degraded to a
// random vector.
func (f *FallbackProvider) LastFallback() bool { return f.lastFallback }

func (f *FallbackProvider) randomUnit() []float32 {
	v := make([]float32, f.dim)
	var norm float64
	for i := range v {
		x := f.rng.Float64()*2 - 1
		v[i] = float32(x)
		norm += x * x
	}
	if norm == 0 {
		norm = 1
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

// EmbedImage delegates to inner, falling back to a random unit vector and
// logging on failure so ingestion never blocks (EmbeddingUnavailable).
func (f *FallbackProvider) EmbedImage(img []byte) ([]float32, error) {
	e, err := f.inner.EmbedImage(img)
	if err != nil {
		f.lastFallback = true
		if f.logger != nil {
			f.logger.Warnw("image embedding unavailable, using random fallback", "error", err)
		}
		return f.randomUnit(), nil
	}
	f.lastFallback = false
	return e, nil
}

// EmbedText delegates to inner, falling back the same way as EmbedImage.
func (f *FallbackProvider) EmbedText(text string) ([]float32, error) {
	e, err := f.inner.EmbedText(text)
	if err != nil {
		f.lastFallback = true
		if f.logger != nil {
			f.logger.Warnw("text embedding unavailable, using random fallback", "error", err)
		}
		return f.randomUnit(), nil
	}
	f.lastFallback = false
	return e, nil
}
