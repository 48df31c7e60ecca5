package main

import "github.com/pkg/errors"

// errNoEmbedder is returned by noopEmbedder's methods so every call
// degrades through memory.FallbackProvider's random-vector policy: this
// tool has no image/text encoder of its own (the spec leaves it an
// external collaborator), so ingestion and text queries run in permanent
// fallback mode.
var errNoEmbedder = errors.New("navtest: no embedding provider configured")

type noopEmbedder struct{}

func (noopEmbedder) EmbedImage(img []byte) ([]float32, error) { return nil, errNoEmbedder }
func (noopEmbedder) EmbedText(text string) ([]float32, error) { return nil, errNoEmbedder }
