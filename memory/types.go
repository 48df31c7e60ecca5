// Package memory implements the distance/time-gated spatial memory (C3):
// ingestion of (frame, pose) observations into a persisted vector +
// image store keyed by image/text embeddings, plus the named-location
// registry that lives beside it.
package memory

import (
	"go.korebot.dev/core/spatialmath"
)

// SpatialFrame is one persisted observation: a pose-tagged embedding with
// an associated raw image stored under the same id.
type SpatialFrame struct {
	FrameID   string
	Position  spatialmath.Vector // 3D
	Rotation  spatialmath.Vector // roll, pitch, yaw
	Timestamp float64           // seconds, unix epoch
	Embedding []float32
}

// RobotLocation is a named, operator-authored point of interest. Names
// are unique case-insensitively.
type RobotLocation struct {
	Name     string
	Position spatialmath.Vector
	Rotation spatialmath.Vector
}

// QueryResult is one hit from a similarity or spatial query.
type QueryResult struct {
	ID       string
	Metadata SpatialFrame
	Distance float64
	Image    []byte
}
