// Package vision defines contracts for camera feature extraction backends.
//
// The proctoring layer never touches raw video. An external extractor (a
// browser-side model or a CV sidecar) reduces each camera frame to a small
// feature record, and implementations of [Extractor] deliver those records to
// the engine. The in-process gaze state machine consumes [Frame] values only.
package vision

import (
	"context"
	"time"
)

// Frame is the per-frame feature record produced by a camera extractor.
type Frame struct {
	// GazeScore estimates how directly the candidate is looking at the screen,
	// in [0, 100]. Scores of 50 and above count as looking.
	GazeScore float64

	// FaceCount is the number of faces detected in the frame.
	FaceCount int

	// CapturedAt is when the frame was captured.
	CapturedAt time.Time
}

// Extractor is the abstraction over any camera feature extraction backend.
//
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Next blocks until the next feature frame is available or ctx is
	// cancelled. Returns an error when the underlying stream ends.
	Next(ctx context.Context) (Frame, error)
}
