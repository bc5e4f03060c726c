// Package mock provides a test double for the vision.Extractor interface.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/hireloop/hireloop/pkg/provider/vision"
)

// Extractor is a mock implementation of vision.Extractor that replays a fixed
// sequence of frames. Once the sequence is exhausted, Next returns io.EOF.
type Extractor struct {
	mu sync.Mutex

	// Frames is the sequence replayed by Next.
	Frames []vision.Frame

	// Err, if non-nil, is returned by Next before any frames are replayed.
	Err error

	next int
}

// Next returns the next configured frame, io.EOF when exhausted.
func (e *Extractor) Next(ctx context.Context) (vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return vision.Frame{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Err != nil {
		return vision.Frame{}, e.Err
	}
	if e.next >= len(e.Frames) {
		return vision.Frame{}, io.EOF
	}
	f := e.Frames[e.next]
	e.next++
	return f, nil
}

// Ensure Extractor implements vision.Extractor at compile time.
var _ vision.Extractor = (*Extractor)(nil)
