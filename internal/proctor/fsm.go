// Package proctor tracks candidate attention and interview integrity.
//
// The gaze state machine consumes per-frame gaze scores produced by an
// external camera extractor and decides when to surface an on-screen warning.
// It deliberately reacts slowly in both directions: a warning appears only
// after sustained deviation, and clears only after sustained recovery, so a
// glance at a second monitor does not trigger and a single lucky frame does
// not clear an active warning.
package proctor

import (
	"time"
)

// GazeState is the attention state of the candidate.
type GazeState int

const (
	// Attentive means the candidate is looking at the screen.
	Attentive GazeState = iota

	// WarningActive means sustained deviation was detected and the warning
	// overlay should be shown.
	WarningActive

	// Recovering means the candidate has started looking back but has not yet
	// held attention long enough to clear the warning.
	Recovering
)

// String returns the canonical lowercase name of the state.
func (s GazeState) String() string {
	switch s {
	case Attentive:
		return "attentive"
	case WarningActive:
		return "warning_active"
	case Recovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Tunables for the gaze state machine. These mirror the behaviour proven out
// in production: a 5-frame majority window, 2 s of sustained deviation before
// warning, and 2 s of sustained attention before clearing.
const (
	// lookingThreshold is the minimum gaze score counted as looking.
	lookingThreshold = 50.0

	// windowSize is the number of recent frames used for the majority vote.
	windowSize = 5

	// awayDominance is the fraction of window frames that must be away for
	// the window to vote "away".
	awayDominance = 0.50

	// deviationHold is how long the window must vote away before a warning.
	deviationHold = 2 * time.Second

	// recoveryHold is how long attention must be held to clear a warning.
	recoveryHold = 2 * time.Second

	// staleAfter is the silence interval after which a synthetic away frame
	// is injected. A candidate who covers the camera stops producing frames;
	// without this the machine would freeze in its last state.
	staleAfter = 5 * time.Second
)

// FrameReport is the outcome of feeding one frame to the machine.
type FrameReport struct {
	// State is the machine state after the frame.
	State GazeState `json:"state"`

	// ShowWarning reports whether the warning overlay should be visible.
	ShowWarning bool `json:"show_warning"`

	// GazeScore echoes the frame's gaze score.
	GazeScore float64 `json:"gaze_score"`

	// LookingPct is the fraction of window frames that count as looking.
	LookingPct float64 `json:"looking_pct"`

	// AwayPct is 1 - LookingPct.
	AwayPct float64 `json:"away_pct"`

	// StateChanged reports whether this frame caused a transition.
	StateChanged bool `json:"state_changed"`

	// WindowSize is the current number of frames in the vote window.
	WindowSize int `json:"window_size"`
}

// GazeMachine is the per-session attention state machine.
// Not safe for concurrent use; the session controller serialises access.
type GazeMachine struct {
	state GazeState

	// window holds the is-looking votes of the last windowSize frames.
	window []bool

	// deviationStart is when the window first voted away, zero when it is not
	// currently voting away.
	deviationStart time.Time

	// recoveryStart is when recovery began, zero outside Recovering.
	recoveryStart time.Time

	// lastFrameAt is when the last real frame arrived.
	lastFrameAt time.Time
}

// NewGazeMachine returns a machine in the Attentive state.
func NewGazeMachine() *GazeMachine {
	return &GazeMachine{state: Attentive}
}

// State returns the current state.
func (g *GazeMachine) State() GazeState { return g.state }

// Observe feeds one frame with the given gaze score at time now and returns
// the resulting report.
func (g *GazeMachine) Observe(gazeScore float64, now time.Time) FrameReport {
	g.lastFrameAt = now
	return g.step(gazeScore, now)
}

// CheckStale injects a synthetic away frame when no real frame has arrived
// for staleAfter. Returns the report and true when an injection happened.
func (g *GazeMachine) CheckStale(now time.Time) (FrameReport, bool) {
	if g.lastFrameAt.IsZero() || now.Sub(g.lastFrameAt) < staleAfter {
		return FrameReport{}, false
	}
	g.lastFrameAt = now
	return g.step(0, now), true
}

// step pushes one observation through the window and the transition logic.
func (g *GazeMachine) step(gazeScore float64, now time.Time) FrameReport {
	looking := gazeScore >= lookingThreshold

	g.window = append(g.window, looking)
	if len(g.window) > windowSize {
		g.window = g.window[1:]
	}

	lookingCount := 0
	for _, l := range g.window {
		if l {
			lookingCount++
		}
	}
	lookingPct := float64(lookingCount) / float64(len(g.window))
	awayPct := 1 - lookingPct
	windowAway := awayPct >= awayDominance

	prev := g.state
	switch g.state {
	case Attentive:
		if windowAway {
			if g.deviationStart.IsZero() {
				g.deviationStart = now
			}
			if now.Sub(g.deviationStart) >= deviationHold {
				g.state = WarningActive
			}
		} else {
			g.deviationStart = time.Time{}
		}

	case WarningActive:
		// A single looking frame starts the recovery countdown.
		if looking {
			g.state = Recovering
			g.recoveryStart = now
		}

	case Recovering:
		switch {
		case !looking && windowAway:
			// Regression needs both an away frame and a window-level away
			// vote; the stale away frames left over from the warning phase
			// must not undo a recovery that just started.
			g.state = WarningActive
			g.recoveryStart = time.Time{}
		case looking && now.Sub(g.recoveryStart) >= recoveryHold:
			g.state = Attentive
			g.recoveryStart = time.Time{}
			g.deviationStart = time.Time{}
		}
	}

	return FrameReport{
		State:        g.state,
		ShowWarning:  g.state == WarningActive,
		GazeScore:    gazeScore,
		LookingPct:   lookingPct,
		AwayPct:      awayPct,
		StateChanged: g.state != prev,
		WindowSize:   len(g.window),
	}
}
