package interview

import (
	"math"
	"time"
)

// wrapUpWindow is how close to the end the wrap-up hint turns on.
const wrapUpWindow = 2 * time.Minute

// TimeStatus is a point-in-time view of the session clock. Remaining time is
// measured against active time: wall time minus the seconds the engine spent
// inside evaluation and generation calls, so the candidate is never billed
// for model latency.
type TimeStatus struct {
	ElapsedMinutes     float64 `json:"elapsed_minutes"`
	RemainingMinutes   float64 `json:"remaining_minutes"`
	RemainingSeconds   int     `json:"remaining_seconds"`
	IsExpired          bool    `json:"is_expired"`
	IsWrapUp           bool    `json:"is_wrap_up"`
	ProgressPct        float64 `json:"progress_pct"`
	WallElapsedMinutes float64 `json:"wall_elapsed_minutes"`
}

// ActiveElapsed returns the candidate's active time at now: wall time since
// start minus accumulated processing time, floored at zero.
func (s *Session) ActiveElapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	active := now.Sub(s.StartedAt) - time.Duration(s.ProcessingSeconds*float64(time.Second))
	if active < 0 {
		return 0
	}
	return active
}

// TimeStatusAt computes the session clock view at now. Pure: it never mutates
// the session.
func (s *Session) TimeStatusAt(now time.Time) TimeStatus {
	duration := time.Duration(s.DurationMinutes) * time.Minute
	if s.StartedAt.IsZero() {
		return TimeStatus{
			RemainingMinutes: duration.Minutes(),
			RemainingSeconds: int(duration.Seconds()),
		}
	}

	wall := now.Sub(s.StartedAt)
	active := s.ActiveElapsed(now)
	remaining := duration - active
	if remaining < 0 {
		remaining = 0
	}

	progress := 0.0
	if duration > 0 {
		progress = math.Min(100, active.Minutes()/duration.Minutes()*100)
	}

	return TimeStatus{
		ElapsedMinutes:     round2(active.Minutes()),
		RemainingMinutes:   round2(remaining.Minutes()),
		RemainingSeconds:   int(remaining.Seconds()),
		IsExpired:          active >= duration,
		IsWrapUp:           remaining > 0 && remaining < wrapUpWindow,
		ProgressPct:        round2(progress),
		WallElapsedMinutes: round2(wall.Minutes()),
	}
}

// round2 rounds v to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
