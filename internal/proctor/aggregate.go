package proctor

import (
	"math"
	"time"
)

// ViolationType classifies a recorded integrity violation.
type ViolationType string

const (
	// ViolationGazeAway is a completed sustained-deviation episode.
	ViolationGazeAway ViolationType = "gaze_away"

	// ViolationMultiPerson is more than one face in frame.
	ViolationMultiPerson ViolationType = "multi_person"

	// ViolationTabSwitch is the interview tab losing focus.
	ViolationTabSwitch ViolationType = "tab_switch"
)

// IsValid reports whether v is a recognised violation type.
func (v ViolationType) IsValid() bool {
	switch v {
	case ViolationGazeAway, ViolationMultiPerson, ViolationTabSwitch:
		return true
	}
	return false
}

// displayLogSize is how many recent events the display view returns. The full
// log is retained for the report.
const displayLogSize = 20

// Violation is one logged integrity event.
type Violation struct {
	Type       ViolationType `json:"type"`
	Detail     string        `json:"detail,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Weights are the integrity score deductions per violation.
type Weights struct {
	Gaze        float64
	MultiPerson float64
	TabSwitch   float64
	AwaySecond  float64
}

// DefaultWeights returns the production deduction weights.
func DefaultWeights() Weights {
	return Weights{Gaze: 3, MultiPerson: 15, TabSwitch: 10, AwaySecond: 0.5}
}

// Aggregate accumulates the proctoring signal for one session. It is a plain
// document embedded in the session record; the controller serialises access.
type Aggregate struct {
	// GazeAway, MultiPerson and TabSwitch are monotonically increasing
	// violation counters.
	GazeAway    int `json:"gaze_away"`
	MultiPerson int `json:"multi_person"`
	TabSwitch   int `json:"tab_switch"`

	// AwaySeconds is the total time spent in deviation episodes.
	AwaySeconds float64 `json:"away_seconds"`

	// Log retains every violation in arrival order.
	Log []Violation `json:"log,omitempty"`
}

// Record appends a violation of the given type and bumps its counter.
func (a *Aggregate) Record(v Violation) {
	switch v.Type {
	case ViolationGazeAway:
		a.GazeAway++
	case ViolationMultiPerson:
		a.MultiPerson++
	case ViolationTabSwitch:
		a.TabSwitch++
	}
	a.Log = append(a.Log, v)
}

// AddAwayTime accumulates deviation episode duration.
func (a *Aggregate) AddAwayTime(d time.Duration) {
	if d > 0 {
		a.AwaySeconds += d.Seconds()
	}
}

// DisplayLog returns the most recent violations, capped for UI display.
func (a *Aggregate) DisplayLog() []Violation {
	if len(a.Log) <= displayLogSize {
		return a.Log
	}
	return a.Log[len(a.Log)-displayLogSize:]
}

// Integrity computes the integrity score in [0, 100] from the accumulated
// violations using the given weights.
func (a *Aggregate) Integrity(w Weights) float64 {
	score := 100.0 -
		w.Gaze*float64(a.GazeAway) -
		w.MultiPerson*float64(a.MultiPerson) -
		w.TabSwitch*float64(a.TabSwitch) -
		w.AwaySecond*a.AwaySeconds
	return math.Max(0, score)
}
