// Package interview holds the session document model and the controller that
// drives an adaptive interview from first question to final report input.
package interview

import (
	"math"
	"time"

	"github.com/hireloop/hireloop/internal/proctor"
)

// Round identifies an interview stage.
type Round string

const (
	// RoundTechnical is the opening stage probing role-specific skill.
	RoundTechnical Round = "technical"

	// RoundHR is the closing stage probing behavioural and culture fit.
	RoundHR Round = "hr"
)

// IsValid reports whether r is a recognised round.
func (r Round) IsValid() bool {
	return r == RoundTechnical || r == RoundHR
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusTerminated Status = "terminated"
	StatusExpired    Status = "time_expired"
)

// TerminationReason explains a terminated session.
type TerminationReason string

const (
	// ReasonTechnicalCutoff means the technical round mean fell below the
	// configured cutoff at the round transition.
	ReasonTechnicalCutoff TerminationReason = "technical_score_below_cutoff"
)

// Difficulty is the question difficulty ladder rung.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionType classifies a question in the planned progression.
type QuestionType string

const (
	TypeConceptual QuestionType = "conceptual"
	TypeScenario   QuestionType = "scenario"
	TypeTradeoff   QuestionType = "trade-off"
	TypeDesign     QuestionType = "design"
	TypeDebugging  QuestionType = "debugging"
	TypeBehavioral QuestionType = "behavioral"
)

// QuestionSource records which generation path produced a question.
type QuestionSource string

const (
	SourceSmart    QuestionSource = "smart"
	SourceFallback QuestionSource = "fallback"
	SourceStatic   QuestionSource = "static"
)

// Question is one asked (or pregenerated) interview question.
type Question struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	IdealAnswer string         `json:"ideal_answer"`
	Keywords    []string       `json:"keywords"`
	IsCoding    bool           `json:"is_coding"`
	Difficulty  Difficulty     `json:"difficulty"`
	Round       Round          `json:"round"`
	Type        QuestionType   `json:"type,omitempty"`
	Source      QuestionSource `json:"source,omitempty"`
	AskedAt     time.Time      `json:"asked_at"`
}

// EvalPhase records how far evaluation progressed for an answer.
type EvalPhase string

const (
	// PhaseInstant means only the local phase ran.
	PhaseInstant EvalPhase = "instant"

	// PhaseDeep means the model-backed refinement succeeded.
	PhaseDeep EvalPhase = "deep"

	// PhaseDeepFailed means the refinement timed out or errored and the
	// evaluation carries fallback depth and feedback.
	PhaseDeepFailed EvalPhase = "deep_failed"

	// PhaseCode means the answer went through the code evaluation path.
	PhaseCode EvalPhase = "code"
)

// Strength buckets an overall score for display.
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// StrengthFor returns the display bucket for an overall score.
func StrengthFor(overall float64) Strength {
	switch {
	case overall >= 80:
		return StrengthStrong
	case overall >= 50:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// Evaluation is the scored outcome of one answer. All dimensions are in
// [0, 100].
type Evaluation struct {
	Similarity    float64 `json:"similarity"`
	KeywordScore  float64 `json:"keyword_score"`
	Content       float64 `json:"content"`
	Communication float64 `json:"communication"`
	Depth         float64 `json:"depth"`
	Confidence    float64 `json:"confidence"`
	Overall       float64 `json:"overall"`

	Strength Strength  `json:"strength"`
	Feedback string    `json:"feedback"`
	Phase    EvalPhase `json:"phase"`

	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	MissedKeywords  []string `json:"missed_keywords,omitempty"`

	// Code-path extras. Zero outside PhaseCode.
	Efficiency float64  `json:"efficiency,omitempty"`
	EdgeCase   float64  `json:"edge_case,omitempty"`
	FollowUps  []string `json:"follow_ups,omitempty"`
}

// Answer is one submitted answer with its evaluation.
type Answer struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`

	// CodeText and CodeLanguage are set when a coding question was answered
	// with code.
	CodeText     string `json:"code_text,omitempty"`
	CodeLanguage string `json:"code_language,omitempty"`

	Evaluation Evaluation `json:"evaluation"`
	AnsweredAt time.Time  `json:"answered_at"`
}

// JDProfile is the structured digest of a job description.
type JDProfile struct {
	RequiredSkills      []string `json:"required_skills"`
	ExperienceLevel     string   `json:"experience_level"`
	KeyTechnologies     []string `json:"key_technologies"`
	InterviewFocusAreas []string `json:"interview_focus_areas"`
}

// Session is the full interview document. It is persisted as one unit; the
// controller serialises all mutation per session.
type Session struct {
	ID             string `json:"id"`
	CandidateToken string `json:"candidate_token"`

	// GroupID ties together all candidates interviewed for the same opening.
	// Used to build the cross-candidate question diversity corpus.
	GroupID string `json:"group_id,omitempty"`

	JobRole    string     `json:"job_role"`
	JD         string     `json:"jd,omitempty"`
	JDProfile  *JDProfile `json:"jd_profile,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`

	Status       Status            `json:"status"`
	CurrentRound Round             `json:"current_round"`
	Terminated   TerminationReason `json:"termination_reason,omitempty"`

	DurationMinutes int `json:"duration_minutes"`

	Questions []Question `json:"questions"`
	Answers   []Answer   `json:"answers"`

	TechnicalScore float64 `json:"technical_score"`
	HRScore        float64 `json:"hr_score"`

	// ProcessingSeconds accumulates time spent inside evaluation and
	// generation calls. It is excluded from the candidate's active time.
	ProcessingSeconds float64 `json:"processing_seconds"`

	Proctoring proctor.Aggregate `json:"proctoring"`

	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// PendingQuestion returns the latest question that has no answer yet, or nil
// when the candidate is up to date.
func (s *Session) PendingQuestion() *Question {
	if len(s.Questions) == len(s.Answers)+1 {
		return &s.Questions[len(s.Questions)-1]
	}
	return nil
}

// AskedTexts returns the text of every asked question in order.
func (s *Session) AskedTexts() []string {
	out := make([]string, len(s.Questions))
	for i, q := range s.Questions {
		out[i] = q.Text
	}
	return out
}

// RoundAnswers returns the answers belonging to questions of the given round.
func (s *Session) RoundAnswers(r Round) []Answer {
	byID := make(map[string]Round, len(s.Questions))
	for _, q := range s.Questions {
		byID[q.ID] = q.Round
	}
	var out []Answer
	for _, a := range s.Answers {
		if byID[a.QuestionID] == r {
			out = append(out, a)
		}
	}
	return out
}

// RoundScore returns the mean overall score of the given round's answers,
// rounded to one decimal. An empty round scores 0.
func (s *Session) RoundScore(r Round) float64 {
	answers := s.RoundAnswers(r)
	if len(answers) == 0 {
		return 0
	}
	var sum float64
	for _, a := range answers {
		sum += a.Evaluation.Overall
	}
	return Round1(sum / float64(len(answers)))
}

// LastScore returns the overall score of the most recent answer, or -1 when
// nothing has been answered.
func (s *Session) LastScore() float64 {
	if len(s.Answers) == 0 {
		return -1
	}
	return s.Answers[len(s.Answers)-1].Evaluation.Overall
}

// MeanScore returns the mean overall score across all answers, or -1 when
// nothing has been answered.
func (s *Session) MeanScore() float64 {
	if len(s.Answers) == 0 {
		return -1
	}
	var sum float64
	for _, a := range s.Answers {
		sum += a.Evaluation.Overall
	}
	return sum / float64(len(s.Answers))
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
