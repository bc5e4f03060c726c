package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hireloop/hireloop/internal/observe"
	"github.com/hireloop/hireloop/internal/proctor"
	"github.com/hireloop/hireloop/pkg/provider/vision"
)

// ErrFinished is returned when an operation targets a session that already
// completed, terminated, or ran out of time.
var ErrFinished = errors.New("interview: session already finished")

// ErrAlreadyCompleted is returned when a candidate who already completed an
// interview tries to start another one.
var ErrAlreadyCompleted = errors.New("interview: candidate already completed an interview")

// ErrNoPending is returned when an answer arrives with no question awaiting
// one.
var ErrNoPending = errors.New("interview: no question awaiting an answer")

// ErrQuestionNotFound is returned when a submission targets a question that is
// not the latest pending one.
var ErrQuestionNotFound = errors.New("interview: question not found")

// GenParams carries the session context handed to the question generator.
type GenParams struct {
	// SessionID identifies the session the question is generated for.
	SessionID string

	// GroupID is the interview group the session belongs to, empty for
	// standalone sessions.
	GroupID string

	// Role is the job role being interviewed for.
	Role string

	// JD is the analysed job description, may be nil.
	JD *JDProfile

	// Round selects the question style.
	Round Round

	// Number is the 1-based position of the question being generated.
	Number int

	// Asked lists the questions already asked in this session.
	Asked []string

	// Avoid lists questions asked to other candidates in the same interview
	// group; the diversity corpus.
	Avoid []string

	// LastAnswer is the candidate's most recent answer, empty at the start.
	LastAnswer string

	// LastScore is the most recent overall score, -1 before any answer. It
	// drives the difficulty ladder.
	LastScore float64

	// MeanScore is the running mean overall score, -1 before any answer.
	MeanScore float64
}

// QuestionGenerator produces the next question for a session.
type QuestionGenerator interface {
	Next(ctx context.Context, p GenParams) Question
	AnalyzeJD(ctx context.Context, role, jd string) *JDProfile
}

// AnswerEvaluator scores submitted answers.
type AnswerEvaluator interface {
	Instant(ctx context.Context, q Question, answer string) Evaluation
	Deepen(ctx context.Context, q Question, answer string, ev Evaluation) Evaluation
	Code(ctx context.Context, q Question, code, language string) Evaluation
}

// Controller tunables.
const (
	// roundSplit is the fraction of active time after which the technical
	// round may hand over to HR.
	roundSplit = 0.6

	// minTechnicalAnswers is the minimum technical answers before the round
	// transition is considered.
	minTechnicalAnswers = 3

	// historyDepth is how many of the candidate's past sessions feed the
	// diversity corpus.
	historyDepth = 3

	// pregenCacheSize bounds the pregenerated-question cache.
	pregenCacheSize = 200

	// multiPersonDebounce throttles repeated multi-face detections into one
	// violation per episode.
	multiPersonDebounce = 10 * time.Second
)

// ControllerConfig tunes a [Controller]. Zero values select defaults.
type ControllerConfig struct {
	// TechnicalCutoff is the technical round mean below which the interview
	// terminates at the round transition. Default 70.
	TechnicalCutoff float64

	// PlannedQuestions is the total question budget. Default 15.
	PlannedQuestions int

	// DefaultDurationMinutes is used when a start request carries none.
	// Default 45.
	DefaultDurationMinutes int

	// Weights are the integrity score deductions.
	Weights proctor.Weights
}

func (c *ControllerConfig) applyDefaults() {
	if c.TechnicalCutoff <= 0 {
		c.TechnicalCutoff = 70
	}
	if c.PlannedQuestions <= 0 {
		c.PlannedQuestions = 15
	}
	if c.DefaultDurationMinutes <= 0 {
		c.DefaultDurationMinutes = 45
	}
	if c.Weights == (proctor.Weights{}) {
		c.Weights = proctor.DefaultWeights()
	}
}

// gazeRuntime is the in-memory per-session proctoring state. It is not
// persisted; a restart simply starts a fresh machine in the attentive state.
type gazeRuntime struct {
	machine     *proctor.GazeMachine
	lastFrameAt time.Time
	lastMultiAt time.Time
}

// Controller drives interview sessions from start to report input.
//
// Mutation of one session is serialised behind a per-session lock. The lock
// is released for the duration of the model calls inside SubmitAnswer, so a
// slow deep evaluation on one session never stalls frames, violations, or
// answers on any other; an inflight marker keeps a second answer to the same
// question out while the first is being scored.
type Controller struct {
	store   SessionStore
	gen     QuestionGenerator
	eval    AnswerEvaluator
	cfg     ControllerConfig
	metrics *observe.Metrics

	// mu guards the per-session maps only; it is never held across I/O.
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	inflight map[string]string
	gaze     map[string]*gazeRuntime

	pregen *lru.Cache[string, Question]

	// now is swappable for tests.
	now func() time.Time
}

// NewController creates a Controller over the given collaborators.
func NewController(store SessionStore, gen QuestionGenerator, eval AnswerEvaluator, cfg ControllerConfig) *Controller {
	cfg.applyDefaults()
	pregen, _ := lru.New[string, Question](pregenCacheSize)
	return &Controller{
		store:    store,
		gen:      gen,
		eval:     eval,
		cfg:      cfg,
		metrics:  observe.DefaultMetrics(),
		locks:    make(map[string]*sync.Mutex),
		inflight: make(map[string]string),
		gaze:     make(map[string]*gazeRuntime),
		pregen:   pregen,
		now:      time.Now,
	}
}

// SetClock replaces the controller's time source. Intended for tests; call
// before the controller handles any session.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// sessionLock returns the mutex serialising the given session, creating it on
// first use.
func (c *Controller) sessionLock(sessionID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.locks[sessionID]
	if l == nil {
		l = &sync.Mutex{}
		c.locks[sessionID] = l
	}
	return l
}

// StartParams describes a session start request.
type StartParams struct {
	// SessionID, when set, makes the start idempotent on the ID: an
	// in-progress session with this ID is resumed instead of recreated.
	SessionID string

	CandidateToken  string
	GroupID         string
	JobRole         string
	JD              string
	DurationMinutes int
}

// Start begins a new session or resumes an in-progress one. A start is
// idempotent on the candidate token: a candidate with a completed session
// fails with [ErrAlreadyCompleted], and one with an in-progress session
// resumes it. Resuming a finished session by ID returns [ErrFinished].
func (c *Controller) Start(ctx context.Context, p StartParams) (*Session, error) {
	if p.JobRole == "" {
		return nil, fmt.Errorf("interview: job role is required")
	}

	if p.SessionID != "" {
		existing, err := c.store.Get(ctx, p.SessionID)
		switch {
		case err == nil:
			if existing.Status == StatusCompleted || existing.Status == StatusTerminated || existing.Status == StatusExpired {
				return nil, fmt.Errorf("%w: %s", ErrFinished, existing.Status)
			}
			slog.Info("resuming session", "session", existing.ID, "round", existing.CurrentRound)
			return existing, nil
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}

	if p.CandidateToken != "" {
		resumed, err := c.resumeByCandidate(ctx, p.CandidateToken)
		if err != nil {
			return nil, err
		}
		if resumed != nil {
			return resumed, nil
		}
	}

	duration := p.DurationMinutes
	if duration <= 0 {
		duration = c.cfg.DefaultDurationMinutes
	}

	profile := c.gen.AnalyzeJD(ctx, p.JobRole, p.JD)
	avoid := c.diversityCorpus(ctx, p.SessionID, p.GroupID, p.CandidateToken)

	now := c.now()
	sess := &Session{
		ID:              p.SessionID,
		CandidateToken:  p.CandidateToken,
		GroupID:         p.GroupID,
		JobRole:         p.JobRole,
		JD:              p.JD,
		JDProfile:       profile,
		Difficulty:      DifficultyMedium,
		Status:          StatusInProgress,
		CurrentRound:    RoundTechnical,
		DurationMinutes: duration,
		StartedAt:       now,
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	q := c.gen.Next(ctx, GenParams{
		SessionID: sess.ID,
		GroupID:   sess.GroupID,
		Role:      p.JobRole,
		JD:        profile,
		Round:     RoundTechnical,
		Number:    1,
		Avoid:     avoid,
		LastScore: -1,
		MeanScore: -1,
	})
	q.AskedAt = now
	sess.Questions = append(sess.Questions, q)

	if err := c.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	c.metrics.ActiveInterviews.Add(ctx, 1)
	slog.Info("session started", "session", sess.ID, "role", p.JobRole, "duration_min", duration)
	return sess, nil
}

// resumeByCandidate applies the candidate-token idempotence rule: a completed
// session blocks a new start, an in-progress one is resumed, and terminated or
// expired sessions do not stand in the way of a fresh attempt. Returns
// (nil, nil) when a new session should be created.
func (c *Controller) resumeByCandidate(ctx context.Context, token string) (*Session, error) {
	history, err := c.store.ListByCandidate(ctx, token)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	for _, h := range history {
		if h.Status == StatusCompleted {
			return nil, ErrAlreadyCompleted
		}
	}
	for _, h := range history {
		if h.Status == StatusInProgress {
			slog.Info("resuming session by candidate token", "session", h.ID, "round", h.CurrentRound)
			return h, nil
		}
	}
	return nil, nil
}

// AnswerSubmission is one candidate answer as submitted.
type AnswerSubmission struct {
	// QuestionID must identify the latest pending question.
	QuestionID string

	// Text is the verbal answer.
	Text string

	// CodeText, when present on a coding question, routes the submission
	// through the code evaluation path.
	CodeText string

	// CodeLanguage names the language of CodeText. Empty defaults to python.
	CodeLanguage string
}

// SubmitResult is the outcome of one answer submission.
type SubmitResult struct {
	Evaluation   Evaluation `json:"evaluation"`
	NextQuestion *Question  `json:"next_question,omitempty"`
	Status       Status     `json:"status"`

	// RoundTransition reports that this submission moved the interview from
	// the technical round to HR.
	RoundTransition bool `json:"round_transition,omitempty"`

	Time TimeStatus `json:"time"`
}

// SubmitAnswer evaluates the answer to the pending question and advances the
// session: next question, round transition, termination, completion, or
// expiry. The submission must name the pending question's ID; anything else
// fails with [ErrQuestionNotFound].
func (c *Controller) SubmitAnswer(ctx context.Context, sessionID string, sub AnswerSubmission) (*SubmitResult, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()

	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	if sess.Status != StatusInProgress {
		lock.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrFinished, sess.Status)
	}
	pending := sess.PendingQuestion()
	if pending == nil {
		lock.Unlock()
		return nil, ErrNoPending
	}
	if sub.QuestionID != pending.ID {
		lock.Unlock()
		return nil, fmt.Errorf("%w: %s is not the pending question", ErrQuestionNotFound, sub.QuestionID)
	}

	c.mu.Lock()
	if _, busy := c.inflight[sessionID]; busy {
		c.mu.Unlock()
		lock.Unlock()
		return nil, fmt.Errorf("%w: an answer for this question is already being evaluated", ErrQuestionNotFound)
	}
	c.inflight[sessionID] = pending.ID
	c.mu.Unlock()

	expired := sess.TimeStatusAt(c.now()).IsExpired
	question := *pending
	answered := len(sess.Answers)

	// Model calls run outside the session lock so frames, violations, and
	// other sessions keep flowing; the inflight marker blocks a duplicate
	// answer to the same question meanwhile.
	lock.Unlock()
	workStart := c.now()
	ev, pregenQ, pregenOK := c.evaluateAndPregen(ctx, sess, question, sub, expired, answered)
	elapsed := c.now().Sub(workStart).Seconds()

	lock.Lock()
	defer lock.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, sessionID)
		c.mu.Unlock()
	}()

	// Re-read: End or expiry may have finished the session while the model
	// calls ran.
	sess, err = c.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusInProgress {
		return nil, fmt.Errorf("%w: %s", ErrFinished, sess.Status)
	}
	pending = sess.PendingQuestion()
	if pending == nil || pending.ID != question.ID {
		return nil, fmt.Errorf("%w: %s is no longer the pending question", ErrQuestionNotFound, question.ID)
	}

	sess.ProcessingSeconds += elapsed
	sess.Answers = append(sess.Answers, Answer{
		QuestionID:   question.ID,
		Text:         sub.Text,
		CodeText:     sub.CodeText,
		CodeLanguage: sub.CodeLanguage,
		Evaluation:   ev,
		AnsweredAt:   c.now(),
	})
	sess.TechnicalScore = sess.RoundScore(RoundTechnical)
	sess.HRScore = sess.RoundScore(RoundHR)

	res := &SubmitResult{Evaluation: ev}

	switch {
	case expired:
		c.finish(ctx, sess, StatusExpired)

	case len(sess.Answers) >= c.cfg.PlannedQuestions:
		c.finish(ctx, sess, StatusCompleted)

	case c.shouldTransition(sess):
		if sess.TechnicalScore < c.cfg.TechnicalCutoff {
			sess.Terminated = ReasonTechnicalCutoff
			c.finish(ctx, sess, StatusTerminated)
			slog.Info("session terminated at cutoff",
				"session", sess.ID, "technical_score", sess.TechnicalScore, "cutoff", c.cfg.TechnicalCutoff)
			break
		}
		sess.CurrentRound = RoundHR
		res.RoundTransition = true
		// The pregenerated question targeted the technical round.
		c.pregen.Remove(sess.ID)
		q := c.nextQuestion(ctx, sess, ev, sub.Text, Question{}, false)
		sess.Questions = append(sess.Questions, q)
		res.NextQuestion = &sess.Questions[len(sess.Questions)-1]
		slog.Info("round transition", "session", sess.ID, "technical_score", sess.TechnicalScore)

	default:
		q := c.nextQuestion(ctx, sess, ev, sub.Text, pregenQ, pregenOK)
		sess.Questions = append(sess.Questions, q)
		res.NextQuestion = &sess.Questions[len(sess.Questions)-1]
	}

	if err := c.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	res.Status = sess.Status
	res.Time = sess.TimeStatusAt(c.now())
	return res, nil
}

// evaluateAndPregen runs the answer evaluation and, unless the session is
// about to end, pregenerates the next question in parallel with the deep
// phase. Coding questions take the code path when code was submitted.
func (c *Controller) evaluateAndPregen(ctx context.Context, sess *Session, pending Question, sub AnswerSubmission, expired bool, answered int) (Evaluation, Question, bool) {
	codePath := pending.IsCoding && sub.CodeText != ""

	var ev Evaluation
	if codePath {
		ev = c.eval.Code(ctx, pending, sub.CodeText, sub.CodeLanguage)
	} else {
		ev = c.eval.Instant(ctx, pending, sub.Text)
	}

	pregenWanted := !expired && answered+1 < c.cfg.PlannedQuestions

	instant := ev
	var pregenQ Question
	var pregenOK bool

	g, gctx := errgroup.WithContext(ctx)
	if !codePath {
		g.Go(func() error {
			ev = c.eval.Deepen(gctx, pending, sub.Text, instant)
			return nil
		})
	}
	if pregenWanted {
		g.Go(func() error {
			pregenQ = c.gen.Next(gctx, c.genParams(sess, sub.Text, instant.Overall))
			pregenOK = true
			return nil
		})
	}
	_ = g.Wait()

	return ev, pregenQ, pregenOK
}

// nextQuestion picks the question that follows the just-answered one: a code
// follow-up when the evaluation suggested one, the question pregenerated this
// turn or banked from an earlier one, or a fresh generation.
func (c *Controller) nextQuestion(ctx context.Context, sess *Session, ev Evaluation, answer string, pregenQ Question, pregenOK bool) Question {
	var q Question
	switch {
	case ev.Phase == PhaseCode && len(ev.FollowUps) > 0:
		// Verbal follow-up about the submitted code. A question pregenerated
		// this turn is banked for the turn after the follow-up.
		if pregenOK {
			c.pregen.Add(sess.ID, pregenQ)
		}
		q = Question{
			ID:         uuid.NewString(),
			Text:       ev.FollowUps[0],
			Difficulty: sess.Difficulty,
			Round:      sess.CurrentRound,
			Type:       TypeConceptual,
			Source:     SourceSmart,
		}
	case pregenOK && pregenQ.Round == sess.CurrentRound:
		q = pregenQ
	default:
		if banked, ok := c.pregen.Get(sess.ID); ok && banked.Round == sess.CurrentRound {
			c.pregen.Remove(sess.ID)
			q = banked
			break
		}
		q = c.gen.Next(ctx, c.genParams(sess, answer, ev.Overall))
	}

	q.AskedAt = c.now()
	sess.Difficulty = q.Difficulty
	return q
}

// genParams assembles the generator input after the given answer scored
// lastOverall. The running mean folds the new score in before it is appended
// to the session.
func (c *Controller) genParams(sess *Session, lastAnswer string, lastOverall float64) GenParams {
	var sum float64
	for _, a := range sess.Answers {
		sum += a.Evaluation.Overall
	}
	mean := (sum + lastOverall) / float64(len(sess.Answers)+1)

	return GenParams{
		SessionID:  sess.ID,
		GroupID:    sess.GroupID,
		Role:       sess.JobRole,
		JD:         sess.JDProfile,
		Round:      sess.CurrentRound,
		Number:     len(sess.Questions) + 1,
		Asked:      sess.AskedTexts(),
		LastAnswer: lastAnswer,
		LastScore:  lastOverall,
		MeanScore:  mean,
	}
}

// shouldTransition reports whether the technical round should hand over: the
// time split is reached and enough technical answers exist to judge.
func (c *Controller) shouldTransition(sess *Session) bool {
	if sess.CurrentRound != RoundTechnical {
		return false
	}
	if len(sess.RoundAnswers(RoundTechnical)) < minTechnicalAnswers {
		return false
	}
	duration := time.Duration(sess.DurationMinutes) * time.Minute
	return sess.ActiveElapsed(c.now()) >= time.Duration(roundSplit*float64(duration))
}

// End completes the session explicitly. Ending an already finished session
// returns the session unchanged.
func (c *Controller) End(ctx context.Context, sessionID string) (*Session, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusInProgress && sess.Status != StatusPending {
		return sess, nil
	}

	sess.TechnicalScore = sess.RoundScore(RoundTechnical)
	sess.HRScore = sess.RoundScore(RoundHR)
	c.finish(ctx, sess, StatusCompleted)

	if err := c.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	slog.Info("session ended", "session", sess.ID,
		"technical_score", sess.TechnicalScore, "hr_score", sess.HRScore)
	return sess, nil
}

// Get returns the session document.
func (c *Controller) Get(ctx context.Context, sessionID string) (*Session, error) {
	return c.store.Get(ctx, sessionID)
}

// TimeStatus returns the session clock view at the current time.
func (c *Controller) TimeStatus(ctx context.Context, sessionID string) (TimeStatus, error) {
	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return TimeStatus{}, err
	}
	return sess.TimeStatusAt(c.now()), nil
}

// ObserveFrame feeds one camera frame into the session's gaze machine,
// records resulting violations, and accumulates away time. The frame's
// CapturedAt is honoured when set, so buffered frames land at the right time.
// A silence gap beyond the staleness interval first injects a synthetic away
// frame, so a covered camera still degrades into a warning.
func (c *Controller) ObserveFrame(ctx context.Context, sessionID string, frame vision.Frame) (proctor.FrameReport, error) {
	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return proctor.FrameReport{}, err
	}
	if sess.Status != StatusInProgress {
		return proctor.FrameReport{}, fmt.Errorf("%w: %s", ErrFinished, sess.Status)
	}

	c.mu.Lock()
	rt := c.gaze[sessionID]
	if rt == nil {
		rt = &gazeRuntime{machine: proctor.NewGazeMachine()}
		c.gaze[sessionID] = rt
	}
	c.mu.Unlock()

	now := frame.CapturedAt
	if now.IsZero() {
		now = c.now()
	}

	if staleRep, injected := rt.machine.CheckStale(now); injected {
		c.applyGazeReport(ctx, sess, rt, staleRep, now)
	}
	report := rt.machine.Observe(frame.GazeScore, now)
	c.applyGazeReport(ctx, sess, rt, report, now)

	if frame.FaceCount > 1 && now.Sub(rt.lastMultiAt) >= multiPersonDebounce {
		rt.lastMultiAt = now
		sess.Proctoring.Record(proctor.Violation{
			Type:       proctor.ViolationMultiPerson,
			Detail:     fmt.Sprintf("%d faces in frame", frame.FaceCount),
			OccurredAt: now,
		})
		c.metrics.RecordViolation(ctx, string(proctor.ViolationMultiPerson))
	}

	if err := c.store.Update(ctx, sess); err != nil {
		return proctor.FrameReport{}, err
	}
	return report, nil
}

// applyGazeReport folds one gaze report into the session's proctoring
// aggregate: a fresh warning becomes a violation, non-attentive time accrues
// as away time.
func (c *Controller) applyGazeReport(ctx context.Context, sess *Session, rt *gazeRuntime, report proctor.FrameReport, now time.Time) {
	if report.StateChanged && report.State == proctor.WarningActive {
		sess.Proctoring.Record(proctor.Violation{
			Type:       proctor.ViolationGazeAway,
			Detail:     "sustained gaze deviation",
			OccurredAt: now,
		})
		c.metrics.RecordViolation(ctx, string(proctor.ViolationGazeAway))
	}
	if report.State != proctor.Attentive && !rt.lastFrameAt.IsZero() {
		sess.Proctoring.AddAwayTime(now.Sub(rt.lastFrameAt))
	}
	rt.lastFrameAt = now
}

// StreamFrames drains a camera extractor into the session's gaze machine
// until the stream ends, ctx is cancelled, or the session finishes. Intended
// to run in its own goroutine per attached camera.
func (c *Controller) StreamFrames(ctx context.Context, sessionID string, ex vision.Extractor) error {
	for {
		frame, err := ex.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("interview: read camera frame: %w", err)
		}
		if _, err := c.ObserveFrame(ctx, sessionID, frame); err != nil {
			if errors.Is(err, ErrFinished) {
				return nil
			}
			return err
		}
	}
}

// RecordViolation logs a client-reported violation (tab switch and similar)
// and returns the updated integrity score. A positive durationSec adds to the
// session's accumulated away time.
func (c *Controller) RecordViolation(ctx context.Context, sessionID string, vType proctor.ViolationType, detail string, durationSec float64) (float64, error) {
	if !vType.IsValid() {
		return 0, fmt.Errorf("interview: unknown violation type %q", vType)
	}

	lock := c.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	sess.Proctoring.Record(proctor.Violation{
		Type:       vType,
		Detail:     detail,
		OccurredAt: c.now(),
	})
	if durationSec > 0 {
		sess.Proctoring.AddAwayTime(time.Duration(durationSec * float64(time.Second)))
	}
	c.metrics.RecordViolation(ctx, string(vType))

	if err := c.store.Update(ctx, sess); err != nil {
		return 0, err
	}
	return sess.Proctoring.Integrity(c.cfg.Weights), nil
}

// Integrity returns the session's current integrity score.
func (c *Controller) Integrity(ctx context.Context, sessionID string) (float64, error) {
	sess, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return sess.Proctoring.Integrity(c.cfg.Weights), nil
}

// finish stamps the terminal status and releases runtime state. Callers hold
// the session lock.
func (c *Controller) finish(ctx context.Context, sess *Session, status Status) {
	sess.Status = status
	sess.CompletedAt = c.now()
	c.pregen.Remove(sess.ID)
	c.mu.Lock()
	delete(c.gaze, sess.ID)
	c.mu.Unlock()
	c.metrics.ActiveInterviews.Add(ctx, -1)
}

// diversityCorpus collects question texts the generator must steer away
// from: everything asked to other candidates in the same group, plus the
// candidate's own recent completed sessions. Lookup failures degrade to an
// empty corpus.
func (c *Controller) diversityCorpus(ctx context.Context, selfID, groupID, candidateToken string) []string {
	var out []string

	if groupID != "" {
		peers, err := c.store.ListByGroup(ctx, groupID)
		if err != nil {
			slog.Warn("group corpus lookup failed", "group", groupID, "err", err)
		}
		for _, p := range peers {
			if p.ID == selfID {
				continue
			}
			out = append(out, p.AskedTexts()...)
		}
	}

	if candidateToken != "" {
		history, err := c.store.ListByCandidate(ctx, candidateToken)
		if err != nil {
			slog.Warn("candidate history lookup failed", "err", err)
		}
		completed := 0
		for _, h := range history {
			if h.ID == selfID || h.Status != StatusCompleted {
				continue
			}
			out = append(out, h.AskedTexts()...)
			completed++
			if completed == historyDepth {
				break
			}
		}
	}
	return out
}
