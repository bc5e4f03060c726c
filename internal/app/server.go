package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"

	"github.com/hireloop/hireloop/internal/config"
	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/observe"
	"github.com/hireloop/hireloop/internal/proctor"
	"github.com/hireloop/hireloop/internal/report"
	"github.com/hireloop/hireloop/pkg/provider/vision"
)

// routes builds the HTTP API.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/interviews", a.handleStart)
	mux.HandleFunc("GET /api/interviews/{id}", a.handleGet)
	mux.HandleFunc("POST /api/interviews/{id}/answers", a.handleAnswer)
	mux.HandleFunc("GET /api/interviews/{id}/time", a.handleTime)
	mux.HandleFunc("POST /api/interviews/{id}/frames", a.handleFrame)
	mux.HandleFunc("POST /api/interviews/{id}/violations", a.handleViolation)
	mux.HandleFunc("POST /api/interviews/{id}/end", a.handleEnd)
	mux.HandleFunc("GET /api/interviews/{id}/report", a.handleReport)
	mux.HandleFunc("GET /api/models", a.handleModels)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	return withMetrics(mux)
}

// withMetrics records request latency per method and route pattern.
func withMetrics(next http.Handler) http.Handler {
	metrics := observe.DefaultMetrics()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.HTTPRequestDuration.Record(r.Context(), time.Since(start).Seconds(),
			metric.WithAttributes(
				observe.Attr("method", r.Method),
				observe.Attr("path", pattern),
			),
		)
	})
}

type startRequest struct {
	SessionID       string `json:"session_id,omitempty"`
	CandidateToken  string `json:"candidate_token"`
	GroupID         string `json:"group_id,omitempty"`
	JobRole         string `json:"job_role"`
	JD              string `json:"jd,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type startResponse struct {
	Session  *interview.Session   `json:"session"`
	Question *interview.Question  `json:"question,omitempty"`
	Time     interview.TimeStatus `json:"time"`
}

func (a *App) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.JobRole == "" {
		writeError(w, http.StatusBadRequest, "job_role is required")
		return
	}

	sess, err := a.controller.Start(r.Context(), interview.StartParams{
		SessionID:       req.SessionID,
		CandidateToken:  req.CandidateToken,
		GroupID:         req.GroupID,
		JobRole:         req.JobRole,
		JD:              req.JD,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, startResponse{
		Session:  sess,
		Question: sess.PendingQuestion(),
		Time:     sess.TimeStatusAt(time.Now()),
	})
}

func (a *App) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, err := a.controller.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type answerRequest struct {
	QuestionID   string `json:"question_id"`
	Answer       string `json:"answer"`
	CodeText     string `json:"code_text,omitempty"`
	CodeLanguage string `json:"code_language,omitempty"`
}

func (a *App) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "question_id is required")
		return
	}

	res, err := a.controller.SubmitAnswer(r.Context(), r.PathValue("id"), interview.AnswerSubmission{
		QuestionID:   req.QuestionID,
		Text:         req.Answer,
		CodeText:     req.CodeText,
		CodeLanguage: req.CodeLanguage,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleTime(w http.ResponseWriter, r *http.Request) {
	ts, err := a.controller.TimeStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

type frameRequest struct {
	GazeScore float64 `json:"gaze_score"`
	FaceCount int     `json:"face_count"`
}

func (a *App) handleFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rep, err := a.controller.ObserveFrame(r.Context(), r.PathValue("id"), vision.Frame{
		GazeScore: req.GazeScore,
		FaceCount: req.FaceCount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type violationRequest struct {
	Type        proctor.ViolationType `json:"type"`
	Detail      string                `json:"detail,omitempty"`
	DurationSec float64               `json:"duration_sec,omitempty"`
}

type violationResponse struct {
	Integrity float64 `json:"integrity"`
}

func (a *App) handleViolation(w http.ResponseWriter, r *http.Request) {
	var req violationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Type.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown violation type")
		return
	}

	integrity, err := a.controller.RecordViolation(r.Context(), r.PathValue("id"), req.Type, req.Detail, req.DurationSec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, violationResponse{Integrity: integrity})
}

func (a *App) handleEnd(w http.ResponseWriter, r *http.Request) {
	sess, err := a.controller.End(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, err := a.controller.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Build(sess, proctorWeights(a.cfg.Proctor)))
}

func (a *App) handleModels(w http.ResponseWriter, r *http.Request) {
	if a.modelChain == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, a.modelChain.Snapshot())
}

// writeDomainError maps controller errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interview.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, interview.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, interview.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, interview.ErrFinished):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, interview.ErrNoPending):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// proctorWeights converts the config block into integrity weights, keeping
// the defaults for unset values.
func proctorWeights(cfg config.ProctorConfig) proctor.Weights {
	w := proctor.DefaultWeights()
	if cfg.GazePenalty > 0 {
		w.Gaze = cfg.GazePenalty
	}
	if cfg.MultiPersonPenalty > 0 {
		w.MultiPerson = cfg.MultiPersonPenalty
	}
	if cfg.TabSwitchPenalty > 0 {
		w.TabSwitch = cfg.TabSwitchPenalty
	}
	if cfg.AwaySecondPenalty > 0 {
		w.AwaySecond = cfg.AwaySecondPenalty
	}
	return w
}
