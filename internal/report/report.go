// Package report assembles the final hiring report for a finished session.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/proctor"
)

// Pass thresholds for the two rounds.
const (
	technicalPassScore = 70
	hrPassScore        = 60
)

// dimensionStrong is the mean above which a dimension counts as a strength.
const dimensionStrong = 70

// Recommendation is the hiring verdict.
type Recommendation string

const (
	Selected    Recommendation = "selected"
	Maybe       Recommendation = "maybe"
	NotSelected Recommendation = "not_selected"
)

// QuestionResult is the per-question view in the report.
type QuestionResult struct {
	Number   int                 `json:"number"`
	Question string              `json:"question"`
	Round    interview.Round     `json:"round"`
	Overall  float64             `json:"overall"`
	Strength interview.Strength  `json:"strength"`
	Feedback string              `json:"feedback"`
	Phase    interview.EvalPhase `json:"phase"`
}

// Report is the final hiring report.
type Report struct {
	SessionID      string `json:"session_id"`
	CandidateToken string `json:"candidate_token,omitempty"`
	JobRole        string `json:"job_role"`

	Status            interview.Status            `json:"status"`
	TerminationReason interview.TerminationReason `json:"termination_reason,omitempty"`

	TechnicalScore  float64 `json:"technical_score"`
	HRScore         float64 `json:"hr_score"`
	TechnicalPassed bool    `json:"technical_passed"`
	HRPassed        bool    `json:"hr_passed"`

	Recommendation Recommendation `json:"recommendation"`
	Note           string         `json:"note"`

	// Dimensions holds the mean of each evaluation dimension across answers.
	Dimensions map[string]float64 `json:"dimensions"`

	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`

	// MissedKeywords are the most frequently missed expected keywords.
	MissedKeywords []string `json:"missed_keywords,omitempty"`

	CommunicationSummary string `json:"communication_summary"`

	Integrity  float64             `json:"integrity"`
	Violations []proctor.Violation `json:"violations,omitempty"`

	Questions []QuestionResult `json:"questions"`

	AnsweredCount int       `json:"answered_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Build assembles the report for a session using the given integrity weights.
func Build(sess *interview.Session, weights proctor.Weights) *Report {
	r := &Report{
		SessionID:         sess.ID,
		CandidateToken:    sess.CandidateToken,
		JobRole:           sess.JobRole,
		Status:            sess.Status,
		TerminationReason: sess.Terminated,
		TechnicalScore:    sess.RoundScore(interview.RoundTechnical),
		HRScore:           sess.RoundScore(interview.RoundHR),
		Dimensions:        dimensionMeans(sess.Answers),
		Integrity:         sess.Proctoring.Integrity(weights),
		Violations:        sess.Proctoring.DisplayLog(),
		AnsweredCount:     len(sess.Answers),
		GeneratedAt:       time.Now(),
	}

	r.TechnicalPassed = r.TechnicalScore >= technicalPassScore
	r.HRPassed = r.HRScore >= hrPassScore
	r.Recommendation, r.Note = recommend(r.TechnicalScore, r.HRScore)

	r.Strengths, r.Weaknesses = splitDimensions(r.Dimensions)
	r.MissedKeywords = topMissedKeywords(sess.Answers, 5)
	r.Suggestions = suggestions(sess, r.MissedKeywords)
	r.CommunicationSummary = communicationSummary(r.Dimensions["communication"])
	r.Questions = questionResults(sess)

	return r
}

// recommend maps round scores to the hiring verdict.
func recommend(tech, hr float64) (Recommendation, string) {
	switch {
	case tech >= technicalPassScore && hr >= hrPassScore:
		return Selected, "Cleared both rounds."
	case tech >= technicalPassScore:
		return Maybe, "Strong technically; HR round needs improvement."
	case tech >= 50:
		return NotSelected, "Technical performance below the selection threshold."
	default:
		return NotSelected, "Technical fundamentals need significant work."
	}
}

// dimensionMeans averages each evaluation dimension across all answers.
func dimensionMeans(answers []interview.Answer) map[string]float64 {
	if len(answers) == 0 {
		return map[string]float64{}
	}
	var sim, kw, content, comm, depth float64
	for _, a := range answers {
		sim += a.Evaluation.Similarity
		kw += a.Evaluation.KeywordScore
		content += a.Evaluation.Content
		comm += a.Evaluation.Communication
		depth += a.Evaluation.Depth
	}
	n := float64(len(answers))
	return map[string]float64{
		"similarity":       interview.Round1(sim / n),
		"keyword_coverage": interview.Round1(kw / n),
		"content":          interview.Round1(content / n),
		"communication":    interview.Round1(comm / n),
		"depth":            interview.Round1(depth / n),
	}
}

// dimensionLabels maps dimension keys to report wording. Ordered for stable
// output.
var dimensionLabels = []struct {
	key   string
	label string
}{
	{"content", "content accuracy"},
	{"depth", "technical depth"},
	{"communication", "communication"},
	{"keyword_coverage", "coverage of expected topics"},
}

// splitDimensions buckets dimensions into strengths and weaknesses.
func splitDimensions(dims map[string]float64) (strengths, weaknesses []string) {
	for _, d := range dimensionLabels {
		mean, ok := dims[d.key]
		if !ok {
			continue
		}
		if mean >= dimensionStrong {
			strengths = append(strengths, fmt.Sprintf("Strong %s (%.1f/100)", d.label, mean))
		} else {
			weaknesses = append(weaknesses, fmt.Sprintf("Needs work on %s (%.1f/100)", d.label, mean))
		}
	}
	return strengths, weaknesses
}

// topMissedKeywords returns the most frequently missed keywords, ties broken
// alphabetically.
func topMissedKeywords(answers []interview.Answer, limit int) []string {
	counts := make(map[string]int)
	for _, a := range answers {
		for _, k := range a.Evaluation.MissedKeywords {
			counts[k]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// suggestions builds the study list: the worst answered questions plus the
// missed keyword themes.
func suggestions(sess *interview.Session, missed []string) []string {
	questionByID := make(map[string]interview.Question, len(sess.Questions))
	for _, q := range sess.Questions {
		questionByID[q.ID] = q
	}

	sorted := append([]interview.Answer(nil), sess.Answers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Evaluation.Overall < sorted[j].Evaluation.Overall
	})

	var out []string
	for i, a := range sorted {
		if i == 3 {
			break
		}
		q, ok := questionByID[a.QuestionID]
		if !ok || a.Evaluation.Overall >= 75 {
			continue
		}
		out = append(out, fmt.Sprintf("Revisit: %s (scored %.1f)", q.Text, a.Evaluation.Overall))
	}
	if len(missed) > 0 {
		out = append(out, fmt.Sprintf("Brush up on: %s", strings.Join(missed, ", ")))
	}
	return out
}

// communicationSummary bands the communication mean into report wording.
func communicationSummary(mean float64) string {
	switch {
	case mean >= 80:
		return "Excellent communicator: clear, structured, and thorough answers."
	case mean >= 60:
		return "Good communication with room to add structure and examples."
	case mean >= 40:
		return "Communication is understandable but often brief or unstructured."
	default:
		return "Communication needs significant improvement; answers were minimal."
	}
}

// questionResults builds the per-question breakdown in asked order.
func questionResults(sess *interview.Session) []QuestionResult {
	questionByID := make(map[string]interview.Question, len(sess.Questions))
	numberByID := make(map[string]int, len(sess.Questions))
	for i, q := range sess.Questions {
		questionByID[q.ID] = q
		numberByID[q.ID] = i + 1
	}

	out := make([]QuestionResult, 0, len(sess.Answers))
	for _, a := range sess.Answers {
		q := questionByID[a.QuestionID]
		out = append(out, QuestionResult{
			Number:   numberByID[a.QuestionID],
			Question: q.Text,
			Round:    q.Round,
			Overall:  a.Evaluation.Overall,
			Strength: a.Evaluation.Strength,
			Feedback: a.Evaluation.Feedback,
			Phase:    a.Evaluation.Phase,
		})
	}
	return out
}
