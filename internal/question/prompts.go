package question

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/hireloop/hireloop/internal/interview"
)

// typeInstructions shape the smart prompt per planned question type.
var typeInstructions = map[interview.QuestionType]string{
	interview.TypeConceptual: "Ask a conceptual question that tests understanding of a core concept for this role. Focus on the why, not definitions.",
	interview.TypeScenario:   "Describe a short realistic work scenario and ask how the candidate would handle it. Keep the scenario to two sentences.",
	interview.TypeTradeoff:   "Ask the candidate to compare two approaches relevant to this role and argue when each is the better choice.",
	interview.TypeDesign:     "Ask a small open-ended design question the candidate can reason through verbally in a few minutes.",
	interview.TypeDebugging:  "Present a plausible bug or failure symptom and ask how the candidate would diagnose it.",
	interview.TypeBehavioral: "Ask a behavioural question about a past experience. Invite a concrete situation, the candidate's actions, and the outcome.",
}

// angleHints nudge the fallback prompt away from repeating earlier themes.
// A random subset keeps successive fallback calls from converging.
var angleHints = []string{
	"performance and scalability",
	"failure handling and resilience",
	"testing and verification strategy",
	"security implications",
	"maintainability and refactoring",
	"data modelling and consistency",
	"collaboration and code review",
	"monitoring and debugging in production",
	"API and interface design",
	"resource and cost trade-offs",
}

// smartPrompt builds the typed generation prompt.
func smartPrompt(p Params, qType interview.QuestionType, difficulty interview.Difficulty) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an experienced interviewer for a %s position.\n", p.Role)
	fmt.Fprintf(&b, "Generate ONE %s interview question.\n\n", difficulty)
	b.WriteString(typeInstructions[qType])
	b.WriteString("\n")

	if p.JD != nil {
		if len(p.JD.RequiredSkills) > 0 {
			fmt.Fprintf(&b, "\nRequired skills: %s.", strings.Join(p.JD.RequiredSkills, ", "))
		}
		if len(p.JD.KeyTechnologies) > 0 {
			fmt.Fprintf(&b, "\nKey technologies: %s.", strings.Join(p.JD.KeyTechnologies, ", "))
		}
		if p.JD.ExperienceLevel != "" {
			fmt.Fprintf(&b, "\nTarget experience level: %s.", p.JD.ExperienceLevel)
		}
	}

	writeAskedBlock(&b, p.Asked, 10)
	writeFollowUpHint(&b, p)

	b.WriteString("\n\nRate your own question's quality from 0 to 100 (specificity, relevance, depth).")
	b.WriteString("\nRespond with ONLY a JSON object:\n")
	b.WriteString(`{"question": "...", "ideal_answer": "2-3 sentence model answer", "keywords": ["k1", "k2", "k3", "k4", "k5"], "is_coding": false, "quality": 85}`)
	return b.String()
}

// fallbackPrompt builds the monolithic single-shot prompt used when the smart
// path misfires. It leans on randomised angle hints for variety instead of the
// type progression.
func fallbackPrompt(p Params, difficulty interview.Difficulty) string {
	var b strings.Builder

	roundLabel := "technical"
	if p.Round == interview.RoundHR {
		roundLabel = "HR behavioural"
	}
	fmt.Fprintf(&b, "You are interviewing a candidate for a %s role.\n", p.Role)
	fmt.Fprintf(&b, "Generate the next %s interview question at %s difficulty.\n", roundLabel, difficulty)

	if p.JD != nil && len(p.JD.InterviewFocusAreas) > 0 {
		fmt.Fprintf(&b, "Focus areas: %s.\n", strings.Join(p.JD.InterviewFocusAreas, ", "))
	}

	writeAskedBlock(&b, p.Asked, 30)
	if len(p.Avoid) > 0 {
		b.WriteString("\nAlso avoid anything close to these questions asked to other candidates:\n")
		for _, q := range tail(p.Avoid, 10) {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	writeFollowUpHint(&b, p)

	hints := append([]string(nil), angleHints...)
	rand.Shuffle(len(hints), func(i, j int) { hints[i], hints[j] = hints[j], hints[i] })
	fmt.Fprintf(&b, "\nConsider angles such as: %s.\n", strings.Join(hints[:4], "; "))

	b.WriteString("\nRespond with ONLY a JSON object:\n")
	b.WriteString(`{"question": "...", "ideal_answer": "2-3 sentence model answer", "keywords": ["k1", "k2", "k3", "k4", "k5"], "is_coding": false}`)
	return b.String()
}

// writeAskedBlock appends the most recent asked questions to avoid repeats.
func writeAskedBlock(b *strings.Builder, asked []string, limit int) {
	recent := tail(asked, limit)
	if len(recent) == 0 {
		return
	}
	b.WriteString("\n\nDo NOT repeat or rephrase any of these already-asked questions:\n")
	for _, q := range recent {
		fmt.Fprintf(b, "- %s\n", q)
	}
}

// writeFollowUpHint steers the next question off the last answer when the
// score makes the right direction obvious.
func writeFollowUpHint(b *strings.Builder, p Params) {
	if p.LastAnswer == "" || p.LastScore < 0 {
		return
	}
	excerpt := p.LastAnswer
	if len(excerpt) > 300 {
		excerpt = excerpt[:300]
	}
	fmt.Fprintf(b, "\nThe candidate's last answer (scored %.0f/100): %q\n", p.LastScore, excerpt)
	switch {
	case p.LastScore < 50:
		b.WriteString("The candidate struggled. Ask a simpler question on a different topic to rebuild confidence.")
	case p.LastScore >= 80:
		b.WriteString("The candidate answered well. Go deeper on the same theme or raise the stakes.")
	default:
		b.WriteString("Move to a naturally related topic.")
	}
}

// tail returns the last n elements of s.
func tail(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
