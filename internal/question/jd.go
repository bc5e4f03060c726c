package question

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hireloop/hireloop/internal/interview"
	"github.com/hireloop/hireloop/internal/router"
)

// AnalyzeJD digests a raw job description into a [interview.JDProfile].
// Failures degrade to a deterministic default derived from the role so the
// interview can always start.
func (g *Generator) AnalyzeJD(ctx context.Context, role, jd string) *interview.JDProfile {
	if strings.TrimSpace(jd) == "" {
		return defaultProfile(role)
	}

	prompt := jdPrompt(role, jd)
	raw, err := g.llm.Generate(ctx, prompt, router.Opts{Fast: true, Temperature: 0.2})
	if err != nil {
		slog.Warn("jd analysis failed, using default profile", "role", role, "err", err)
		return defaultProfile(role)
	}

	var out interview.JDProfile
	if err := decodeJSON(raw, &out); err != nil {
		slog.Warn("jd analysis returned malformed JSON, using default profile", "role", role, "err", err)
		return defaultProfile(role)
	}
	if len(out.RequiredSkills) == 0 && len(out.KeyTechnologies) == 0 {
		return defaultProfile(role)
	}
	if out.ExperienceLevel == "" {
		out.ExperienceLevel = "mid"
	}
	return &out
}

// jdPrompt builds the extraction prompt.
func jdPrompt(role, jd string) string {
	if len(jd) > 4000 {
		jd = jd[:4000]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Extract a structured profile from this job description for a %s role.\n\n", role)
	b.WriteString(jd)
	b.WriteString("\n\nRespond with ONLY a JSON object:\n")
	b.WriteString(`{"required_skills": ["..."], "experience_level": "junior|mid|senior", "key_technologies": ["..."], "interview_focus_areas": ["..."]}`)
	return b.String()
}

// defaultProfile is the deterministic stand-in when analysis is unavailable.
func defaultProfile(role string) *interview.JDProfile {
	return &interview.JDProfile{
		RequiredSkills:      []string{"problem solving", "system fundamentals", "communication"},
		ExperienceLevel:     "mid",
		KeyTechnologies:     []string{role},
		InterviewFocusAreas: []string{"core concepts", "practical experience", "reasoning under constraints"},
	}
}
