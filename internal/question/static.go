package question

import (
	"strings"

	"github.com/hireloop/hireloop/internal/interview"
)

// staticQuestion is one curated fallback entry.
type staticQuestion struct {
	Text        string
	IdealAnswer string
	Keywords    []string
	Type        interview.QuestionType
}

// staticQuestions returns the curated list for role and round. Unknown roles
// get the generic software list; the HR list is role-independent.
func staticQuestions(role string, round interview.Round) []staticQuestion {
	if round == interview.RoundHR {
		return staticHR
	}
	key := strings.ToLower(role)
	switch {
	case strings.Contains(key, "frontend"), strings.Contains(key, "front-end"), strings.Contains(key, "react"):
		return staticFrontend
	case strings.Contains(key, "data"), strings.Contains(key, "ml"), strings.Contains(key, "machine learning"):
		return staticData
	case strings.Contains(key, "devops"), strings.Contains(key, "sre"), strings.Contains(key, "platform"):
		return staticDevops
	default:
		return staticBackend
	}
}

var staticBackend = []staticQuestion{
	{
		Text:        "Walk me through what happens when a client request hits an API you own, from the load balancer to the database and back.",
		IdealAnswer: "A strong answer traces routing, authentication, handler logic, data access, and response serialisation, and mentions where failures or latency typically appear.",
		Keywords:    []string{"load balancer", "authentication", "handler", "database", "latency"},
		Type:        interview.TypeConceptual,
	},
	{
		Text:        "Your service's p99 latency doubled overnight with no deploy. How do you investigate?",
		IdealAnswer: "Check dashboards and recent infrastructure changes, compare traffic shape, inspect slow query logs and GC or connection pool metrics, then bisect by dependency.",
		Keywords:    []string{"p99", "metrics", "slow query", "traffic", "dependency"},
		Type:        interview.TypeDebugging,
	},
	{
		Text:        "When would you choose a message queue over a synchronous API call between two services?",
		IdealAnswer: "Queues decouple availability and absorb bursts at the cost of latency and ordering complexity; synchronous calls fit request/response flows needing immediate results.",
		Keywords:    []string{"message queue", "decoupling", "latency", "ordering", "backpressure"},
		Type:        interview.TypeTradeoff,
	},
	{
		Text:        "Design a rate limiter for a public API. What state do you keep and where?",
		IdealAnswer: "Discuss token bucket or sliding window, per-key counters in a shared store like Redis, local caching for hot keys, and fail-open versus fail-closed behaviour.",
		Keywords:    []string{"token bucket", "sliding window", "redis", "per-key", "fail-open"},
		Type:        interview.TypeDesign,
	},
	{
		Text:        "How do you make a database schema change on a table serving live traffic without downtime?",
		IdealAnswer: "Expand-and-contract: add the new column or table, dual-write, backfill, switch reads, then remove the old path, with each step deployed and verified separately.",
		Keywords:    []string{"migration", "dual-write", "backfill", "expand-contract", "downtime"},
		Type:        interview.TypeScenario,
	},
	{
		Text:        "What does idempotency mean for an API endpoint and how do you implement it?",
		IdealAnswer: "Repeating the same request yields the same effect; implemented with idempotency keys stored alongside the result, or naturally idempotent operations like PUT.",
		Keywords:    []string{"idempotency", "idempotency key", "retry", "PUT", "exactly-once"},
		Type:        interview.TypeConceptual,
	},
}

var staticFrontend = []staticQuestion{
	{
		Text:        "What causes unnecessary re-renders in a component tree and how do you find and fix them?",
		IdealAnswer: "New object or function identities in props, broad context updates, and missing memoisation; found with profiler tooling and fixed with memo, stable callbacks, and state colocation.",
		Keywords:    []string{"re-render", "memo", "props", "profiler", "state"},
		Type:        interview.TypeConceptual,
	},
	{
		Text:        "A page's largest contentful paint is 6 seconds. Walk me through how you would get it under 2.",
		IdealAnswer: "Measure with Lighthouse, then attack the critical path: code splitting, image sizing and lazy loading, preloading key assets, and trimming render-blocking scripts.",
		Keywords:    []string{"LCP", "code splitting", "lazy loading", "critical path", "lighthouse"},
		Type:        interview.TypeDebugging,
	},
	{
		Text:        "When is server-side rendering worth its operational cost compared to a static or client-rendered approach?",
		IdealAnswer: "SSR pays off for SEO-sensitive, content-heavy, or personalised first paints; static generation wins for stable content and client rendering for highly interactive apps.",
		Keywords:    []string{"SSR", "SEO", "static generation", "hydration", "first paint"},
		Type:        interview.TypeTradeoff,
	},
	{
		Text:        "Design the state management for a multi-step checkout form that must survive a page refresh.",
		IdealAnswer: "Keep a single serialisable form state, persist it per step to storage or the server, validate per step, and restore on mount with version checks.",
		Keywords:    []string{"state management", "persistence", "validation", "checkout", "restore"},
		Type:        interview.TypeDesign,
	},
	{
		Text:        "How do you make a complex widget accessible to keyboard and screen-reader users?",
		IdealAnswer: "Use semantic elements and ARIA roles, manage focus order and visible focus, support the expected key bindings, and verify with a screen reader.",
		Keywords:    []string{"accessibility", "ARIA", "focus", "keyboard", "screen reader"},
		Type:        interview.TypeScenario,
	},
}

var staticData = []staticQuestion{
	{
		Text:        "How do you detect and handle data drift in a model running in production?",
		IdealAnswer: "Monitor input feature distributions and prediction stats against training baselines, alert on divergence, and retrain or recalibrate on fresh labelled data.",
		Keywords:    []string{"data drift", "distribution", "monitoring", "retraining", "baseline"},
		Type:        interview.TypeConceptual,
	},
	{
		Text:        "Your model's offline metrics improved but the online A/B test shows no lift. What do you investigate?",
		IdealAnswer: "Check for training/serving skew, leakage in offline evaluation, mismatched metrics, underpowered test, and differences in the serving population.",
		Keywords:    []string{"A/B test", "training-serving skew", "leakage", "metric", "population"},
		Type:        interview.TypeDebugging,
	},
	{
		Text:        "When would you prefer a gradient-boosted tree model over a neural network for tabular data?",
		IdealAnswer: "Trees usually win on small-to-medium tabular data with less tuning and better interpretability; networks pay off with huge data, embeddings, or multimodal inputs.",
		Keywords:    []string{"gradient boosting", "neural network", "tabular", "interpretability", "tuning"},
		Type:        interview.TypeTradeoff,
	},
	{
		Text:        "Design a feature pipeline that serves the same features for training and low-latency inference.",
		IdealAnswer: "A feature store with batch and streaming materialisation, point-in-time correct training joins, and an online store for serving, sharing one transformation definition.",
		Keywords:    []string{"feature store", "point-in-time", "streaming", "online store", "pipeline"},
		Type:        interview.TypeDesign,
	},
}

var staticDevops = []staticQuestion{
	{
		Text:        "A deployment passed CI but crashes in production with config errors. How do you prevent this class of failure?",
		IdealAnswer: "Validate config at startup and in CI against the production schema, keep environments in parity, and use canary rollouts so bad config stops at one instance.",
		Keywords:    []string{"config validation", "canary", "environment parity", "CI", "rollout"},
		Type:        interview.TypeScenario,
	},
	{
		Text:        "What is the difference between liveness and readiness probes, and what goes wrong when they are confused?",
		IdealAnswer: "Liveness restarts a wedged process; readiness gates traffic. Using liveness for dependency checks causes restart storms during a dependency outage.",
		Keywords:    []string{"liveness", "readiness", "probe", "restart", "traffic"},
		Type:        interview.TypeConceptual,
	},
	{
		Text:        "Design an alerting strategy for a user-facing service that avoids paging fatigue.",
		IdealAnswer: "Page only on SLO-burn symptoms users feel, route cause-based alerts to tickets, set burn-rate windows, and review every page for actionability.",
		Keywords:    []string{"SLO", "burn rate", "alerting", "paging", "actionability"},
		Type:        interview.TypeDesign,
	},
	{
		Text:        "When would you choose blue-green deployment over rolling updates?",
		IdealAnswer: "Blue-green gives instant rollback and whole-fleet consistency at double capacity cost; rolling updates conserve resources but mix versions during rollout.",
		Keywords:    []string{"blue-green", "rolling update", "rollback", "capacity", "versioning"},
		Type:        interview.TypeTradeoff,
	},
}

var staticHR = []staticQuestion{
	{
		Text:        "Tell me about a time you disagreed with a teammate on a technical decision. How was it resolved?",
		IdealAnswer: "A concrete situation, the competing positions, how evidence or prototyping settled it, and what the candidate learned about disagreement.",
		Keywords:    []string{"disagreement", "teammate", "resolution", "evidence", "learning"},
		Type:        interview.TypeBehavioral,
	},
	{
		Text:        "Describe a project that failed or fell badly behind. What was your role and what did you change afterwards?",
		IdealAnswer: "Honest ownership of a real failure, specific causes, the candidate's contribution, and a durable change in how they work.",
		Keywords:    []string{"failure", "ownership", "root cause", "retrospective", "change"},
		Type:        interview.TypeBehavioral,
	},
	{
		Text:        "Tell me about a time you had to deliver under a deadline you thought was unrealistic.",
		IdealAnswer: "Negotiating scope, communicating risk early, prioritising ruthlessly, and the actual outcome including trade-offs accepted.",
		Keywords:    []string{"deadline", "scope", "prioritisation", "communication", "risk"},
		Type:        interview.TypeBehavioral,
	},
	{
		Text:        "How do you bring a new teammate up to speed on a codebase you own?",
		IdealAnswer: "Structured onboarding: a guided first task, pairing, pointing at docs and tests, and checking in on progress rather than leaving them to sink or swim.",
		Keywords:    []string{"onboarding", "mentoring", "pairing", "documentation", "feedback"},
		Type:        interview.TypeBehavioral,
	},
	{
		Text:        "Tell me about the piece of feedback that was hardest for you to hear. What did you do with it?",
		IdealAnswer: "A specific uncomfortable critique, the initial reaction, and concrete behaviour change that followed.",
		Keywords:    []string{"feedback", "self-awareness", "growth", "behaviour", "reflection"},
		Type:        interview.TypeBehavioral,
	},
}
