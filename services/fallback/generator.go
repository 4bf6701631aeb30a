// Package fallback produces canned, non-AI content for incident-reporting
// operations when the circuit breaker suppresses provider calls.
package fallback

import (
	"sort"
	"strings"

	"github.com/upb/incident-ai-gateway/models"
)

// Operation names understood by the generator
const (
	OpClarificationQuestions = "generate_clarification_questions"
	OpEnhanceNarrative       = "enhance_narrative"
	OpSummarizeIncident      = "summarize_incident"
	OpContributingFactors    = "analyze_contributing_factors"
	OpIncidentTitle          = "generate_incident_title"
)

const defaultTemplate = "AI assistance is temporarily unavailable. " +
	"Please continue completing the report for {participant} manually; " +
	"your progress has been kept and AI suggestions will return shortly."

var templates = map[string]string{
	OpClarificationQuestions: "AI assistance is temporarily unavailable, so here are standard follow-up questions:\n" +
		"1. What was {participant} doing immediately before the incident at {location}?\n" +
		"2. Who else was present, and what did they observe?\n" +
		"3. Were there any injuries, and what first aid or medical attention was provided?\n" +
		"4. What immediate actions were taken to keep {participant} and others safe?\n" +
		"5. Has anything like this happened before with {participant}?",

	OpEnhanceNarrative: "Narrative enhancement is temporarily unavailable. " +
		"Please review your description of the incident involving {participant} at {location} on {date} " +
		"and check that it states what happened, in order, using objective language, " +
		"and records who was present and what actions were taken.",

	OpSummarizeIncident: "Summary (generated without AI): an incident involving {participant} " +
		"occurred at {location} on {date} and was reported by {reporter}. " +
		"Refer to the full report for details.",

	OpContributingFactors: "Automated analysis is temporarily unavailable. " +
		"When reviewing the incident involving {participant} at {location}, consider: " +
		"environmental factors, communication and supervision, changes to routine, " +
		"health or medication, and any known triggers.",

	OpIncidentTitle: "Incident involving {participant} at {location}",
}

// Generator builds deterministic fallback responses. It performs no I/O
// and never fails.
type Generator struct {
	templates map[string]string
}

// NewGenerator creates a generator with the built-in templates
func NewGenerator() *Generator {
	return &Generator{templates: templates}
}

// Operations returns the supported operation names, sorted
func (g *Generator) Operations() []string {
	ops := make([]string, 0, len(g.templates))
	for op := range g.templates {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Generate returns canned content for req's operation, marked degraded
func (g *Generator) Generate(req *models.AIRequest) *models.AIResponse {
	tmpl, ok := g.templates[req.Operation()]
	if !ok {
		tmpl = defaultTemplate
	}

	return &models.AIResponse{
		RequestID: req.RequestID,
		Text:      render(tmpl, req),
		Model:     models.FallbackSource,
		Provider:  models.FallbackSource,
		Success:   true,
		Degraded:  true,
	}
}

func render(tmpl string, req *models.AIRequest) string {
	return strings.NewReplacer(
		"{participant}", valueOr(req, models.MetadataParticipantName, "the participant"),
		"{location}", valueOr(req, models.MetadataLocation, "the reported location"),
		"{date}", valueOr(req, models.MetadataIncidentDate, "the reported date"),
		"{reporter}", valueOr(req, models.MetadataReporterName, "the reporting staff member"),
	).Replace(tmpl)
}

func valueOr(req *models.AIRequest, key, fallback string) string {
	if v := req.MetadataString(key); v != "" {
		return v
	}
	return fallback
}
