package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/incident-ai-gateway/models"
)

func request(op string, md map[string]interface{}) *models.AIRequest {
	if md == nil {
		md = map[string]interface{}{}
	}
	if op != "" {
		md[models.MetadataOperation] = op
	}
	return models.NewAIRequest("openai/gpt-4o-mini", "prompt", models.WithMetadata(md))
}

func TestGenerator_SubstitutesContext(t *testing.T) {
	g := NewGenerator()
	req := request(OpClarificationQuestions, map[string]interface{}{
		models.MetadataParticipantName: "Alex",
		models.MetadataLocation:        "Day Centre",
	})

	resp := g.Generate(req)

	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.Error)
	assert.Equal(t, req.RequestID, resp.RequestID)
	assert.Equal(t, models.FallbackSource, resp.Provider)
	assert.Equal(t, models.FallbackSource, resp.Model)
	assert.Nil(t, resp.Cost)
	assert.Nil(t, resp.TokensUsed)
	assert.Contains(t, resp.Text, "Alex")
	assert.Contains(t, resp.Text, "Day Centre")
	assert.NotContains(t, resp.Text, "{participant}")
}

func TestGenerator_Deterministic(t *testing.T) {
	g := NewGenerator()
	md := map[string]interface{}{models.MetadataParticipantName: "Sam", models.MetadataLocation: "Kitchen"}

	first := g.Generate(request(OpSummarizeIncident, md))
	second := g.Generate(request(OpSummarizeIncident, md))

	assert.Equal(t, first.Text, second.Text)
}

func TestGenerator_MissingFieldsUseDefaults(t *testing.T) {
	g := NewGenerator()

	resp := g.Generate(request(OpIncidentTitle, nil))

	assert.Equal(t, "Incident involving the participant at the reported location", resp.Text)
}

func TestGenerator_EveryOperationRenders(t *testing.T) {
	g := NewGenerator()
	md := map[string]interface{}{
		models.MetadataParticipantName: "Jordan",
		models.MetadataLocation:        "Garden",
		models.MetadataIncidentDate:    "2024-03-10",
		models.MetadataReporterName:    "Priya",
	}

	for _, op := range g.Operations() {
		t.Run(op, func(t *testing.T) {
			resp := g.Generate(request(op, md))
			assert.NotEmpty(t, resp.Text)
			assert.NotContains(t, resp.Text, "{")
			assert.Contains(t, resp.Text, "Jordan")
		})
	}
}

func TestGenerator_UnknownOperation(t *testing.T) {
	g := NewGenerator()

	for _, op := range []string{"", "translate_report"} {
		resp := g.Generate(request(op, map[string]interface{}{models.MetadataParticipantName: "Lee"}))
		assert.True(t, resp.Success)
		assert.True(t, resp.Degraded)
		assert.Contains(t, resp.Text, "temporarily unavailable")
		assert.Contains(t, resp.Text, "Lee")
	}
}
