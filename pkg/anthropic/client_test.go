package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "first"},
		{Type: "text", Text: ""},
		{Type: "text", Text: "second"},
	}}
	assert.Equal(t, "first\nsecond", resp.Text())

	var nilResp *MessageResponse
	assert.Empty(t, nilResp.Text())
	assert.Empty(t, (&MessageResponse{}).Text())
}

func TestTokenUsageAdd(t *testing.T) {
	u := TokenUsage{InputTokens: 100, OutputTokens: 50}
	u.Add(TokenUsage{InputTokens: 30, OutputTokens: 20})

	assert.Equal(t, int64(130), u.InputTokens)
	assert.Equal(t, int64(70), u.OutputTokens)
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
	assert.Zero(t, u.EstimateCost("unknown-model"))
}
