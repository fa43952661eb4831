package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []string{"Financial Fraud", "Lottery Scam", "Malware", "Phishing", "Promotional"}

func TestPredict(t *testing.T) {
	var prompt string
	c := newClient("gemini-pro", 4096, testCategories, nil, nil, func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "```json\n{\"spam_probability\": 0.3, \"categories\": {\"Promotional\": 0.6}}\n```", nil
	})

	out, err := c.Predict(context.Background(), "limit offer shop")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, out.SpamProbability, 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0, 0.6}, out.CategoryDistribution, 1e-9)
	assert.Contains(t, prompt, "limit offer shop")
	assert.NoError(t, c.Close())
}

func TestPredictGenerateError(t *testing.T) {
	c := newClient("gemini-pro", 4096, testCategories, nil, nil, func(ctx context.Context, p string) (string, error) {
		return "", errors.New("quota exceeded")
	})

	_, err := c.Predict(context.Background(), "hello")
	assert.Error(t, err)
}

func TestResponseText(t *testing.T) {
	_, err := responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	text, err := responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"spam_probability":`), genai.Text(` 0.5}`)}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"spam_probability": 0.5}`, text)
}
