package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []string{"Financial Fraud", "Lottery Scam", "Malware", "Phishing", "Promotional"}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"

	return NewOpenAIClient(openai.NewClientWithConfig(cfg), "gpt-4", 200, 0.1, 0.9, 4096, testCategories, nil, nil)
}

func completion(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID: "chatcmpl-1",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func TestPredict(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"spam_probability": 0.92, "categories": {"Phishing": 0.8}}`))
	})

	out, err := client.Predict(context.Background(), "verifi account suspend")
	require.NoError(t, err)
	assert.InDelta(t, 0.92, out.SpamProbability, 1e-9)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0.8, 0}, out.CategoryDistribution, 1e-9)

	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "verifi account suspend")
	assert.Equal(t, "gpt-4", got.Model)
}

func TestPredictEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "chatcmpl-2"})
	})

	_, err := client.Predict(context.Background(), "hello")
	assert.Error(t, err)
}

func TestPredictServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})

	_, err := client.Predict(context.Background(), "hello")
	assert.Error(t, err)
}
