package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []string{"Financial Fraud", "Lottery Scam", "Malware", "Phishing", "Promotional"}

type stubInvoker struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (s *stubInvoker) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	s.input = params
	if s.err != nil {
		return nil, s.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: s.body}, nil
}

func TestPredictByModelFamily(t *testing.T) {
	reply := `{"spam_probability": 0.7, "categories": {"Financial Fraud": 0.4}}`

	tests := []struct {
		name      string
		modelID   string
		body      interface{}
		promptKey string
	}{
		{
			name:      "claude",
			modelID:   "anthropic.claude-v2",
			body:      map[string]string{"completion": " " + reply},
			promptKey: "prompt",
		},
		{
			name:    "titan",
			modelID: "amazon.titan-text-express-v1",
			body: map[string]interface{}{
				"results": []map[string]string{{"outputText": reply}},
			},
			promptKey: "inputText",
		},
		{
			name:      "generic",
			modelID:   "meta.llama3-8b-instruct-v1:0",
			body:      map[string]string{"text": reply},
			promptKey: "prompt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.body)
			require.NoError(t, err)
			stub := &stubInvoker{body: body}

			c := NewBedrockClient(stub, tt.modelID, 200, 0.1, 0.9, 4096, testCategories, nil, nil)
			out, err := c.Predict(context.Background(), "wire transfer invoic")
			require.NoError(t, err)

			assert.InDelta(t, 0.7, out.SpamProbability, 1e-9)
			assert.InDeltaSlice(t, []float64{0.4, 0, 0, 0, 0}, out.CategoryDistribution, 1e-9)
			assert.Equal(t, tt.modelID, *stub.input.ModelId)

			var sent map[string]interface{}
			require.NoError(t, json.Unmarshal(stub.input.Body, &sent))
			assert.Contains(t, sent[tt.promptKey], "wire transfer invoic")
		})
	}
}

func TestPredictInvokeError(t *testing.T) {
	c := NewBedrockClient(&stubInvoker{err: errors.New("throttled")}, "anthropic.claude-v2", 200, 0.1, 0.9, 4096, testCategories, nil, nil)
	_, err := c.Predict(context.Background(), "hello")
	assert.Error(t, err)
}

func TestPredictEmptyTitanResults(t *testing.T) {
	c := NewBedrockClient(&stubInvoker{body: []byte(`{"results": []}`)}, "amazon.titan-text-lite-v1", 200, 0.1, 0.9, 4096, testCategories, nil, nil)
	_, err := c.Predict(context.Background(), "hello")
	assert.Error(t, err)
}
