package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is an implementation of the Classifier interface using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	generate      func(ctx context.Context, prompt string) (string, error)
	modelName     string
	maxBodySize   int
	categories    []string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	categories []string,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	c := newClient(modelName, maxBodySize, categories, logger, textProcessor, func(ctx context.Context, prompt string) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
		}
		return responseText(resp)
	})
	c.client = client

	return c, nil
}

func newClient(
	modelName string,
	maxBodySize int,
	categories []string,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
	generate func(ctx context.Context, prompt string) (string, error),
) *GeminiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}
	return &GeminiClient{
		generate:      generate,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		categories:    categories,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return sb.String(), nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Predict estimates the spam probability and category distribution of
// cleaned message text
func (c *GeminiClient) Predict(ctx context.Context, text string) (*core.ClassifierOutput, error) {
	prompt := utils.PredictionPrompt(c.categories, c.textProcessor.ProcessText(text, c.maxBodySize))

	reply, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	out, err := utils.ParsePrediction(reply, c.categories)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Gemini prediction",
		zap.String("model", c.modelName),
		zap.Float64("spam_probability", out.SpamProbability))

	return out, nil
}
