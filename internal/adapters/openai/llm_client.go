package openai

import (
	"context"
	"fmt"

	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the Classifier interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	categories    []string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	categories []string,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if textProcessor == nil {
		textProcessor = utils.NewTextProcessor(logger)
	}

	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		categories:    categories,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Predict estimates the spam probability and category distribution of
// cleaned message text
func (c *OpenAIClient) Predict(ctx context.Context, text string) (*core.ClassifierOutput, error) {
	prompt := utils.PredictionPrompt(c.categories, c.textProcessor.ProcessText(text, c.maxBodySize))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a phishing and spam classifier. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	out, err := utils.ParsePrediction(resp.Choices[0].Message.Content, c.categories)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("OpenAI prediction",
		zap.String("model", c.modelName),
		zap.String("processing_id", resp.ID),
		zap.Float64("spam_probability", out.SpamProbability))

	return out, nil
}
