package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/phish-fusion/internal/core"
)

// ErrNoJSON is returned when a model reply contains no JSON object
var ErrNoJSON = errors.New("no JSON object in model reply")

const predictionPrompt = `You are a phishing and spam classifier. Read the following preprocessed email text and estimate how likely it is to be spam or phishing.
Respond with a JSON object containing:
- spam_probability: number between 0 and 1
- categories: object mapping each of these category names to a probability between 0 and 1: %s

Email text:
%s

Respond only with the JSON object and nothing else.`

// PredictionReply is the JSON object a classifier model is asked to return
type PredictionReply struct {
	SpamProbability float64            `json:"spam_probability"`
	Categories      map[string]float64 `json:"categories"`
}

// PredictionPrompt builds the classifier prompt for cleaned text
func PredictionPrompt(categories []string, text string) string {
	return fmt.Sprintf(predictionPrompt, strings.Join(categories, ", "), text)
}

// ExtractJSON unmarshals the first {...} span of text into v. Models tend to
// wrap their JSON in prose or code fences.
func ExtractJSON(text string, v interface{}) error {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return ErrNoJSON
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse model reply as JSON: %w", err)
	}
	return nil
}

// ParsePrediction converts a model reply into classifier output. Category
// names are matched case-insensitively against the configured encoding;
// unknown names are dropped and the distribution is scaled down when it
// sums past one.
func ParsePrediction(text string, categories []string) (*core.ClassifierOutput, error) {
	var reply PredictionReply
	if err := ExtractJSON(text, &reply); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(categories))
	for i, name := range categories {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	dist := make([]float64, len(categories))
	var sum float64
	for name, p := range reply.Categories {
		i, ok := index[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		dist[i] = core.Clamp(p)
		sum += dist[i]
	}
	if sum > 1 {
		for i := range dist {
			dist[i] /= sum
		}
	}

	return &core.ClassifierOutput{
		SpamProbability:      core.Clamp(reply.SpamProbability),
		CategoryDistribution: dist,
	}, nil
}
