// Package openai scores leads with a chat completion model.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

// ErrEmptyResponse is returned when the model produced no choices
var ErrEmptyResponse = errors.New("no response from OpenAI")

// Config holds scorer settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Temperature and MaxTokens override the prompt file when set
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Scorer implements port.LeadScorer using the chat completions API
type Scorer struct {
	client  *openai.Client
	model   string
	prompts *PromptConfig
	logger  *zap.Logger
}

// scoreResult is the JSON object the model is asked to return
type scoreResult struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// NewScorer creates a lead scorer; prompts may be nil to use the defaults
func NewScorer(cfg Config, prompts *PromptConfig, logger *zap.Logger) *Scorer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if cfg.Temperature > 0 {
		prompts.LeadScoring.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		prompts.LeadScoring.MaxTokens = cfg.MaxTokens
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Scorer{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		prompts: prompts,
		logger:  logger,
	}
}

// ScoreLead asks the model to qualify a lead and returns a 0..100 score
func (s *Scorer) ScoreLead(ctx context.Context, lead *entity.Lead) (*entity.LeadScore, error) {
	s.logger.Debug("Scoring lead", zap.Int64("lead_id", lead.ID))

	prompt, err := renderTemplate(s.prompts.LeadScoring.UserTemplate, lead)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.prompts.LeadScoring.Temperature,
		MaxTokens:   s.prompts.LeadScoring.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.prompts.LeadScoring.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		s.logger.Error("OpenAI API call failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	result, err := parseScore(content)
	if err != nil {
		s.logger.Error("Failed to parse OpenAI response", zap.Error(err), zap.String("content", content))
		return nil, err
	}

	s.logger.Info("Lead scored",
		zap.Int64("lead_id", lead.ID),
		zap.Int("score", result.Score),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return result, nil
}

// parseScore decodes the model output, falling back to the first JSON
// object embedded in the text
func parseScore(content string) (*entity.LeadScore, error) {
	var res scoreResult
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &res); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	// clamp before converting; out-of-range floats do not fit an int
	score := int(math.Round(math.Max(0, math.Min(100, res.Score))))

	return &entity.LeadScore{Score: score, Reasoning: strings.TrimSpace(res.Reasoning)}, nil
}

// extractJSON returns the outermost {...} object in content, or ""
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth, inString, escaped := 0, false, false
	for i := start; i < len(content); i++ {
		ch := content[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

var _ port.LeadScorer = (*Scorer)(nil)
