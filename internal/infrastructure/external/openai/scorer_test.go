package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/domain/entity"
)

func chatServer(t *testing.T, content string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 80, "completion_tokens": 20, "total_tokens": 100},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sampleLead() *entity.Lead {
	return &entity.Lead{
		ID:           3,
		Name:         "Aisha Rahman",
		Email:        "aisha@example.com",
		Phone:        "+971501234567",
		Budget:       decimal.RequireFromString("2500000"),
		PropertyType: "villa",
		Source:       "website",
	}
}

func TestScoreLead(t *testing.T) {
	var req map[string]interface{}
	srv := chatServer(t, `{"score": 82, "reasoning": " Clear budget and property type. "}`, &req)
	s := NewScorer(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"}, nil, zap.NewNop())

	res, err := s.ScoreLead(context.Background(), sampleLead())
	require.NoError(t, err)
	assert.Equal(t, 82, res.Score)
	assert.Equal(t, "Clear budget and property type.", res.Reasoning)

	assert.Equal(t, "gpt-4o-mini", req["model"])
	msgs := req["messages"].([]interface{})
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]interface{})["content"].(string)
	assert.Contains(t, user, "Aisha Rahman")
	assert.Contains(t, user, "2500000")
	assert.Contains(t, user, "villa")
}

func TestScoreLead_ClampsOutOfRange(t *testing.T) {
	srv := chatServer(t, `{"score": 140, "reasoning": "eager"}`, nil)
	s := NewScorer(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil, zap.NewNop())

	res, err := s.ScoreLead(context.Background(), sampleLead())
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
}

func TestScoreLead_InvalidContent(t *testing.T) {
	srv := chatServer(t, "I cannot score this lead.", nil)
	s := NewScorer(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil, zap.NewNop())

	_, err := s.ScoreLead(context.Background(), sampleLead())
	assert.Error(t, err)
}

func TestScoreLead_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()
	s := NewScorer(Config{APIKey: "sk-bad", BaseURL: srv.URL}, nil, zap.NewNop())

	_, err := s.ScoreLead(context.Background(), sampleLead())
	assert.Error(t, err)
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		content string
		score   int
		wantErr bool
	}{
		{"plain", `{"score": 55, "reasoning": "ok"}`, 55, false},
		{"fenced", "```json\n{\"score\": 61.6, \"reasoning\": \"a {brace} inside\"}\n```", 62, false},
		{"negative", `{"score": -5}`, 0, false},
		{"huge", `{"score": 1e30}`, 100, false},
		{"huge negative", `{"score": -1e30}`, 0, false},
		{"just under ceiling", `{"score": 99.5}`, 100, false},
		{"garbage", "no json here", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parseScore(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, res.Score)
		})
	}
}

func TestLoadPrompts(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Equal(t, defaultUserTemplate, p.LeadScoring.UserTemplate)

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lead_scoring:\n  temperature: 0.5\n  system: Be strict.\n"), 0o600))

	p, err = LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Be strict.", p.LeadScoring.System)
	assert.InDelta(t, 0.5, p.LeadScoring.Temperature, 1e-6)
	assert.Equal(t, defaultUserTemplate, p.LeadScoring.UserTemplate)
	assert.Equal(t, 300, p.LeadScoring.MaxTokens)

	require.NoError(t, os.WriteFile(path, []byte("lead_scoring:\n  user_template: \"{{.Name\"\n"), 0o600))
	_, err = LoadPrompts(path)
	assert.Error(t, err)
}
