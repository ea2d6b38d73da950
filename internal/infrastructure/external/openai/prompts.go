package openai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptConfig holds the lead scoring prompt and its model parameters
type PromptConfig struct {
	LeadScoring struct {
		Temperature  float32 `yaml:"temperature"`
		MaxTokens    int     `yaml:"max_tokens"`
		System       string  `yaml:"system"`
		UserTemplate string  `yaml:"user_template"`
	} `yaml:"lead_scoring"`
}

const defaultSystemPrompt = `You qualify real estate leads for a Dubai brokerage. ` +
	`Score how likely the lead is to transact from 0 (cold) to 100 (ready to buy). ` +
	`Respond with a JSON object: {"score": <int>, "reasoning": "<one or two sentences>"}.`

const defaultUserTemplate = `Lead: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Budget: {{.Budget}}
Property type: {{or .PropertyType "unspecified"}}
Source: {{or .Source "unknown"}}
Notes: {{or .Notes "none"}}`

// DefaultPrompts returns the built-in lead scoring prompt
func DefaultPrompts() *PromptConfig {
	p := &PromptConfig{}
	p.LeadScoring.Temperature = 0.2
	p.LeadScoring.MaxTokens = 300
	p.LeadScoring.System = defaultSystemPrompt
	p.LeadScoring.UserTemplate = defaultUserTemplate
	return p
}

// LoadPrompts loads prompt configuration from a YAML file. Empty fields keep
// their built-in defaults; an empty path returns the defaults.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	prompts := DefaultPrompts()
	if promptsPath == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var loaded PromptConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}

	ls := loaded.LeadScoring
	if ls.System != "" {
		prompts.LeadScoring.System = ls.System
	}
	if ls.UserTemplate != "" {
		if _, err := template.New("prompt").Parse(ls.UserTemplate); err != nil {
			return nil, fmt.Errorf("invalid user_template: %w", err)
		}
		prompts.LeadScoring.UserTemplate = ls.UserTemplate
	}
	if ls.Temperature > 0 {
		prompts.LeadScoring.Temperature = ls.Temperature
	}
	if ls.MaxTokens > 0 {
		prompts.LeadScoring.MaxTokens = ls.MaxTokens
	}

	return prompts, nil
}

// renderTemplate renders a template with provided data
func renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("prompt").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
