package openai

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// PromptConfig holds all prompts and model parameters used for extraction and classification
type PromptConfig struct {
	Extraction struct {
		Temperature        float32 `yaml:"temperature"`
		MaxTokens          int     `yaml:"max_tokens"`
		System             string  `yaml:"system"`
		VisionSystem       string  `yaml:"vision_system"`
		UserTemplate       string  `yaml:"user_template"`
		VisionUserTemplate string  `yaml:"vision_user_template"`
		Structure          string  `yaml:"structure"`
	} `yaml:"extraction"`

	Classification struct {
		MaxTokens    int    `yaml:"max_tokens"`
		System       string `yaml:"system"`
		UserTemplate string `yaml:"user_template"`
	} `yaml:"classification"`
}

// DefaultPrompts returns the prompts compiled into the binary
func DefaultPrompts() *PromptConfig {
	prompts, err := parsePrompts(defaultPrompts)
	if err != nil {
		panic(err)
	}
	return prompts
}

// LoadPrompts loads prompt configuration from a YAML file. Sections missing
// from the file keep their built-in values.
func LoadPrompts(promptsPath string) (*PromptConfig, error) {
	if promptsPath == "" {
		return DefaultPrompts(), nil
	}

	data, err := os.ReadFile(promptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	return prompts, nil
}

func parsePrompts(data []byte) (*PromptConfig, error) {
	var prompts PromptConfig
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	return &prompts, nil
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
