package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/infrastructure/catalog"
)

// Classifier implements port.Classifier using OpenAI at temperature 0
type Classifier struct {
	client  ChatClient
	catalog port.CommodityCatalog
	prompts *PromptConfig
	model   string
	logger  *zap.Logger
}

// NewClassifier creates a new commodity group classifier
func NewClassifier(client ChatClient, catalog port.CommodityCatalog, prompts *PromptConfig, model string, logger *zap.Logger) *Classifier {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Classifier{
		client:  client,
		catalog: catalog,
		prompts: prompts,
		model:   model,
		logger:  logger,
	}
}

type rawClassification struct {
	CommodityGroupID string  `json:"commodity_group_id"`
	Confidence       float64 `json:"confidence"`
	Rationale        string  `json:"rationale"`
}

// Classify picks the commodity group that best fits text
func (c *Classifier) Classify(ctx context.Context, text string) (*port.Classification, error) {
	groups, err := c.catalog.ListCommodityGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load commodity groups: %w", err)
	}

	p := c.prompts.Classification
	system, err := renderTemplate(p.System, struct{ Groups string }{catalog.PromptList(groups)})
	if err != nil {
		return nil, err
	}
	user, err := renderTemplate(p.UserTemplate, struct{ Text string }{strings.TrimSpace(text)})
	if err != nil {
		return nil, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   p.MaxTokens,
		Temperature: temperature(0),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	var raw rawClassification
	if err := decodeJSON(content, &raw); err != nil {
		c.logger.Error("Failed to parse OpenAI response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	id := normalizeGroupID(raw.CommodityGroupID)
	if id == "" {
		return nil, fmt.Errorf("response has no commodity_group_id")
	}

	result := &port.Classification{
		CommodityGroupID: id,
		Confidence:       clamp01(raw.Confidence),
		Rationale:        strings.TrimSpace(raw.Rationale),
	}

	c.logger.Info("Classification completed",
		zap.String("commodity_group_id", result.CommodityGroupID),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

// normalizeGroupID left-pads numeric ids to three digits ("31" -> "031")
func normalizeGroupID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) >= 3 {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	return strings.Repeat("0", 3-len(id)) + id
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

var _ port.Classifier = (*Classifier)(nil)
