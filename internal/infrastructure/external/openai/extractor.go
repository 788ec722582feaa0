package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/money"
)

// ChatClient is the part of the OpenAI client used here
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ExtractorConfig selects models and the document handling mode
type ExtractorConfig struct {
	Model       string
	VisionModel string
	UseVision   bool
	MaxPages    int
}

// Extractor implements port.Extractor using OpenAI chat completions
type Extractor struct {
	client  ChatClient
	reader  DocumentReader
	prompts *PromptConfig
	cfg     ExtractorConfig
	logger  *zap.Logger
}

// NewExtractor creates a new offer extractor
func NewExtractor(client ChatClient, reader DocumentReader, prompts *PromptConfig, cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	return &Extractor{
		client:  client,
		reader:  reader,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger,
	}
}

// rawOffer mirrors the JSON the model is asked for. Every field may be null.
type rawOffer struct {
	VendorName      *string          `json:"vendor_name"`
	VATID           *string          `json:"vat_id"`
	Department      *string          `json:"department"`
	RequestorName   *string          `json:"requestor_name"`
	Title           *string          `json:"title"`
	Currency        *string          `json:"currency"`
	OrderLines      []rawOrderLine   `json:"order_lines"`
	StatedTotalCost *decimal.Decimal `json:"stated_total_cost"`
}

type rawOrderLine struct {
	Description      *string          `json:"description"`
	UnitPrice        *decimal.Decimal `json:"unit_price"`
	Quantity         json.Number      `json:"quantity"`
	Unit             *string          `json:"unit"`
	StatedTotalPrice *decimal.Decimal `json:"stated_total_price"`
}

// Extract reads the PDF and asks the model for a structured draft
func (e *Extractor) Extract(ctx context.Context, document []byte) (*entity.ExtractionDraft, error) {
	doc, err := e.reader.Read(document, e.cfg.UseVision, e.cfg.MaxPages)
	if err != nil {
		return nil, err
	}

	useVision := e.cfg.UseVision && len(doc.Images) > 0
	if doc.Text == "" && !useVision {
		return nil, errors.New("document contains no readable text")
	}

	e.logger.Info("Extracting offer data",
		zap.Int("pages", doc.Pages),
		zap.Int("text_length", len(doc.Text)),
		zap.Bool("vision", useVision))

	req, err := e.buildRequest(doc, useVision)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		e.logger.Error("OpenAI API call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	var raw rawOffer
	if err := decodeJSON(content, &raw); err != nil {
		e.logger.Error("Failed to parse OpenAI response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	draft := raw.toDraft()
	e.logger.Info("Offer data extracted",
		zap.Int("order_lines", len(draft.OrderLines)),
		zap.Bool("has_vendor", draft.VendorName != nil))
	return draft, nil
}

func (e *Extractor) buildRequest(doc *Document, useVision bool) (openai.ChatCompletionRequest, error) {
	p := e.prompts.Extraction
	data := struct {
		Structure string
		Text      string
	}{Structure: p.Structure, Text: doc.Text}

	systemTpl, userTpl, model := p.System, p.UserTemplate, e.cfg.Model
	if useVision {
		systemTpl, userTpl, model = p.VisionSystem, p.VisionUserTemplate, e.cfg.VisionModel
	}

	system, err := renderTemplate(systemTpl, data)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}
	user, err := renderTemplate(userTpl, data)
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if useVision {
		userMsg.MultiContent = []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: user}}
		for _, img := range doc.Images {
			userMsg.MultiContent = append(userMsg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
					Detail: openai.ImageURLDetailHigh,
				},
			})
		}
	} else {
		userMsg.Content = user
	}

	return openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   p.MaxTokens,
		Temperature: temperature(p.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			userMsg,
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}, nil
}

// toDraft drops blank strings and unknown currencies and rounds quantities up to whole units
func (o rawOffer) toDraft() *entity.ExtractionDraft {
	d := &entity.ExtractionDraft{
		VendorName:    nonBlank(o.VendorName),
		VATID:         nonBlank(o.VATID),
		Department:    nonBlank(o.Department),
		RequestorName: nonBlank(o.RequestorName),
		Title:         nonBlank(o.Title),
		OrderLines:    []entity.OrderLine{},
	}
	if o.StatedTotalCost != nil {
		d.StatedTotalCost = money.Ptr(*o.StatedTotalCost)
	}
	if o.Currency != nil {
		if c, err := money.ParseCurrency(*o.Currency); err == nil {
			d.Currency = &c
		}
	}

	for _, l := range o.OrderLines {
		desc := nonBlank(l.Description)
		if desc == nil && l.UnitPrice == nil {
			continue
		}
		line := entity.OrderLine{Quantity: 1}
		if desc != nil {
			line.Description = *desc
		}
		if l.UnitPrice != nil {
			line.UnitPrice = *l.UnitPrice
		}
		if q, err := l.Quantity.Float64(); err == nil && q > 1 {
			line.Quantity = int(math.Ceil(q))
		}
		if l.Unit != nil {
			line.Unit = entity.Unit(strings.TrimSpace(*l.Unit))
		}
		if l.StatedTotalPrice != nil {
			line.StatedTotalPrice = money.Ptr(*l.StatedTotalPrice)
		}
		d.OrderLines = append(d.OrderLines, line)
	}
	return d
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

// temperature maps 0 to the smallest positive value; go-openai omits a zero temperature
func temperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// decodeJSON unmarshals content, falling back to the first JSON object embedded in it
func decodeJSON(content string, v interface{}) error {
	err := json.Unmarshal([]byte(content), v)
	if err == nil {
		return nil
	}
	if jsonStr := extractJSON(content); jsonStr != "" {
		if err2 := json.Unmarshal([]byte(jsonStr), v); err2 == nil {
			return nil
		}
	}
	return err
}

// extractJSON extracts the first balanced JSON object from content, e.g. inside markdown fences
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escapeNext := false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escapeNext:
			escapeNext = false
		case c == '\\':
			escapeNext = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}

var _ port.Extractor = (*Extractor)(nil)
