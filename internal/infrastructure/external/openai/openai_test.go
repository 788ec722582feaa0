package openai

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/money"
	"github.com/garyjia/procuro/internal/infrastructure/catalog"
)

type mockChatClient struct {
	CreateFunc func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	requests   []openai.ChatCompletionRequest
}

func (m *mockChatClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	return m.CreateFunc(ctx, req)
}

func reply(content string) func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
		}, nil
	}
}

type mockReader struct {
	doc *Document
	err error
}

func (m *mockReader) Read(pdf []byte, withImages bool, maxPages int) (*Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	d := *m.doc
	if !withImages {
		d.Images = nil
	}
	return &d, nil
}

const offerJSON = `{
  "vendor_name": "Adobe Systems",
  "vat_id": "de 123 456 789",
  "department": "Creative",
  "requestor_name": "  ",
  "title": "Adobe Creative Cloud",
  "currency": "eur",
  "order_lines": [
    {"description": "Creative Cloud seat", "unit_price": 59.99, "quantity": 2.5, "unit": "Stück", "stated_total_price": 179.97},
    {"description": null, "unit_price": null, "quantity": null, "unit": null, "stated_total_price": null},
    {"description": "Setup", "unit_price": "100.00", "quantity": null, "unit": "h", "stated_total_price": null}
  ],
  "stated_total_cost": 279.97
}`

func TestExtractor_TextMode(t *testing.T) {
	client := &mockChatClient{CreateFunc: reply(offerJSON)}
	reader := &mockReader{doc: &Document{Text: "Offer text", Images: [][]byte{{1, 2}}, Pages: 1}}
	e := NewExtractor(client, reader, nil, ExtractorConfig{Model: "text-model", VisionModel: "vision-model"}, zap.NewNop())

	draft, err := e.Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "text-model", req.Model)
	assert.Contains(t, req.Messages[0].Content, "Required JSON structure")
	assert.Contains(t, req.Messages[1].Content, "Offer text")
	assert.Empty(t, req.Messages[1].MultiContent)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)

	require.NotNil(t, draft.VendorName)
	assert.Equal(t, "Adobe Systems", *draft.VendorName)
	assert.Nil(t, draft.RequestorName, "blank strings are absent")
	require.NotNil(t, draft.Currency)
	assert.Equal(t, money.CurrencyEUR, *draft.Currency)
	require.NotNil(t, draft.StatedTotalCost)
	assert.Equal(t, "279.97", money.Format(*draft.StatedTotalCost))

	require.Len(t, draft.OrderLines, 2, "empty lines are dropped")
	assert.Equal(t, 3, draft.OrderLines[0].Quantity, "quantities round up")
	assert.Equal(t, entity.Unit("Stück"), draft.OrderLines[0].Unit, "units are normalized by the service")
	assert.Equal(t, 1, draft.OrderLines[1].Quantity)
	assert.Equal(t, "100.00", money.Format(draft.OrderLines[1].UnitPrice))
	assert.Nil(t, draft.OrderLines[1].StatedTotalPrice)
}

func TestExtractor_VisionMode(t *testing.T) {
	client := &mockChatClient{CreateFunc: reply(offerJSON)}
	reader := &mockReader{doc: &Document{Text: "", Images: [][]byte{{1}, {2}}, Pages: 2}}
	e := NewExtractor(client, reader, nil, ExtractorConfig{Model: "text-model", VisionModel: "vision-model", UseVision: true, MaxPages: 2}, zap.NewNop())

	_, err := e.Extract(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	req := client.requests[0]
	assert.Equal(t, "vision-model", req.Model)
	require.Len(t, req.Messages[1].MultiContent, 3)
	assert.Equal(t, openai.ChatMessagePartTypeText, req.Messages[1].MultiContent[0].Type)
	assert.True(t, strings.HasPrefix(req.Messages[1].MultiContent[1].ImageURL.URL, "data:image/png;base64,"))
}

func TestExtractor_Failures(t *testing.T) {
	tests := []struct {
		name   string
		reader *mockReader
		client *mockChatClient
	}{
		{
			name:   "unreadable pdf",
			reader: &mockReader{err: errors.New("broken")},
			client: &mockChatClient{CreateFunc: reply(offerJSON)},
		},
		{
			name:   "no text without vision",
			reader: &mockReader{doc: &Document{Pages: 1}},
			client: &mockChatClient{CreateFunc: reply(offerJSON)},
		},
		{
			name:   "api error",
			reader: &mockReader{doc: &Document{Text: "x"}},
			client: &mockChatClient{CreateFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, errors.New("rate limited")
			}},
		},
		{
			name:   "no choices",
			reader: &mockReader{doc: &Document{Text: "x"}},
			client: &mockChatClient{CreateFunc: func(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return openai.ChatCompletionResponse{}, nil
			}},
		},
		{
			name:   "not json",
			reader: &mockReader{doc: &Document{Text: "x"}},
			client: &mockChatClient{CreateFunc: reply("sorry, I cannot help")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.client, tt.reader, nil, ExtractorConfig{Model: "m"}, zap.NewNop())
			draft, err := e.Extract(context.Background(), []byte("%PDF"))
			assert.Error(t, err)
			assert.Nil(t, draft)
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	client := &mockChatClient{CreateFunc: reply("```json\n{\"commodity_group_id\": \"31\", \"confidence\": 1.4, \"rationale\": \" software licenses \"}\n```")}
	c := NewClassifier(client, catalog.NewStatic(), nil, "classifier-model", zap.NewNop())

	result, err := c.Classify(context.Background(), "Adobe Photoshop License, Adobe Illustrator License")
	require.NoError(t, err)

	assert.Equal(t, "031", result.CommodityGroupID)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, "software licenses", result.Rationale)

	req := client.requests[0]
	assert.Equal(t, float32(math.SmallestNonzeroFloat32), req.Temperature)
	assert.Contains(t, req.Messages[0].Content, "ID: 031, Category: Information Technology, Name: Software")
	assert.Contains(t, req.Messages[1].Content, "Adobe Photoshop License")
}

func TestClassifier_MissingID(t *testing.T) {
	client := &mockChatClient{CreateFunc: reply(`{"confidence": 0.2}`)}
	c := NewClassifier(client, catalog.NewStatic(), nil, "m", zap.NewNop())

	_, err := c.Classify(context.Background(), "something")

	assert.Error(t, err)
}

func TestNormalizeGroupID(t *testing.T) {
	assert.Equal(t, "009", normalizeGroupID("9"))
	assert.Equal(t, "031", normalizeGroupID(" 031 "))
	assert.Equal(t, "abc", normalizeGroupID("abc"))
	assert.Equal(t, "", normalizeGroupID(" "))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": "}"}`, extractJSON("prefix ```json\n{\"a\": \"}\"}\n``` suffix"))
	assert.Equal(t, "", extractJSON("no json here"))
	assert.Equal(t, "", extractJSON("{unterminated"))
}

func TestLoadPrompts_Defaults(t *testing.T) {
	p, err := LoadPrompts("")
	require.NoError(t, err)
	assert.Contains(t, p.Extraction.System, "{{.Structure}}")
	assert.Contains(t, p.Classification.System, "{{.Groups}}")
	assert.Equal(t, 4096, p.Extraction.MaxTokens)
}
