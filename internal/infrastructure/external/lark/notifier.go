package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

// Notifier posts an interactive card for every accepted status change
type Notifier struct {
	sender        MessageSender
	receiveIDType string
	receiveID     string
	logger        *zap.Logger
}

// NewNotifier creates a status notifier that posts to one Lark chat or user
func NewNotifier(sender MessageSender, receiveIDType, receiveID string, logger *zap.Logger) *Notifier {
	if receiveIDType == "" {
		receiveIDType = "chat_id"
	}
	return &Notifier{
		sender:        sender,
		receiveIDType: receiveIDType,
		receiveID:     receiveID,
		logger:        logger,
	}
}

// NotifyStatusChange implements port.StatusNotifier
func (n *Notifier) NotifyStatusChange(ctx context.Context, change port.StatusChange) error {
	card, err := json.Marshal(statusCard(change))
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	messageID, err := n.sender.SendMessage(ctx, n.receiveIDType, n.receiveID, "interactive", string(card))
	if err != nil {
		return fmt.Errorf("failed to send status notification: %w", err)
	}

	n.logger.Info("Status change notified",
		zap.Int64("request_id", change.RequestID),
		zap.String("to", string(change.Transition.To)),
		zap.String("message_id", messageID))
	return nil
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardElement struct {
	Tag  string   `json:"tag"`
	Text cardText `json:"text"`
}

type card struct {
	Config struct {
		WideScreenMode bool `json:"wide_screen_mode"`
	} `json:"config"`
	Header struct {
		Title    cardText `json:"title"`
		Template string   `json:"template"`
	} `json:"header"`
	Elements []cardElement `json:"elements"`
}

func statusCard(change port.StatusChange) card {
	var c card
	c.Config.WideScreenMode = true
	c.Header.Title = cardText{Tag: "plain_text", Content: fmt.Sprintf("Procurement request #%d: %s", change.RequestID, change.Transition.To)}
	c.Header.Template = headerColor(change.Transition.To)

	tr := change.Transition
	body := fmt.Sprintf("**%s**\nRequestor: %s\nStatus: %s → **%s**\nChanged by: %s at %s",
		change.Title,
		change.Requestor,
		tr.From,
		tr.To,
		tr.ChangedBy,
		tr.ChangedAt.UTC().Format(time.RFC3339))
	c.Elements = []cardElement{{Tag: "div", Text: cardText{Tag: "lark_md", Content: body}}}
	return c
}

func headerColor(s workflow.Status) string {
	switch s {
	case workflow.StatusInProgress:
		return "orange"
	case workflow.StatusClosed:
		return "green"
	default:
		return "blue"
	}
}

// NopNotifier discards notifications
type NopNotifier struct{}

func (NopNotifier) NotifyStatusChange(ctx context.Context, change port.StatusChange) error {
	return nil
}

var (
	_ port.StatusNotifier = (*Notifier)(nil)
	_ port.StatusNotifier = NopNotifier{}
)
