package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

type mockSender struct {
	SendFunc func(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error)
}

func (m *mockSender) SendMessage(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
	return m.SendFunc(ctx, receiveIDType, receiveID, msgType, content)
}

func sampleChange() port.StatusChange {
	return port.StatusChange{
		RequestID: 7,
		Title:     `Adobe "Creative" Cloud`,
		Requestor: "Jane Doe",
		Transition: workflow.Transition{
			From:      workflow.StatusOpen,
			To:        workflow.StatusClosed,
			ChangedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			ChangedBy: "bob",
			Changed:   true,
		},
	}
}

func TestNotifier_SendsCard(t *testing.T) {
	var gotType, gotID, gotMsgType, gotContent string
	sender := &mockSender{SendFunc: func(ctx context.Context, receiveIDType, receiveID, msgType, content string) (string, error) {
		gotType, gotID, gotMsgType, gotContent = receiveIDType, receiveID, msgType, content
		return "om_1", nil
	}}
	n := NewNotifier(sender, "", "oc_procurement", zap.NewNop())

	err := n.NotifyStatusChange(context.Background(), sampleChange())
	require.NoError(t, err)

	assert.Equal(t, "chat_id", gotType)
	assert.Equal(t, "oc_procurement", gotID)
	assert.Equal(t, "interactive", gotMsgType)

	var c card
	require.NoError(t, json.Unmarshal([]byte(gotContent), &c), "content must be valid JSON even with quotes in the title")
	assert.Equal(t, "green", c.Header.Template)
	assert.Contains(t, c.Header.Title.Content, "#7")
	require.Len(t, c.Elements, 1)
	assert.Contains(t, c.Elements[0].Text.Content, `Adobe "Creative" Cloud`)
	assert.Contains(t, c.Elements[0].Text.Content, "Changed by: bob at 2026-03-01T09:30:00Z")
}

func TestNotifier_SendFailure(t *testing.T) {
	sender := &mockSender{SendFunc: func(context.Context, string, string, string, string) (string, error) {
		return "", errors.New("API error: code=99991663")
	}}
	n := NewNotifier(sender, "open_id", "ou_x", zap.NewNop())

	err := n.NotifyStatusChange(context.Background(), sampleChange())

	assert.Error(t, err)
}

func TestHeaderColor(t *testing.T) {
	assert.Equal(t, "blue", headerColor(workflow.StatusOpen))
	assert.Equal(t, "orange", headerColor(workflow.StatusInProgress))
	assert.Equal(t, "green", headerColor(workflow.StatusClosed))
}
