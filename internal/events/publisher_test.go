package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldpilot/internal/model"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestPublishSubjectAndPayload(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, "")

	entry := model.JournalEntry{
		ID:     "e-1",
		Result: model.WorkflowResult{Intent: model.IntentSwap, Status: model.StatusApprovalSubmitted, TxHash: "0xabc"},
	}
	require.NoError(t, p.Publish(context.Background(), entry))
	require.Equal(t, []string{"yieldpilot.results.swap.approval_submitted"}, conn.subjects)

	var decoded model.JournalEntry
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	require.Equal(t, "0xabc", decoded.Result.TxHash)
}

func TestSubjectForFailures(t *testing.T) {
	p := NewPublisher(&recordingConn{}, "pilot")
	failed := model.JournalEntry{Err: "boom", Result: model.WorkflowResult{Intent: model.IntentDeposit, Status: model.StatusQuoted}}
	require.Equal(t, "pilot.deposit.error", p.Subject(failed))

	bare := model.JournalEntry{Result: model.WorkflowResult{Intent: model.IntentPlan}}
	require.Equal(t, "pilot.plan.unknown", p.Subject(bare))
}

func TestPublishError(t *testing.T) {
	p := NewPublisher(&recordingConn{err: errors.New("closed")}, "pilot")
	err := p.Publish(context.Background(), model.JournalEntry{Result: model.WorkflowResult{Intent: model.IntentBridge, Status: model.StatusExecuted}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "pilot.bridge.executed")
}
