package tool

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type recordingNotifier struct {
	got HandoffRequest
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, req HandoffRequest) error {
	n.got = req
	return n.err
}

func TestHandoffRequest(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewHandoff(notifier, zap.NewNop())

	result, err := h.Execute(context.Background(), map[string]any{
		"reason":  "customer requested a human",
		"urgency": "high",
		"summary": "billing dispute over invoice 1042",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := result.(map[string]any)
	if out["status"] != "pending" {
		t.Errorf("expected pending, got %v", out["status"])
	}
	req := out["request"].(HandoffRequest)
	if req.ID == "" || req.Urgency != "high" {
		t.Errorf("unexpected request: %+v", req)
	}
	if notifier.got.Reason != "customer requested a human" {
		t.Errorf("notifier not invoked with request, got %+v", notifier.got)
	}
}

func TestHandoffDefaultUrgency(t *testing.T) {
	h := NewHandoff(nil, zap.NewNop())
	result, err := h.Execute(context.Background(),
		map[string]any{"reason": "stuck"}, nil)
	if err != nil {
		t.Fatalf("nil notifier must be fine: %v", err)
	}
	req := result.(map[string]any)["request"].(HandoffRequest)
	if req.Urgency != "normal" {
		t.Errorf("expected default urgency normal, got %q", req.Urgency)
	}
}

func TestHandoffNotifierFailureIsNotFatal(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	h := NewHandoff(notifier, zap.NewNop())

	result, err := h.Execute(context.Background(),
		map[string]any{"reason": "escalate"}, nil)
	if err != nil {
		t.Fatalf("notifier failure must not fail the tool: %v", err)
	}
	if result.(map[string]any)["status"] != "pending" {
		t.Errorf("expected pending despite delivery failure, got %v", result)
	}
}

func TestHandoffValidation(t *testing.T) {
	h := NewHandoff(nil, zap.NewNop())
	if err := h.Validate(map[string]any{}); err == nil {
		t.Error("expected error for missing reason")
	}
	if err := h.Validate(map[string]any{"reason": "x", "urgency": "apocalyptic"}); err == nil {
		t.Error("expected error for invalid urgency")
	}
}
