package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandoffNotifier delivers a handoff request to whatever channel the
// deployment uses to reach human operators. Delivery failures do not fail
// the tool call: the request record is still returned to the agent.
type HandoffNotifier interface {
	Notify(ctx context.Context, request HandoffRequest) error
}

// HandoffRequest is the structured record of a human-handoff ask.
type HandoffRequest struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"`
	Urgency     string    `json:"urgency"`
	Summary     string    `json:"summary,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Handoff escalates the conversation to a human operator.
type Handoff struct {
	notifier HandoffNotifier
	logger   *zap.Logger
}

// NewHandoff creates the human-handoff tool. notifier may be nil.
func NewHandoff(notifier HandoffNotifier, logger *zap.Logger) *Handoff {
	return &Handoff{notifier: notifier, logger: logger}
}

func (h *Handoff) Name() string { return "human_handoff" }

func (h *Handoff) Description() string {
	return "Request that a human operator take over, with a reason and urgency (low, normal, high)"
}

func (h *Handoff) Validate(params map[string]any) error {
	if cfgString(params, "reason") == "" {
		return fmt.Errorf("reason is required")
	}
	switch urgency := cfgString(params, "urgency"); urgency {
	case "", "low", "normal", "high":
	default:
		return fmt.Errorf("invalid urgency %q", urgency)
	}
	return nil
}

func (h *Handoff) Execute(ctx context.Context, params, _ map[string]any) (any, error) {
	urgency := cfgString(params, "urgency")
	if urgency == "" {
		urgency = "normal"
	}
	request := HandoffRequest{
		ID:          uuid.New().String(),
		Reason:      cfgString(params, "reason"),
		Urgency:     urgency,
		Summary:     cfgString(params, "summary"),
		RequestedAt: time.Now().UTC(),
	}

	if h.notifier != nil {
		if err := h.notifier.Notify(ctx, request); err != nil {
			h.logger.Warn("handoff notification failed",
				zap.String("id", request.ID), zap.Error(err))
		}
	}

	h.logger.Info("human handoff requested",
		zap.String("id", request.ID),
		zap.String("urgency", request.Urgency))
	return map[string]any{
		"status":  "pending",
		"request": request,
	}, nil
}
