package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// ConversationEvent represents a structured event in the honeypot turn pipeline.
// All events share the same base fields for easy filtering/grep.
type ConversationEvent struct {
	Time           string         `json:"time"`
	Event          string         `json:"event"`
	ConversationID string         `json:"conversation_id"`
	Data           map[string]any `json:"data,omitempty"`
}

// EventLogger emits structured JSON events at each decision point of a turn:
//
//	grep '"event":"mode_changed"' /var/log/app.log
//	grep '"conversation_id":"3f2a..."' /var/log/app.log
type EventLogger struct {
	logger *logging.Logger
}

// NewEventLogger creates a new conversation event logger.
func NewEventLogger(logger *logging.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Log emits a structured conversation event.
func (e *EventLogger) Log(_ context.Context, event, convID string, data map[string]any) {
	if e == nil || e.logger == nil {
		return
	}
	evt := ConversationEvent{
		Time:           time.Now().UTC().Format(time.RFC3339Nano),
		Event:          event,
		ConversationID: convID,
		Data:           data,
	}
	b, _ := json.Marshal(evt)
	e.logger.Info(string(b))
}

func (e *EventLogger) MessageReceived(ctx context.Context, convID string, sender models.Sender, message string, historyLen int) {
	msg := message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	e.Log(ctx, "message_received", convID, map[string]any{
		"sender":      sender,
		"message":     msg,
		"history_len": historyLen,
	})
}

func (e *EventLogger) Prefiltered(ctx context.Context, convID, verdict string, category models.Category, signals []string) {
	e.Log(ctx, "prefiltered", convID, map[string]any{
		"verdict":  verdict,
		"category": category,
		"signals":  signals,
	})
}

func (e *EventLogger) ClassifierDegraded(ctx context.Context, convID string, err error) {
	e.Log(ctx, "classifier_degraded", convID, map[string]any{
		"error": err.Error(),
	})
}

func (e *EventLogger) ModeChanged(ctx context.Context, convID, from, to string, confidence float64) {
	e.Log(ctx, "mode_changed", convID, map[string]any{
		"from":       from,
		"to":         to,
		"confidence": confidence,
	})
}

func (e *EventLogger) IntelligenceExtracted(ctx context.Context, convID string, items []models.IntelItem) {
	if len(items) == 0 {
		return
	}
	kinds := make([]string, 0, len(items))
	for _, it := range items {
		kinds = append(kinds, string(it.Kind))
	}
	e.Log(ctx, "intelligence_extracted", convID, map[string]any{
		"count": len(items),
		"kinds": kinds,
	})
}

func (e *EventLogger) DisclosureCaught(ctx context.Context, convID string, blocked bool, reasons []string) {
	e.Log(ctx, "disclosure_caught", convID, map[string]any{
		"blocked": blocked,
		"reasons": reasons,
	})
}

func (e *EventLogger) ConversationTerminated(ctx context.Context, convID, reason string, turns int, items int) {
	e.Log(ctx, "conversation_terminated", convID, map[string]any{
		"exit_reason": reason,
		"turns":       turns,
		"items":       items,
	})
}

func (e *EventLogger) ReportDelivered(ctx context.Context, convID string, err error) {
	data := map[string]any{"ok": err == nil}
	if err != nil {
		data["error"] = err.Error()
	}
	e.Log(ctx, "report_delivered", convID, data)
}
