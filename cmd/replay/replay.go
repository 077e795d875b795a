package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wolfman30/scam-honeypot/internal/conversation"
	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/report"
)

type processor interface {
	ProcessMessage(ctx context.Context, req conversation.Request) (*report.Response, error)
}

type replayOptions struct {
	session string
	pretty  bool
	start   time.Time
}

type turnOutput struct {
	Turn     int              `json:"turn"`
	Message  string           `json:"message"`
	Response *report.Response `json:"response"`
}

// loadTranscript accepts a JSON array of messages or one scammer message per line.
func loadTranscript(r io.Reader) ([]models.Message, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("transcript is empty")
	}

	if trimmed[0] == '[' {
		var msgs []models.Message
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		return msgs, nil
	}

	var msgs []models.Message
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		msgs = append(msgs, models.Message{Sender: models.SenderScammer, Text: line})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}
	return msgs, nil
}

// replay sends each scammer message as a turn, carrying the growing history.
// Messages authored by the user side are only used as history.
func replay(ctx context.Context, proc processor, msgs []models.Message, opts replayOptions, out io.Writer) error {
	start := opts.start
	if start.IsZero() {
		start = time.Now().UTC()
	}
	enc := json.NewEncoder(out)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}

	var history []models.Message
	turn := 0
	for i, msg := range msgs {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = start.Add(time.Duration(i) * time.Second)
		}
		if msg.Sender != models.SenderScammer {
			history = append(history, msg)
			continue
		}
		turn++
		resp, err := proc.ProcessMessage(ctx, conversation.Request{
			SessionID:           opts.session,
			Message:             msg,
			ConversationHistory: append([]models.Message(nil), history...),
		})
		if err != nil {
			return fmt.Errorf("turn %d: %w", turn, err)
		}
		if err := enc.Encode(turnOutput{Turn: turn, Message: msg.Text, Response: resp}); err != nil {
			return fmt.Errorf("write turn %d: %w", turn, err)
		}

		history = append(history, msg)
		if resp.AgentResponse != nil {
			history = append(history, models.Message{
				Sender:    models.SenderUser,
				Text:      *resp.AgentResponse,
				Timestamp: msg.Timestamp.Add(500 * time.Millisecond),
			})
		}
	}
	if turn == 0 {
		return errors.New("transcript has no scammer messages")
	}
	return nil
}
