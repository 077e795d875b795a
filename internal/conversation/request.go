package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wolfman30/scam-honeypot/internal/models"
)

// Request is one incoming message plus the caller-held conversation context.
type Request struct {
	SessionID           string           `json:"sessionId,omitempty" validate:"omitempty,max=128"`
	Message             models.Message   `json:"message"`
	ConversationHistory []models.Message `json:"conversationHistory" validate:"omitempty,max=500,dive"`
	Metadata            *models.Metadata `json:"metadata,omitempty"`
}

// ValidationError reports a malformed request. Nothing is mutated when it is returned.
type ValidationError struct {
	Fields []string
	msg    string
}

func (e *ValidationError) Error() string {
	return "conversation: invalid request: " + e.msg
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request shape.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return &ValidationError{Fields: fields, msg: strings.Join(msgs, "; ")}
		}
		return &ValidationError{msg: err.Error()}
	}
	if strings.TrimSpace(r.Message.Text) == "" {
		return &ValidationError{Fields: []string{"Request.Message.Text"}, msg: "message text is blank"}
	}
	return nil
}

// ConversationID returns the caller's session id, or a stable hash of the
// earliest history entry (the current message when history is empty).
func ConversationID(r Request) string {
	if id := strings.TrimSpace(r.SessionID); id != "" {
		return id
	}
	anchor := r.Message
	if len(r.ConversationHistory) > 0 {
		anchor = r.ConversationHistory[0]
	}
	sum := sha256.Sum256([]byte(string(anchor.Sender) + "|" + anchor.Text + "|" + anchor.Timestamp.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}
