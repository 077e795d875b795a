package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/scam-honeypot/internal/llm"
	"github.com/wolfman30/scam-honeypot/internal/models"
)

type SemanticInput struct {
	Text    string
	History []models.Message
}

// Candidate is an unvalidated proposal from a semantic extractor.
type Candidate struct {
	Kind  models.IntelKind
	Value string
	Label string
}

// SemanticExtractor proposes candidates a fixed recognizer would miss, such
// as numbers spelled out in words or split across lines.
type SemanticExtractor interface {
	Extract(ctx context.Context, in SemanticInput) ([]Candidate, error)
}

// SemanticFunc adapts a function to SemanticExtractor.
type SemanticFunc func(ctx context.Context, in SemanticInput) ([]Candidate, error)

func (f SemanticFunc) Extract(ctx context.Context, in SemanticInput) ([]Candidate, error) {
	return f(ctx, in)
}

const semanticPrompt = `Extract every payment or contact detail the sender of the LAST message wants
the recipient to use. Include numbers written in words or split with spaces, and write them
in plain digits. Do not invent values.

Answer with JSON only:
{"items":[{"kind":"<bank_account|upi_id|phone_number|ifsc_code|beneficiary_name|bank_name|phishing_link|whatsapp_number|email|other>","value":"<value>","label":"<short label, only for other>"}]}`

// LLMExtractor asks a chat model for candidates.
type LLMExtractor struct {
	client     llm.Client
	model      string
	maxHistory int
}

func NewLLMExtractor(client llm.Client, model string) *LLMExtractor {
	if client == nil {
		panic("extraction: llm client cannot be nil")
	}
	return &LLMExtractor{client: client, model: model, maxHistory: 4}
}

func (x *LLMExtractor) Extract(ctx context.Context, in SemanticInput) ([]Candidate, error) {
	var b strings.Builder
	history := in.History
	if len(history) > x.maxHistory {
		history = history[len(history)-x.maxHistory:]
	}
	for _, m := range history {
		fmt.Fprintf(&b, "[%s] %s\n", m.Sender, strings.TrimSpace(m.Text))
	}
	fmt.Fprintf(&b, "[LAST] %s", strings.TrimSpace(in.Text))

	resp, err := x.client.Complete(ctx, llm.Request{
		Model:       x.model,
		System:      []string{semanticPrompt},
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: b.String()}},
		MaxTokens:   400,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction: semantic completion: %w", err)
	}
	return ParseCandidates(resp.Text)
}

// ParseCandidates reads the extractor's JSON answer. Unknown kinds are kept so
// that validation can reject and count them.
func ParseCandidates(text string) ([]Candidate, error) {
	doc, err := llm.ExtractJSON(text)
	if err != nil {
		return nil, fmt.Errorf("extraction: semantic answer: %w", err)
	}
	var out []Candidate
	for _, item := range doc.Get("items").Array() {
		value := strings.TrimSpace(item.Get("value").String())
		if value == "" {
			continue
		}
		kind, ok := models.ParseKind(item.Get("kind").String())
		if !ok {
			kind = models.IntelKind(strings.ToLower(strings.TrimSpace(item.Get("kind").String())))
		}
		out = append(out, Candidate{Kind: kind, Value: value, Label: strings.TrimSpace(item.Get("label").String())})
	}
	return out, nil
}
