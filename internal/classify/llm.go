package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/scam-honeypot/internal/llm"
	"github.com/wolfman30/scam-honeypot/internal/models"
)

var tracer = otel.Tracer("honeypot/classify")

const defaultMaxHistory = 8

const systemPrompt = `You are a fraud analyst reviewing messages received by an Indian mobile user.
Decide whether the conversation is a scam attempt (bank/KYC impersonation, lottery or reward,
fake job, investment, tech support, parcel/customs, government or police threats, romance,
sextortion, utility disconnection, phishing).

Answer with a single JSON object and nothing else:
{"isScam": <bool>, "confidence": <number 0..1, probability the conversation is a scam>,
 "category": "<one of: bank_impersonation, kyc_update, lottery_reward, job_offer, investment,
 tech_support, delivery, government_impersonation, romance, sextortion, utility_disconnection,
 phishing, other, none>", "tactics": ["<short tactic names>"]}`

// LLMClassifier asks a chat model for a judgment and parses its JSON answer.
type LLMClassifier struct {
	client     llm.Client
	model      string
	maxHistory int
}

// LLMOption configures an LLMClassifier.
type LLMOption func(*LLMClassifier)

// WithModel pins the model id sent with each request.
func WithModel(model string) LLMOption {
	return func(c *LLMClassifier) { c.model = model }
}

// WithMaxHistory limits how many history messages are included in the prompt.
func WithMaxHistory(n int) LLMOption {
	return func(c *LLMClassifier) {
		if n >= 0 {
			c.maxHistory = n
		}
	}
}

func NewLLMClassifier(client llm.Client, opts ...LLMOption) *LLMClassifier {
	if client == nil {
		panic("classify: llm client cannot be nil")
	}
	c := &LLMClassifier{client: client, maxHistory: defaultMaxHistory}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LLMClassifier) Classify(ctx context.Context, in Input) (Judgment, error) {
	ctx, span := tracer.Start(ctx, "classify.llm")
	defer span.End()

	if err := validateInput(in); err != nil {
		return Judgment{}, err
	}

	resp, err := c.client.Complete(ctx, llm.Request{
		Model:       c.model,
		System:      []string{systemPrompt},
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: c.renderPrompt(in)}},
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Judgment{}, ctxErr
		}
		return Judgment{}, fmt.Errorf("%w: %w", ErrAdapterFailure, err)
	}

	j, err := ParseJudgment(resp.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unparseable answer")
		return Judgment{}, fmt.Errorf("%w: %w", ErrAdapterFailure, err)
	}
	j.Tier = resp.Tier
	span.SetAttributes(
		attribute.Bool("classify.is_scam", j.IsScam),
		attribute.Float64("classify.confidence", j.RawConfidence),
		attribute.String("classify.category", string(j.Category)),
	)
	return j, nil
}

func (c *LLMClassifier) renderPrompt(in Input) string {
	var b strings.Builder
	if in.Metadata.Channel != "" || in.Metadata.Language != "" {
		fmt.Fprintf(&b, "Channel: %s. Language: %s.\n", orUnknown(in.Metadata.Channel), orUnknown(in.Metadata.Language))
	}
	history := in.History
	if c.maxHistory >= 0 && len(history) > c.maxHistory {
		history = history[len(history)-c.maxHistory:]
	}
	if len(history) > 0 {
		b.WriteString("Earlier messages (oldest first):\n")
		for _, m := range history {
			fmt.Fprintf(&b, "[%s] %s\n", m.Sender, strings.TrimSpace(m.Text))
		}
	}
	b.WriteString("Latest message from the other party:\n")
	b.WriteString(strings.TrimSpace(in.Text))
	return b.String()
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}

// ParseJudgment reads a model answer. A missing or out-of-range confidence is
// rejected with ErrMalformedAnswer rather than guessed.
func ParseJudgment(text string) (Judgment, error) {
	doc, err := llm.ExtractJSON(text)
	if err != nil {
		return Judgment{}, fmt.Errorf("%w: %w", ErrMalformedAnswer, err)
	}

	conf := doc.Get("confidence")
	if !conf.Exists() {
		conf = doc.Get("scamProbability")
	}
	if !conf.Exists() || conf.Type != gjson.Number {
		return Judgment{}, fmt.Errorf("%w: confidence missing or not a number", ErrMalformedAnswer)
	}
	value := conf.Float()
	if value < 0 || value > 1 {
		return Judgment{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformedAnswer, value)
	}

	j := Judgment{RawConfidence: value, IsScam: value >= 0.5}
	if isScam := doc.Get("isScam"); isScam.Type == gjson.True || isScam.Type == gjson.False {
		j.IsScam = isScam.Bool()
	}

	j.Category = models.ParseCategory(doc.Get("category").String())
	if j.IsScam && j.Category == models.CategoryNone {
		j.Category = models.CategoryOther
	}
	if !j.IsScam {
		j.Category = models.CategoryNone
	}

	for _, tactic := range doc.Get("tactics").Array() {
		if t := strings.TrimSpace(tactic.String()); t != "" {
			j.Tactics = append(j.Tactics, t)
		}
	}
	return j, nil
}
