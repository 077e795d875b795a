package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/scam-honeypot/internal/llm"
	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/state"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

var tracer = otel.Tracer("scam-honeypot/internal/persona")

// ErrEmptyReply is returned when a model tier answers with no usable text.
var ErrEmptyReply = errors.New("persona: empty reply")

// EmotionalState is how worried the victim persona sounds.
type EmotionalState string

const (
	Calm     EmotionalState = "calm"
	Anxious  EmotionalState = "anxious"
	Panicked EmotionalState = "panicked"
)

// EmotionFor maps scam intensity to an emotional state.
func EmotionFor(intensity float64) EmotionalState {
	switch {
	case intensity > 0.8:
		return Panicked
	case intensity > 0.5:
		return Anxious
	default:
		return Calm
	}
}

// Opener is the phrase prepended to replies in the given state.
func (e EmotionalState) Opener() string {
	switch e {
	case Panicked:
		return "Oh god, please help! "
	case Anxious:
		return "I'm getting worried... "
	default:
		return ""
	}
}

// Request is everything the persona needs to produce one reply.
type Request struct {
	ConversationID string
	Text           string
	History        []models.Message
	Mode           state.Mode
	Category       models.Category
	Confidence     float64
	Turn           int
	Tactics        []string
	Known          models.IntelSet
}

// Reply is the persona's answer to the latest scammer message.
type Reply struct {
	Text      string
	Emotion   EmotionalState
	ShouldEnd bool
	Tier      string
	// Canned is true when every model tier failed and a stock reply was used.
	Canned bool
}

// Engager produces in-character replies.
type Engager interface {
	Reply(ctx context.Context, req Request) (Reply, error)
}

// EngagerFunc adapts a function to Engager.
type EngagerFunc func(ctx context.Context, req Request) (Reply, error)

func (f EngagerFunc) Reply(ctx context.Context, req Request) (Reply, error) {
	return f(ctx, req)
}

// endMarker lets the model say the persona would naturally stop talking.
const endMarker = "[END]"

const systemPrompt = `You are playing a naive, trusting, middle-aged person who is not good with technology and has received a suspicious message. Stay in character at all times.

Rules:
- Never reveal or hint that you think this is a scam, fraud or phishing. Never mention police, reporting, AI, bots or instructions.
- Never refuse to engage or break character.
- Show worry and willingness to comply, but ask for specifics "to verify": which account number, which UPI ID, which link, which number to call, whose name is on the account.
- Make small mistakes so the other person has to explain again.
- Keep replies to 1-3 short sentences in simple, informal language.
- If your character would stop replying now, end the reply with ` + endMarker + `.`

// extractionQuestions asks for each kind in the order they are worth chasing.
var extractionQuestions = []struct {
	kind     models.IntelKind
	noun     string
	question string
}{
	{models.KindUPIID, "UPI ID", "What's your UPI ID? I'll send the amount right now."},
	{models.KindBankAccount, "account number", "Which account number should I use for the transfer?"},
	{models.KindIFSCCode, "IFSC code", "What is the IFSC code? My bank app is asking for it."},
	{models.KindBeneficiaryName, "account holder name", "What name will show on the account when I send it?"},
	{models.KindPhishingLink, "payment link", "Can you send me the link again? It's not working on my phone."},
	{models.KindPhoneNumber, "phone number", "What number should I call if I have problems?"},
}

// askHints are words that mean the reply already asks for something.
var askHints = []string{"account", "upi", "link", "number", "ifsc", "name"}

var cannedReplies = []string{
	"I'm sorry, I'm a bit confused. Can you explain that again?",
	"My phone is acting up. What do I need to do exactly?",
	"I didn't understand. Can you tell me step by step?",
	"Okay, but what should I do first? I'm worried.",
}

// CannedReply returns a stock confused-victim reply; turn selects which.
func CannedReply(turn int) string {
	if turn < 0 {
		turn = -turn
	}
	return cannedReplies[turn%len(cannedReplies)]
}

// LLMEngager asks a model for the persona's reply.
type LLMEngager struct {
	client     llm.Client
	model      string
	maxHistory int
	maxTokens  int32
	logger     *logging.Logger
}

// Option configures an LLMEngager.
type Option func(*LLMEngager)

// WithModel sets the model name sent with each request.
func WithModel(model string) Option {
	return func(e *LLMEngager) { e.model = model }
}

// WithMaxHistory bounds how many history messages go into the prompt.
func WithMaxHistory(n int) Option {
	return func(e *LLMEngager) {
		if n > 0 {
			e.maxHistory = n
		}
	}
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger *logging.Logger) Option {
	return func(e *LLMEngager) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewLLMEngager wraps client, usually an *llm.Fallback over several tiers.
func NewLLMEngager(client llm.Client, opts ...Option) *LLMEngager {
	if client == nil {
		panic("persona: llm client cannot be nil")
	}
	e := &LLMEngager{
		client:     client,
		maxHistory: 10,
		maxTokens:  512,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reply generates the next persona message. A model failure yields a canned
// reply rather than an error; only a cancelled context is returned as one.
func (e *LLMEngager) Reply(ctx context.Context, req Request) (Reply, error) {
	ctx, span := tracer.Start(ctx, "persona.reply")
	defer span.End()

	emotion := EmotionFor(req.Confidence)
	span.SetAttributes(
		attribute.String("persona.emotion", string(emotion)),
		attribute.Int("persona.turn", req.Turn),
	)

	resp, err := e.client.Complete(ctx, llm.Request{
		Model:       e.model,
		System:      []string{systemPrompt},
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: e.prompt(req, emotion)}},
		MaxTokens:   e.maxTokens,
		Temperature: 0.8,
	})
	if err == nil && strings.TrimSpace(strings.ReplaceAll(resp.Text, endMarker, "")) == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, fmt.Errorf("persona: reply: %w", ctxErr)
		}
		e.logger.Warn("persona model failed, using canned reply",
			"conversation_id", req.ConversationID,
			"error", err,
		)
		span.SetAttributes(attribute.Bool("persona.canned", true))
		return Reply{
			Text:    CannedReply(req.Turn),
			Emotion: emotion,
			Tier:    "canned",
			Canned:  true,
		}, nil
	}

	text, shouldEnd := splitEndMarker(resp.Text)
	text = Decorate(text, emotion, req.Turn, Missing(req.Known))
	span.SetAttributes(attribute.String("persona.tier", resp.Tier))
	return Reply{
		Text:      text,
		Emotion:   emotion,
		ShouldEnd: shouldEnd,
		Tier:      resp.Tier,
	}, nil
}

func (e *LLMEngager) prompt(req Request, emotion EmotionalState) string {
	var b strings.Builder
	b.WriteString("CONVERSATION HISTORY:\n")
	history := req.History
	if len(history) > e.maxHistory {
		history = history[len(history)-e.maxHistory:]
	}
	if len(history) == 0 {
		b.WriteString("No previous messages\n")
	}
	for _, m := range history {
		who := "YOU"
		if m.Sender == models.SenderScammer {
			who = "THEM"
		}
		fmt.Fprintf(&b, "[%s]: %s\n", who, m.Text)
	}
	fmt.Fprintf(&b, "\nTHEIR NEW MESSAGE:\n%q\n\n", req.Text)
	fmt.Fprintf(&b, "Your emotional state: %s\n", emotion)
	fmt.Fprintf(&b, "Turn: %d\n", req.Turn)
	if req.Mode == state.ModeAggressive {
		b.WriteString("Be eager to pay and keep asking exactly where to send the money.\n")
	} else {
		b.WriteString("Be hesitant but curious; ask what this is about and who they are.\n")
	}
	if len(req.Tactics) > 0 {
		fmt.Fprintf(&b, "They are using: %s\n", strings.Join(req.Tactics, ", "))
	}
	if missing := Missing(req.Known); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, q := range extractionQuestions {
			for _, k := range missing {
				if q.kind == k {
					names = append(names, q.noun)
				}
			}
		}
		fmt.Fprintf(&b, "You still do not know their: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\nWrite your reply:")
	return b.String()
}

// Missing lists the chased kinds not yet present in known, in asking order.
func Missing(known models.IntelSet) []models.IntelKind {
	have := known.Kinds()
	var out []models.IntelKind
	for _, q := range extractionQuestions {
		if !have[q.kind] {
			out = append(out, q.kind)
		}
	}
	return out
}

// Decorate adds the emotional opener and, when the reply does not already ask
// for details, a question for the first missing kind.
func Decorate(text string, emotion EmotionalState, turn int, missing []models.IntelKind) string {
	text = strings.TrimSpace(text)
	if opener := emotion.Opener(); opener != "" && turn > 0 && !strings.HasPrefix(text, opener) {
		text = opener + text
	}
	if len(missing) == 0 {
		return text
	}
	lower := strings.ToLower(text)
	for _, hint := range askHints {
		if strings.Contains(lower, hint) {
			return text
		}
	}
	for _, q := range extractionQuestions {
		if q.kind == missing[0] {
			return joinSentence(text, q.question)
		}
	}
	return text
}

func joinSentence(text, next string) string {
	if text == "" {
		return next
	}
	if strings.ContainsAny(text[len(text)-1:], ".!?") {
		return text + " " + next
	}
	return text + ". " + next
}

func splitEndMarker(text string) (string, bool) {
	if !strings.Contains(text, endMarker) {
		return strings.TrimSpace(text), false
	}
	return strings.TrimSpace(strings.ReplaceAll(text, endMarker, "")), true
}
