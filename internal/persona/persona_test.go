package persona

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/scam-honeypot/internal/llm"
	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/state"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

func TestEmotionFor(t *testing.T) {
	assert.Equal(t, Calm, EmotionFor(0.3))
	assert.Equal(t, Calm, EmotionFor(0.5))
	assert.Equal(t, Anxious, EmotionFor(0.6))
	assert.Equal(t, Anxious, EmotionFor(0.8))
	assert.Equal(t, Panicked, EmotionFor(0.95))
	assert.Equal(t, "", Calm.Opener())
	assert.Equal(t, "Oh god, please help! ", Panicked.Opener())
}

func TestMissingFollowsAskingOrder(t *testing.T) {
	var known models.IntelSet
	known.Merge([]models.IntelItem{{Kind: models.KindUPIID, Value: "a@ybl"}})
	missing := Missing(known)
	require.NotEmpty(t, missing)
	assert.Equal(t, models.KindBankAccount, missing[0])
	assert.NotContains(t, missing, models.KindUPIID)
}

func TestDecorate(t *testing.T) {
	t.Run("adds opener and question", func(t *testing.T) {
		got := Decorate("Okay I will do it", Anxious, 2, []models.IntelKind{models.KindUPIID})
		assert.Equal(t, "I'm getting worried... Okay I will do it. What's your UPI ID? I'll send the amount right now.", got)
	})
	t.Run("keeps question punctuation", func(t *testing.T) {
		got := Decorate("What should I do?", Calm, 1, []models.IntelKind{models.KindPhoneNumber})
		assert.Equal(t, "What should I do? What number should I call if I have problems?", got)
	})
	t.Run("reply already asks", func(t *testing.T) {
		got := Decorate("Which account do I send to?", Calm, 1, []models.IntelKind{models.KindUPIID})
		assert.Equal(t, "Which account do I send to?", got)
	})
	t.Run("no opener on first turn", func(t *testing.T) {
		got := Decorate("Hello?", Panicked, 0, nil)
		assert.Equal(t, "Hello?", got)
	})
	t.Run("opener not doubled", func(t *testing.T) {
		got := Decorate("Oh god, please help! What now?", Panicked, 3, nil)
		assert.Equal(t, "Oh god, please help! What now?", got)
	})
}

func TestLLMEngagerReply(t *testing.T) {
	var captured llm.Request
	client := llm.ClientFunc(func(_ context.Context, req llm.Request) (llm.Response, error) {
		captured = req
		return llm.Response{Text: "  Which account number should I use?  ", Tier: "primary"}, nil
	})
	eng := NewLLMEngager(client, WithModel("m"), WithMaxHistory(2), WithLogger(logging.Discard()))

	reply, err := eng.Reply(context.Background(), Request{
		Text: "Pay the fee now",
		History: []models.Message{
			{Sender: models.SenderScammer, Text: "first"},
			{Sender: models.SenderUser, Text: "second"},
			{Sender: models.SenderScammer, Text: "third"},
		},
		Mode:       state.ModeAggressive,
		Confidence: 0.9,
		Turn:       2,
		Tactics:    []string{"urgency"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Oh god, please help! Which account number should I use?", reply.Text)
	assert.Equal(t, Panicked, reply.Emotion)
	assert.Equal(t, "primary", reply.Tier)
	assert.False(t, reply.ShouldEnd)
	assert.False(t, reply.Canned)

	assert.Equal(t, "m", captured.Model)
	require.Len(t, captured.Messages, 1)
	prompt := captured.Messages[0].Content
	assert.NotContains(t, prompt, "first")
	assert.Contains(t, prompt, "[YOU]: second")
	assert.Contains(t, prompt, "[THEM]: third")
	assert.Contains(t, prompt, "panicked")
	assert.Contains(t, prompt, "urgency")
	assert.Contains(t, prompt, "You still do not know their: UPI ID, account number")
	assert.Contains(t, captured.System[0], "Never reveal")
}

func TestLLMEngagerShouldEnd(t *testing.T) {
	client := llm.ClientFunc(func(context.Context, llm.Request) (llm.Response, error) {
		return llm.Response{Text: "Okay bye, my son says I should go. [END]"}, nil
	})
	known := models.IntelSet{}
	for _, q := range extractionQuestions {
		known.Merge([]models.IntelItem{{Kind: q.kind, Value: string(q.kind)}})
	}
	reply, err := NewLLMEngager(client, WithLogger(logging.Discard())).Reply(context.Background(), Request{Confidence: 0.2, Known: known})
	require.NoError(t, err)
	assert.True(t, reply.ShouldEnd)
	assert.Equal(t, "Okay bye, my son says I should go.", reply.Text)
}

func TestLLMEngagerFallsBackToCanned(t *testing.T) {
	tests := []struct {
		name string
		resp llm.Response
		err  error
	}{
		{"model error", llm.Response{}, errors.New("throttled")},
		{"empty text", llm.Response{Text: "   "}, nil},
		{"only marker", llm.Response{Text: "[END]"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.ClientFunc(func(context.Context, llm.Request) (llm.Response, error) {
				return tt.resp, tt.err
			})
			reply, err := NewLLMEngager(client, WithLogger(logging.Discard())).Reply(context.Background(), Request{Turn: 1})
			require.NoError(t, err)
			assert.True(t, reply.Canned)
			assert.Equal(t, CannedReply(1), reply.Text)
			assert.Equal(t, "canned", reply.Tier)
		})
	}
}

func TestLLMEngagerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := llm.ClientFunc(func(ctx context.Context, _ llm.Request) (llm.Response, error) {
		return llm.Response{}, ctx.Err()
	})
	_, err := NewLLMEngager(client, WithLogger(logging.Discard())).Reply(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCannedReplyCycles(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < len(cannedReplies); i++ {
		seen[CannedReply(i)] = true
	}
	assert.Len(t, seen, len(cannedReplies))
	assert.Equal(t, CannedReply(1), CannedReply(-1))
}

func TestNewLLMEngagerPanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewLLMEngager(nil) })
}

