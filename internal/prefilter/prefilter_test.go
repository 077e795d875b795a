package prefilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/patterns"
)

func TestEvaluate(t *testing.T) {
	f := New(patterns.Default())

	tests := []struct {
		name     string
		text     string
		verdict  Verdict
		category models.Category
	}{
		{
			name:     "lottery with processing fee",
			text:     "Congratulations! You won ₹50 lakhs in the KBC lucky draw. Send ₹5000 processing fee to claim.",
			verdict:  ObviousScam,
			category: models.CategoryLotteryReward,
		},
		{
			name:     "account block threat without payment request",
			text:     "Your bank account will be blocked today. Verify immediately.",
			verdict:  Uncertain,
			category: models.CategoryBankImpersonation,
		},
		{
			name:     "benign follow-up",
			text:     "Thanks, I will check with my bank branch tomorrow.",
			verdict:  ObviousSafe,
			category: models.CategoryNone,
		},
		{
			name:     "short acknowledgement",
			text:     "Ok sir, thank you!",
			verdict:  ObviousSafe,
			category: models.CategoryNone,
		},
		{
			name:     "acknowledgement followed by account details",
			text:     "Ok sir. Account number 50100123456789, IFSC HDFC0001234",
			verdict:  Uncertain,
			category: models.CategoryNone,
		},
		{
			name:     "benign signal with a payment destination",
			text:     "Thanks, I will check with my bank branch. Meanwhile note 50100123456789",
			verdict:  Uncertain,
			category: models.CategoryNone,
		},
		{
			name:     "benign and scam signals tie to uncertain",
			text:     "Thanks, I will check with the branch. Your KYC is pending, pay ₹10 verification fee today.",
			verdict:  Uncertain,
			category: models.CategoryKYCUpdate,
		},
		{
			name:     "nothing recognizable",
			text:     "hello who is this",
			verdict:  Uncertain,
			category: models.CategoryNone,
		},
		{
			name:     "empty",
			text:     "   ",
			verdict:  Uncertain,
			category: models.CategoryNone,
		},
		{
			name:     "payment request alone is not obvious",
			text:     "please send 5000 to me",
			verdict:  Uncertain,
			category: models.CategoryNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Evaluate(tt.text)
			assert.Equal(t, tt.verdict, res.Verdict)
			assert.Equal(t, tt.category, res.Category)
		})
	}
}

func TestEvaluateFullWidthDigits(t *testing.T) {
	f := New(nil)
	// Full-width digits fold to ASCII before matching.
	res := f.Evaluate("You won a lottery! Pay ５０００ registration fee now")
	assert.Equal(t, ObviousScam, res.Verdict)
	assert.Contains(t, res.Signals, "payment:fee")
}

func TestEvaluateIsDeterministic(t *testing.T) {
	f := New(nil)
	text := "URGENT: your account is suspended. Share OTP immediately"
	first := f.Evaluate(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, f.Evaluate(text))
	}
}

func TestCombinedScoreCompounds(t *testing.T) {
	assert.InDelta(t, 0.0, combinedScore(nil), 1e-9)
	assert.InDelta(t, 0.8, combinedScore([]patterns.Hit{{Weight: 0.8}}), 1e-9)
	assert.InDelta(t, 0.9, combinedScore([]patterns.Hit{{Weight: 0.8}, {Weight: 0.4}}), 1e-9)
	assert.InDelta(t, 1.0, combinedScore([]patterns.Hit{{Weight: 0.9}, {Weight: 0.9}, {Weight: 0.9}}), 1e-9)
}

func TestDisengaged(t *testing.T) {
	f := New(nil)
	tests := []struct {
		text string
		want bool
	}{
		{"I know you are police, stop messaging me", true},
		{"Stop texting me.", true},
		{"Don't call me again", true},
		{"I'm blocking you", true},
		{"Ok bye", true},
		{"Goodbye!", true},
		{"Are you a bot?", true},
		{"send the amount now", false},
		{"Stop wasting my time. Pay the fee to scammer@paytm right now or your account is blocked.", false},
		{"You are wasting my time, sir. Send it now", false},
		{"Forget it, just pay the 500 rupees", false},
		{"Pay now and say bye to this problem", false},
		{"Don't call me, message on WhatsApp only", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			name, ok := f.Disengaged(tt.text)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.NotEmpty(t, name)
			}
		})
	}
}

func TestEvaluateAcknowledgementDoesNotHideAccount(t *testing.T) {
	res := New(nil).Evaluate("Ok sir. Account number 50100123456789, IFSC HDFC0001234")
	assert.NotEqual(t, ObviousSafe, res.Verdict)
	assert.NotContains(t, res.Signals, "benign:gratitude")
}
