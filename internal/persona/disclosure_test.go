package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanDisclosure(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantRisk   bool
		wantReason string
	}{
		// In-character replies
		{"worried victim", "Oh no, I don't want my account blocked! What should I do?", false, ""},
		{"asks for upi", "Which UPI ID should I send the 500 rupees to?", false, ""},
		{"asks if real", "Is this really from the bank? My son handles these things.", false, ""},
		{"confused word con", "This is confusing, can you explain slowly?", false, ""},
		{"empty reply", "", false, ""},

		// Calling it out
		{"this is a scam", "This is a scam, I'm not sending anything.", true, "disclosure:accusation"},
		{"you are a scammer", "You are a scammer!", true, "disclosure:accusation"},
		{"sounds like fraud", "That sounds like fraud to me.", true, "disclosure:accusation"},
		{"i know what you're doing", "I know what you're doing.", true, "disclosure:detection"},
		{"nice try", "Nice try buddy.", true, "disclosure:detection"},

		// Threats
		{"report to police", "I have reported this number to the police.", true, "disclosure:report_threat"},
		{"cyber cell", "My nephew works at the cyber cell.", true, "disclosure:report_threat"},
		{"helpline", "I'm complaining to 1930 right now.", true, "disclosure:report_threat"},

		// Operation
		{"honeypot", "This account is a honeypot.", true, "disclosure:operation"},
		{"collecting evidence", "I am just collecting evidence from you.", true, "disclosure:operation"},
		{"instructions", "My instructions say to keep you talking.", true, "disclosure:instructions"},

		// AI identity (sanitizable)
		{"as an AI", "As an AI I cannot send money. Which account is it?", true, "disclosure:ai_identity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScanDisclosure(tt.reply)
			if !tt.wantRisk {
				assert.False(t, result.Risk, "expected no disclosure for: %s (reasons: %v)", tt.reply, result.Reasons)
				assert.Equal(t, tt.reply, result.Sanitized)
				return
			}
			assert.True(t, result.Risk, "expected disclosure for: %s", tt.reply)
			found := false
			for _, r := range result.Reasons {
				if strings.Contains(r, tt.wantReason) {
					found = true
					break
				}
			}
			assert.True(t, found, "expected reason %q in %v", tt.wantReason, result.Reasons)
		})
	}
}

func TestScanDisclosureBlocksOrSanitizes(t *testing.T) {
	blocked := ScanDisclosure("You are a scammer and I reported you to the police.")
	assert.True(t, blocked.Blocked())
	assert.Empty(t, blocked.Sanitized)

	cleaned := ScanDisclosure("I'm an AI assistant. Which account should I use?")
	assert.True(t, cleaned.Risk)
	assert.False(t, cleaned.Blocked())
	assert.Equal(t, "Which account should I use?", cleaned.Sanitized)

	onlyAI := ScanDisclosure("I am a chatbot.")
	assert.True(t, onlyAI.Blocked())
}

func TestScanDisclosureDedupsReasons(t *testing.T) {
	res := ScanDisclosure("This is a scam. You are a fraudster.")
	assert.Equal(t, []string{"disclosure:accusation"}, res.Reasons)
}
