package persona

import (
	"regexp"
	"strings"
)

// DisclosureResult is the outcome of scanning a persona reply before it is sent.
type DisclosureResult struct {
	// Risk is true when the reply would tell the scammer they have been detected.
	Risk bool
	// Reasons lists the signals that fired.
	Reasons []string
	// Sanitized is the cleaned reply, or empty when the reply must not be sent.
	Sanitized string
}

// Blocked reports whether the reply has to be suppressed entirely.
func (r DisclosureResult) Blocked() bool {
	return r.Risk && r.Sanitized == ""
}

type disclosurePattern struct {
	re     *regexp.Regexp
	reason string
	block  bool // false: the matching sentence can be dropped instead
}

var disclosurePatterns = []disclosurePattern{
	// Calling out the scam
	{regexp.MustCompile(`(?i)\b(you('re| are)|this is|that('s| is)|sounds like|must be)\s+(a |an |so )?(obvious(ly)? |total |complete )?(scam|fraud|phishing|con)\b`), "disclosure:accusation", true},
	{regexp.MustCompile(`(?i)\byou('re| are) (a |an )?(scammer|fraudster|con ?artist|cheat|thief)\b`), "disclosure:accusation", true},
	{regexp.MustCompile(`(?i)\bi (know|can tell|realise|realize|figured out) (what )?(you('re| are)|this is) (doing|up to|fake|a scam|a fraud)\b`), "disclosure:detection", true},
	{regexp.MustCompile(`(?i)\bnice try\b`), "disclosure:detection", true},

	// Threats to report
	{regexp.MustCompile(`(?i)\b(report(ed|ing)?|complain(ed|ing)?)\b[^.!?]{0,40}\b(police|cyber ?cell|cybercrime|authorities|1930)\b`), "disclosure:report_threat", true},
	{regexp.MustCompile(`(?i)\b(cyber ?crime|cyber ?cell)\b`), "disclosure:report_threat", true},

	// Revealing the operation
	{regexp.MustCompile(`(?i)\bhoney ?pot\b`), "disclosure:operation", true},
	{regexp.MustCompile(`(?i)\b(scam|fraud) (detection|baiting|baiter)\b`), "disclosure:operation", true},
	{regexp.MustCompile(`(?i)\b(gathering|collecting|extracting) (intelligence|intel|evidence)\b`), "disclosure:operation", true},
	{regexp.MustCompile(`(?i)\bmy (system\s+)?(prompt|instructions?)\b`), "disclosure:instructions", true},

	// AI identity can be dropped sentence-wise
	{regexp.MustCompile(`(?i)\b(i('m| am)|as) (a|an) (AI|artificial intelligence|language model|LLM|chatbot|chat bot|bot|virtual assistant)\b`), "disclosure:ai_identity", false},
}

var aiSentence = regexp.MustCompile(`(?i)[^.!?]*\b(i('m| am)|as) (a|an) (AI|artificial intelligence|language model|LLM|chatbot|chat bot|bot|virtual assistant)\b[^.!?]*[.!?]?\s*`)

// ScanDisclosure checks a reply for anything that gives the game away.
func ScanDisclosure(reply string) DisclosureResult {
	if strings.TrimSpace(reply) == "" {
		return DisclosureResult{Sanitized: reply}
	}

	var reasons []string
	block := false
	seen := make(map[string]bool)
	for _, p := range disclosurePatterns {
		if !p.re.MatchString(reply) {
			continue
		}
		if !seen[p.reason] {
			seen[p.reason] = true
			reasons = append(reasons, p.reason)
		}
		if p.block {
			block = true
		}
	}

	if len(reasons) == 0 {
		return DisclosureResult{Sanitized: reply}
	}

	result := DisclosureResult{Risk: true, Reasons: reasons}
	if !block {
		result.Sanitized = sanitize(reply)
	}
	return result
}

func sanitize(reply string) string {
	return strings.TrimSpace(aiSentence.ReplaceAllString(reply, ""))
}
