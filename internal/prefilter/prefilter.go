package prefilter

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/patterns"
)

// Verdict is the pre-filter's decision for one message.
type Verdict string

const (
	ObviousScam Verdict = "OBVIOUS_SCAM"
	ObviousSafe Verdict = "OBVIOUS_SAFE"
	Uncertain   Verdict = "UNCERTAIN"
)

// minScamScore is the lexicon score needed, together with a payment request,
// to call a message an obvious scam without asking the classifier.
const minScamScore = 0.7

// Result contains the verdict plus the signals that produced it.
type Result struct {
	Verdict  Verdict
	Category models.Category
	// Score is the combined scam-lexicon score (max weight, +0.1 per extra signal, capped at 1).
	Score   float64
	Signals []string
}

// Filter applies the library's obvious-signal recognizers.
type Filter struct {
	lib *patterns.Library
}

// New creates a filter over lib.
func New(lib *patterns.Library) *Filter {
	if lib == nil {
		lib = patterns.Default()
	}
	return &Filter{lib: lib}
}

// Evaluate classifies text. It has no side effects.
func (f *Filter) Evaluate(text string) Result {
	text = Normalize(text)
	if text == "" {
		return Result{Verdict: Uncertain, Category: models.CategoryNone}
	}

	scam := f.lib.Match(patterns.GroupScam, text)
	payment := f.lib.Match(patterns.GroupPayment, text)
	benign := f.lib.Match(patterns.GroupBenign, text)

	res := Result{
		Verdict:  Uncertain,
		Category: dominantCategory(scam),
		Score:    combinedScore(scam),
	}
	for _, group := range [][]patterns.Hit{scam, payment, benign} {
		for _, h := range group {
			res.Signals = append(res.Signals, h.Name)
		}
	}

	switch {
	case len(benign) > 0 && len(scam) == 0 && len(payment) == 0:
		if dest := f.paymentDestinations(text); len(dest) > 0 {
			res.Signals = append(res.Signals, dest...)
			break
		}
		res.Verdict = ObviousSafe
	case len(benign) == 0 && len(payment) > 0 && res.Score >= minScamScore:
		res.Verdict = ObviousScam
	}
	return res
}

// paymentDestinations names the account and UPI recognizers that fire on
// text. A message carrying one is never judged obviously safe.
func (f *Filter) paymentDestinations(text string) []string {
	var names []string
	for _, r := range f.lib.Recognizers() {
		if r.Kind != models.KindBankAccount && r.Kind != models.KindUPIID {
			continue
		}
		if len(r.Find(text)) > 0 {
			names = append(names, r.Name)
		}
	}
	return names
}

// Disengaged reports whether text matches a scammer disengagement pattern.
func (f *Filter) Disengaged(text string) (string, bool) {
	hits := f.lib.Match(patterns.GroupDisengage, Normalize(text))
	if len(hits) == 0 {
		return "", false
	}
	return hits[0].Name, true
}

// Normalize folds compatibility characters (full-width digits, ligatures)
// and trims surrounding space.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

func combinedScore(hits []patterns.Hit) float64 {
	maxWeight := 0.0
	for _, h := range hits {
		if h.Weight > maxWeight {
			maxWeight = h.Weight
		}
	}
	score := maxWeight
	if len(hits) > 1 {
		score += float64(len(hits)-1) * 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// dominantCategory picks the category of the heaviest specific signal.
func dominantCategory(hits []patterns.Hit) models.Category {
	best := models.CategoryNone
	bestWeight := -1.0
	for _, h := range hits {
		if h.Category == models.CategoryOther || h.Category == models.CategoryNone {
			continue
		}
		if h.Weight > bestWeight {
			best, bestWeight = h.Category, h.Weight
		}
	}
	if best == models.CategoryNone && len(hits) > 0 {
		return models.CategoryOther
	}
	return best
}
