// Package extraction pulls payment identifiers, contact handles and phishing
// links out of scammer messages. Every candidate, whether proposed by a
// pattern recognizer or by the semantic extractor, goes through the same
// per-kind validators before it can reach a report.
package extraction

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/patterns"
	"github.com/wolfman30/scam-honeypot/internal/prefilter"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

var tracer = otel.Tracer("honeypot/extraction")

// Source names where a candidate came from.
const (
	SourcePattern  = "pattern"
	SourceSemantic = "semantic"
)

type Input struct {
	Text    string
	History []models.Message
	Turn    int
	Verdict prefilter.Verdict
}

// Rejection records a candidate that failed validation.
type Rejection struct {
	Kind   models.IntelKind
	Raw    string
	Reason string
	Source string
}

// Result is one turn's extraction output. Items are validated and unique
// within the turn; merging into a conversation is done with models.IntelSet.
type Result struct {
	Items    []models.IntelItem
	Rejected []Rejection
	// SemanticErr is set when the semantic extractor failed or timed out;
	// its contribution is then simply absent.
	SemanticErr error
}

// Append adds other's items and rejections, keeping first-seen identity.
func (r *Result) Append(other Result) {
	seen := make(map[string]bool, len(r.Items))
	for _, it := range r.Items {
		seen[it.Key()] = true
	}
	for _, it := range other.Items {
		if seen[it.Key()] {
			continue
		}
		seen[it.Key()] = true
		r.Items = append(r.Items, it)
	}
	r.Rejected = append(r.Rejected, other.Rejected...)
	if other.SemanticErr != nil {
		r.SemanticErr = other.SemanticErr
	}
}

type Engine struct {
	lib        *patterns.Library
	validators *Validators
	semantic   SemanticExtractor
	timeout    time.Duration
	logger     *logging.Logger
}

type Option func(*Engine)

// WithSemantic adds an external extractor bounded by timeout.
func WithSemantic(s SemanticExtractor, timeout time.Duration) Option {
	return func(e *Engine) {
		e.semantic = s
		e.timeout = timeout
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(lib *patterns.Library, opts ...Option) *Engine {
	if lib == nil {
		lib = patterns.Default()
	}
	e := &Engine{
		lib:        lib,
		validators: NewValidators(lib),
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validators exposes the engine's validators.
func (e *Engine) Validators() *Validators {
	return e.validators
}

// HasSemantic reports whether an external extractor is configured.
func (e *Engine) HasSemantic() bool {
	return e.semantic != nil
}

// Extract runs the recognizers and then the semantic extractor.
func (e *Engine) Extract(ctx context.Context, in Input) Result {
	res := e.Patterns(in)
	res.Append(e.Semantic(ctx, in))
	return res
}

// Patterns runs only the deterministic recognizers.
func (e *Engine) Patterns(in Input) Result {
	text := prefilter.Normalize(in.Text)
	vctx := Context{Benign: in.Verdict == prefilter.ObviousSafe}
	var res Result
	seen := map[string]bool{}

	accept := func(kind models.IntelKind, raw, label string, before string) {
		c := vctx
		c.Before = before
		value, reason := e.validators.Validate(kind, raw, c)
		if reason != "" {
			res.Rejected = append(res.Rejected, Rejection{Kind: kind, Raw: raw, Reason: reason, Source: SourcePattern})
			e.logger.Debug("extraction candidate rejected", "kind", kind, "reason", reason, "source", SourcePattern)
			return
		}
		item := models.IntelItem{Kind: kind, Value: value, RawValue: strings.TrimSpace(raw), SourceTurn: in.Turn, Label: label}
		if kind == models.KindOther {
			item.Value = normalizeOther(label, value)
		}
		if seen[item.Key()] {
			return
		}
		seen[item.Key()] = true
		res.Items = append(res.Items, item)
	}

	spans := e.findSpans(text)
	for _, sp := range spans {
		if sp.skip {
			continue
		}
		kind := sp.rec.Kind
		if kind == models.KindPhoneNumber && e.lib.HasWhatsAppContext(text[:sp.Start]) {
			kind = models.KindWhatsAppNumber
		}
		accept(kind, sp.Raw, sp.rec.Label, text[:sp.Start])
	}

	for _, hit := range e.lib.MatchBankNames(text) {
		if hit.Start > 0 && strings.ContainsRune("@./", rune(text[hit.Start-1])) {
			continue
		}
		if covered(spans, hit.Start, hit.End, models.KindEmail, models.KindPhishingLink, models.KindUPIID) {
			continue
		}
		accept(models.KindBankName, hit.Raw, "", text[:hit.Start])
	}
	return res
}

type foundSpan struct {
	patterns.Span
	rec  patterns.Recognizer
	skip bool
}

// findSpans runs every recognizer and marks spans that another, more specific
// recognizer already owns.
func (e *Engine) findSpans(text string) []foundSpan {
	var spans []foundSpan
	for _, rec := range e.lib.Recognizers() {
		for _, sp := range rec.Find(text) {
			spans = append(spans, foundSpan{Span: sp, rec: rec})
		}
	}

	for i := range spans {
		sp := &spans[i]
		switch sp.rec.Kind {
		case models.KindUPIID:
			// local@provider.tld is an email address.
			if rest := text[sp.End:]; len(rest) > 1 && rest[0] == '.' && isLetter(rest[1]) {
				sp.skip = true
			}
		case models.KindPhishingLink:
			if strings.HasSuffix(sp.rec.Name, "bare_domain") {
				if covered(spans, sp.Start, sp.End, models.KindEmail, models.KindUPIID) ||
					coveredByName(spans, sp.Start, sp.End, "phishing_link:url") ||
					(sp.Start > 0 && text[sp.Start-1] == '@') ||
					(sp.End < len(text) && text[sp.End] == '@') {
					sp.skip = true
				}
			}
		case models.KindPhoneNumber:
			if covered(spans, sp.Start, sp.End, models.KindPhishingLink, models.KindWhatsAppNumber) ||
				e.lib.HasAccountContext(text[:sp.Start]) {
				sp.skip = true
			}
		case models.KindBankAccount:
			if covered(spans, sp.Start, sp.End, models.KindPhishingLink, models.KindWhatsAppNumber, models.KindEmail, models.KindUPIID) ||
				coveredByLabel(spans, sp.Start, sp.End, "reference_id", "officer_id", "amount_mentioned") ||
				(covered(spans, sp.Start, sp.End, models.KindPhoneNumber) && !e.lib.HasAccountContext(text[:sp.Start])) {
				sp.skip = true
			}
		case models.KindIFSCCode:
			// Eleven-letter words are ordinary prose, not malformed codes.
			if !strings.ContainsAny(sp.Raw, "0123456789") ||
				covered(spans, sp.Start, sp.End, models.KindPhishingLink, models.KindEmail, models.KindUPIID) {
				sp.skip = true
			}
		}
	}
	return spans
}

func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

func covered(spans []foundSpan, start, end int, kinds ...models.IntelKind) bool {
	for _, o := range spans {
		for _, k := range kinds {
			if o.rec.Kind == k && overlaps(start, end, o.Start, o.End) {
				return true
			}
		}
	}
	return false
}

func coveredByName(spans []foundSpan, start, end int, name string) bool {
	for _, o := range spans {
		if o.rec.Name == name && overlaps(start, end, o.Start, o.End) {
			return true
		}
	}
	return false
}

func coveredByLabel(spans []foundSpan, start, end int, labels ...string) bool {
	for _, o := range spans {
		for _, l := range labels {
			if o.rec.Label == l && overlaps(start, end, o.Start, o.End) {
				return true
			}
		}
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func normalizeOther(label, value string) string {
	switch label {
	case "amount_mentioned":
		v := strings.ToLower(strings.ReplaceAll(value, ",", ""))
		return "INR " + strings.Join(strings.Fields(v), " ")
	case "reference_id", "officer_id":
		return strings.ToUpper(value)
	case "apk_file":
		return strings.ToLower(value)
	default:
		return value
	}
}

// Semantic runs only the external extractor. Its candidates pass the same
// validators as pattern matches.
func (e *Engine) Semantic(ctx context.Context, in Input) Result {
	if e.semantic == nil {
		return Result{}
	}
	ctx, span := tracer.Start(ctx, "extraction.semantic")
	defer span.End()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	candidates, err := e.semantic.Extract(ctx, SemanticInput{Text: in.Text, History: in.History})
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("semantic extraction unavailable", "error", err.Error())
		return Result{SemanticErr: err}
	}

	text := prefilter.Normalize(in.Text)
	base := Context{Benign: in.Verdict == prefilter.ObviousSafe}
	var res Result
	seen := map[string]bool{}
	for _, cand := range candidates {
		raw := prefilter.Normalize(strings.TrimSpace(cand.Value))
		c := base
		if idx := strings.Index(text, raw); idx >= 0 {
			c.Before = text[:idx]
		}
		value, reason := e.validators.Validate(cand.Kind, raw, c)
		if reason != "" {
			res.Rejected = append(res.Rejected, Rejection{Kind: cand.Kind, Raw: raw, Reason: reason, Source: SourceSemantic})
			e.logger.Debug("extraction candidate rejected", "kind", cand.Kind, "reason", reason, "source", SourceSemantic)
			continue
		}
		label := ""
		if cand.Kind == models.KindOther {
			label = strings.TrimSpace(cand.Label)
			if label == "" {
				label = "semantic"
			}
			value = normalizeOther(label, value)
		}
		item := models.IntelItem{Kind: cand.Kind, Value: value, RawValue: raw, SourceTurn: in.Turn, Label: label}
		if seen[item.Key()] {
			continue
		}
		seen[item.Key()] = true
		res.Items = append(res.Items, item)
	}
	span.SetAttributes(attribute.Int("extraction.semantic.accepted", len(res.Items)), attribute.Int("extraction.semantic.rejected", len(res.Rejected)))
	return res
}
