// Package patterns holds the versioned recognizer set shared by the
// pre-filter and the extraction engine. A Library is immutable once built
// and is passed explicitly to its consumers.
package patterns

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/scam-honeypot/internal/models"
)

// DefaultVersion identifies the built-in recognizer set.
const DefaultVersion = "2026.10.2"

// SignalGroup selects one family of message-level signals.
type SignalGroup string

const (
	GroupScam      SignalGroup = "scam"
	GroupPayment   SignalGroup = "payment"
	GroupBenign    SignalGroup = "benign"
	GroupDisengage SignalGroup = "disengage"
)

// Signal is a weighted message-level recognizer.
type Signal struct {
	Name     string
	Category models.Category
	Weight   float64
	re       *regexp.Regexp
}

// Hit is a signal that fired on a message.
type Hit struct {
	Name     string
	Category models.Category
	Weight   float64
}

// Recognizer proposes raw candidates for one intelligence kind.
type Recognizer struct {
	Kind  models.IntelKind
	Name  string
	Label string
	re    *regexp.Regexp
	group int
}

// Span is one raw recognizer match with its byte offsets in the text.
type Span struct {
	Raw   string
	Start int
	End   int
}

// Find returns every non-overlapping match in text.
func (r Recognizer) Find(text string) []Span {
	idx := r.re.FindAllStringSubmatchIndex(text, -1)
	spans := make([]Span, 0, len(idx))
	for _, m := range idx {
		lo, hi := m[2*r.group], m[2*r.group+1]
		if lo < 0 {
			continue
		}
		spans = append(spans, Span{Raw: text[lo:hi], Start: lo, End: hi})
	}
	return spans
}

// BankHit is a bank-name lexicon match.
type BankHit struct {
	Canonical string
	Span
}

type bankName struct {
	canonical string
	re        *regexp.Regexp
}

// Library is the immutable recognizer set.
type Library struct {
	version        string
	signals        map[SignalGroup][]Signal
	recognizers    []Recognizer
	banks          []bankName
	upiProviders   map[string]struct{}
	trustedDomains map[string]struct{}
	hostingDomains map[string]struct{}
	shorteners     map[string]struct{}
	deceptive      []string
	accountContext *regexp.Regexp
	whatsappCtx    *regexp.Regexp
	checksum       func(digits string) bool
}

// Option customizes a Library at construction time.
type Option func(*Library)

// WithAccountChecksum installs an optional bank-account checksum validator.
func WithAccountChecksum(fn func(digits string) bool) Option {
	return func(l *Library) { l.checksum = fn }
}

// WithVersion overrides the library version label.
func WithVersion(v string) Option {
	return func(l *Library) {
		if strings.TrimSpace(v) != "" {
			l.version = v
		}
	}
}

// Version returns the recognizer-set version.
func (l *Library) Version() string { return l.version }

// Match evaluates every signal of group against text.
func (l *Library) Match(group SignalGroup, text string) []Hit {
	var hits []Hit
	for _, s := range l.signals[group] {
		if s.re.MatchString(text) {
			hits = append(hits, Hit{Name: s.Name, Category: s.Category, Weight: s.Weight})
		}
	}
	return hits
}

// Recognizers returns a copy of the intelligence recognizers.
func (l *Library) Recognizers() []Recognizer {
	out := make([]Recognizer, len(l.recognizers))
	copy(out, l.recognizers)
	return out
}

// MatchBankNames finds bank-name mentions. Overlapping mentions collapse to
// the longest one ("State Bank of India" wins over "Bank of India").
func (l *Library) MatchBankNames(text string) []BankHit {
	var hits []BankHit
	for _, b := range l.banks {
		for _, m := range b.re.FindAllStringIndex(text, -1) {
			hits = append(hits, BankHit{Canonical: b.canonical, Span: Span{Raw: text[m[0]:m[1]], Start: m[0], End: m[1]}})
		}
	}
	out := hits[:0:0]
	for i, h := range hits {
		covered := false
		for j, o := range hits {
			if i == j {
				continue
			}
			longer := (o.End - o.Start) > (h.End - h.Start)
			if longer && o.Start <= h.Start && o.End >= h.End {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, h)
		}
	}
	return out
}

// IsUPIProvider reports whether handle is an allow-listed UPI provider.
func (l *Library) IsUPIProvider(handle string) bool {
	_, ok := l.upiProviders[strings.ToLower(handle)]
	return ok
}

// IsTrustedDomain reports whether host or any parent domain is allow-listed.
func (l *Library) IsTrustedDomain(host string) bool {
	_, ok := l.TrustedSuffix(host)
	return ok
}

// TrustedSuffix returns the most specific allow-listed domain that host is
// equal to or a subdomain of.
func (l *Library) TrustedSuffix(host string) (string, bool) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for host != "" {
		if _, ok := l.trustedDomains[host]; ok {
			return host, true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return "", false
}

// IsHostingDomain reports whether host serves user-published pages under a
// trusted domain (sites.google.com), where only the path tells pages apart.
func (l *Library) IsHostingDomain(host string) bool {
	_, ok := l.hostingDomains[strings.TrimSuffix(strings.ToLower(host), ".")]
	return ok
}

// IsShortener reports whether host is a known URL shortener.
func (l *Library) IsShortener(host string) bool {
	_, ok := l.shorteners[strings.ToLower(host)]
	return ok
}

// DeceptiveKeyword returns the first deceptive keyword contained in s.
func (l *Library) DeceptiveKeyword(s string) (string, bool) {
	s = strings.ToLower(s)
	for _, kw := range l.deceptive {
		if strings.Contains(s, kw) {
			return kw, true
		}
	}
	return "", false
}

// HasAccountContext reports whether the text right before a number names a
// bank account ("a/c", "account no:").
func (l *Library) HasAccountContext(before string) bool {
	return l.accountContext.MatchString(tail(before, 40))
}

// HasWhatsAppContext reports whether the text right before a number mentions WhatsApp.
func (l *Library) HasWhatsAppContext(before string) bool {
	return l.whatsappCtx.MatchString(tail(before, 40))
}

// AccountChecksum returns the optional checksum hook, nil when unset.
func (l *Library) AccountChecksum() func(string) bool { return l.checksum }

// tail returns at most the last n bytes of s, starting on a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}

func setOf(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return m
}
