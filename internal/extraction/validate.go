package extraction

import (
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"

	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/patterns"
)

// Rejection reasons.
const (
	ReasonLength          = "length"
	ReasonNotNumeric      = "not_numeric"
	ReasonRepeatedDigits  = "repeated_digits"
	ReasonChecksum        = "checksum"
	ReasonPhoneShaped     = "phone_shaped"
	ReasonBenignMessage   = "benign_message"
	ReasonUnknownProvider = "unknown_upi_provider"
	ReasonMalformed       = "malformed"
	ReasonIFSCFifthChar   = "ifsc_fifth_char"
	ReasonTrustedDomain   = "trusted_domain"
	ReasonNameShape       = "name_shape"
	ReasonUnknownBank     = "unknown_bank"
	ReasonUnknownKind     = "unknown_kind"
)

var (
	ifscRe      = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	upiRe       = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,255}@[a-z][a-z0-9]{1,63}$`)
	nameWordRe  = regexp.MustCompile(`^[A-Z][a-zA-Z.]*$`)
	spaceRunRe  = regexp.MustCompile(`\s+`)
	nameStopSet = map[string]bool{
		"ifsc": true, "upi": true, "bank": true, "account": true, "a/c": true, "no": true,
		"number": true, "branch": true, "and": true, "sir": true, "madam": true, "mobile": true,
		"phone": true, "please": true, "pay": true, "send": true, "transfer": true,
	}
)

// Validators hold the per-kind acceptance rules. They share one pattern
// library so allow-lists stay in a single place.
type Validators struct {
	lib *patterns.Library
}

func NewValidators(lib *patterns.Library) *Validators {
	if lib == nil {
		lib = patterns.Default()
	}
	return &Validators{lib: lib}
}

// Context carries what a validator may need beyond the candidate itself.
type Context struct {
	// Before is the message text preceding the candidate.
	Before string
	// Benign is set when the pre-filter judged the message obviously safe.
	Benign bool
}

// Validate normalizes raw as kind. It returns the normalized value, or the
// rejection reason.
func (v *Validators) Validate(kind models.IntelKind, raw string, c Context) (string, string) {
	switch kind {
	case models.KindBankAccount:
		return v.BankAccount(raw, c)
	case models.KindUPIID:
		return v.UPI(raw)
	case models.KindPhoneNumber, models.KindWhatsAppNumber:
		return Phone(raw)
	case models.KindIFSCCode:
		return IFSC(raw)
	case models.KindEmail:
		return v.Email(raw)
	case models.KindPhishingLink:
		return v.PhishingLink(raw)
	case models.KindBankName:
		return v.BankName(raw)
	case models.KindBeneficiaryName:
		return BeneficiaryName(raw)
	case models.KindOther:
		value := strings.TrimSpace(spaceRunRe.ReplaceAllString(raw, " "))
		if value == "" {
			return "", ReasonMalformed
		}
		return value, ""
	default:
		return "", ReasonUnknownKind
	}
}

// BankAccount accepts 9-18 digits once spaces and hyphens are removed.
func (v *Validators) BankAccount(raw string, c Context) (string, string) {
	if c.Benign {
		return "", ReasonBenignMessage
	}
	digits := stripSeparators(raw)
	if digits == "" || !isDigits(digits) {
		return "", ReasonNotNumeric
	}
	if len(digits) < 9 || len(digits) > 18 {
		return "", ReasonLength
	}
	if allSame(digits) {
		return "", ReasonRepeatedDigits
	}
	hasContext := v.lib.HasAccountContext(c.Before)
	if !hasContext && (phoneShaped(digits) || strings.HasSuffix(strings.TrimRight(c.Before, " "), "+")) {
		return "", ReasonPhoneShaped
	}
	if check := v.lib.AccountChecksum(); check != nil && !check(digits) {
		return "", ReasonChecksum
	}
	return digits, ""
}

// UPI accepts local@provider when provider is allow-listed.
func (v *Validators) UPI(raw string) (string, string) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if !upiRe.MatchString(value) {
		return "", ReasonMalformed
	}
	provider := value[strings.LastIndexByte(value, '@')+1:]
	if !v.lib.IsUPIProvider(provider) {
		return "", ReasonUnknownProvider
	}
	return value, ""
}

// Phone canonicalizes an Indian mobile number to +91XXXXXXXXXX.
func Phone(raw string) (string, string) {
	digits := stripSeparators(strings.TrimPrefix(strings.TrimSpace(raw), "+"))
	digits = strings.NewReplacer("(", "", ")", "", ".", "").Replace(digits)
	if !isDigits(digits) {
		return "", ReasonNotNumeric
	}
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", ReasonLength
	}
	if digits[0] < '6' || digits[0] > '9' {
		return "", ReasonMalformed
	}
	if allSame(digits) {
		return "", ReasonRepeatedDigits
	}
	return "+91" + digits, ""
}

// IFSC accepts four letters, a literal zero and six alphanumerics.
func IFSC(raw string) (string, string) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if len(value) != 11 {
		return "", ReasonLength
	}
	if !ifscRe.MatchString(value) {
		if value[4] != '0' {
			return "", ReasonIFSCFifthChar
		}
		return "", ReasonMalformed
	}
	return value, ""
}

// Email accepts an RFC 5322 address with a dotted domain.
func (v *Validators) Email(raw string) (string, string) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", ReasonMalformed
	}
	value := strings.ToLower(addr.Address)
	at := strings.LastIndexByte(value, '@')
	if at <= 0 {
		return "", ReasonMalformed
	}
	domain := value[at+1:]
	if !strings.Contains(domain, ".") || v.lib.IsUPIProvider(domain) {
		return "", ReasonMalformed
	}
	return value, ""
}

// PhishingLink normalizes a URL-shaped token and keeps it unless its domain
// is trusted. A trusted domain still counts when a subdomain label, or the
// path on a hosting domain, carries a deceptive keyword. Links are never fetched.
func (v *Validators) PhishingLink(raw string) (string, string) {
	candidate := strings.TrimRight(strings.TrimSpace(raw), ".,;:!?)]}'\"")
	if candidate == "" {
		return "", ReasonMalformed
	}
	lower := strings.ToLower(candidate)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" {
		return "", ReasonMalformed
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return "", ReasonMalformed
	}

	if net.ParseIP(host) == nil {
		if _, err := publicsuffix.EffectiveTLDPlusOne(host); err != nil {
			return "", ReasonMalformed
		}
		if !v.lib.IsShortener(host) {
			if _, deceptive := v.deceptiveKeyword(host, u.Path); !deceptive && v.lib.IsTrustedDomain(host) {
				return "", ReasonTrustedDomain
			}
		}
	}

	normalized := strings.ToLower(u.Scheme) + "://" + host
	if port := u.Port(); port != "" {
		normalized += ":" + port
	}
	if path := u.EscapedPath(); path != "" && path != "/" {
		normalized += path
	}
	if u.RawQuery != "" {
		normalized += "?" + u.RawQuery
	}
	return normalized, ""
}

// LinkRisk explains why a link is suspicious. It assumes the link already
// passed PhishingLink.
func (v *Validators) LinkRisk(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "unparseable"
	}
	host := u.Hostname()
	switch {
	case net.ParseIP(host) != nil:
		return "ip_host"
	case v.lib.IsShortener(host):
		return "shortener"
	}
	if kw, ok := v.deceptiveKeyword(host, u.Path); ok {
		return "deceptive_keyword:" + kw
	}
	return "untrusted_domain"
}

// deceptiveKeyword looks for a deceptive keyword in the part of host an
// attacker controls: the labels left of a trusted domain, or the whole host
// otherwise. Hosting domains are judged by their path.
func (v *Validators) deceptiveKeyword(host, path string) (string, bool) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if v.lib.IsHostingDomain(host) {
		return v.lib.DeceptiveKeyword(path)
	}
	if trusted, ok := v.lib.TrustedSuffix(host); ok {
		if host == trusted {
			return "", false
		}
		return v.lib.DeceptiveKeyword(strings.TrimSuffix(host, "."+trusted))
	}
	return v.lib.DeceptiveKeyword(host)
}

// BankName resolves a mention against the bank lexicon.
func (v *Validators) BankName(raw string) (string, string) {
	hits := v.lib.MatchBankNames(raw)
	if len(hits) == 0 {
		return "", ReasonUnknownBank
	}
	return hits[0].Canonical, ""
}

// BeneficiaryName accepts two to four capitalized words, cut at the first
// word that clearly belongs to the surrounding payment instruction.
func BeneficiaryName(raw string) (string, string) {
	fields := strings.Fields(raw)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if nameStopSet[strings.ToLower(strings.Trim(f, ".,"))] {
			break
		}
		kept = append(kept, strings.TrimRight(f, ".,"))
	}
	if len(kept) < 2 || len(kept) > 4 {
		return "", ReasonNameShape
	}
	for i, w := range kept {
		if !nameWordRe.MatchString(w) {
			return "", ReasonNameShape
		}
		kept[i] = titleWord(w)
	}
	return strings.Join(kept, " "), ""
}

func titleWord(w string) string {
	if len(w) <= 3 && strings.ToUpper(w) == w {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func stripSeparators(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.TrimSpace(s))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func allSame(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// phoneShaped reports whether digits look like an Indian mobile number with
// or without the 91/0 prefix.
func phoneShaped(digits string) bool {
	switch {
	case len(digits) == 10:
		return digits[0] >= '6' && digits[0] <= '9'
	case len(digits) == 11 && digits[0] == '0':
		return digits[1] >= '6' && digits[1] <= '9'
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return digits[2] >= '6' && digits[2] <= '9'
	}
	return false
}
