package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/patterns"
)

func TestValidators_BankAccount(t *testing.T) {
	v := NewValidators(nil)
	tests := []struct {
		name   string
		raw    string
		ctx    Context
		want   string
		reason string
	}{
		{name: "spaced", raw: "1234 5678 9012", want: "123456789012"},
		{name: "hyphenated", raw: "1234-5678-9012", want: "123456789012"},
		{name: "five digits", raw: "12345", reason: ReasonLength},
		{name: "too long", raw: "1234567890123456789", reason: ReasonLength},
		{name: "letters", raw: "12345678A", reason: ReasonNotNumeric},
		{name: "repeated", raw: "1111111111", reason: ReasonRepeatedDigits},
		{name: "mobile shaped", raw: "9876543210", reason: ReasonPhoneShaped},
		{name: "mobile shaped with context", raw: "9876543210", ctx: Context{Before: "my A/C no: "}, want: "9876543210"},
		{name: "after plus", raw: "123456789012", ctx: Context{Before: "call +"}, reason: ReasonPhoneShaped},
		{name: "benign message", raw: "50100234567891", ctx: Context{Benign: true}, reason: ReasonBenignMessage},
		{name: "grouped with check digits", raw: "1234 5678 9012 34", want: "12345678901234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := v.BankAccount(tt.raw, tt.ctx)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidators_BankAccountChecksum(t *testing.T) {
	lib := patterns.Default(patterns.WithAccountChecksum(func(d string) bool { return strings.HasSuffix(d, "7") }))
	v := NewValidators(lib)

	_, reason := v.BankAccount("123456789012", Context{})
	assert.Equal(t, ReasonChecksum, reason)

	got, reason := v.BankAccount("123456789017", Context{})
	assert.Empty(t, reason)
	assert.Equal(t, "123456789017", got)
}

func TestPhone(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		reason string
	}{
		{raw: "+91 98765 43210", want: "+919876543210"},
		{raw: "+91-98765-43210", want: "+919876543210"},
		{raw: "919876543210", want: "+919876543210"},
		{raw: "09876543210", want: "+919876543210"},
		{raw: "98765 43210", want: "+919876543210"},
		{raw: "12345", reason: ReasonLength},
		{raw: "5876543210", reason: ReasonMalformed},
		{raw: "9999999999", reason: ReasonRepeatedDigits},
		{raw: "98765abcde", reason: ReasonNotNumeric},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, reason := Phone(tt.raw)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIFSC(t *testing.T) {
	got, reason := IFSC("sbin0001234")
	assert.Empty(t, reason)
	assert.Equal(t, "SBIN0001234", got)

	_, reason = IFSC("SBIN1234567")
	assert.Equal(t, ReasonIFSCFifthChar, reason)

	_, reason = IFSC("SB1N0001234")
	assert.Equal(t, ReasonMalformed, reason)

	_, reason = IFSC("SBIN000123")
	assert.Equal(t, ReasonLength, reason)
}

func TestValidators_UPIAndEmail(t *testing.T) {
	v := NewValidators(nil)

	got, reason := v.UPI("Scammer@PayTM")
	assert.Empty(t, reason)
	assert.Equal(t, "scammer@paytm", got)

	_, reason = v.UPI("someone@unknownbank")
	assert.Equal(t, ReasonUnknownProvider, reason)

	_, reason = v.UPI("no-at-sign")
	assert.Equal(t, ReasonMalformed, reason)

	got, reason = v.Email("Refund.Help@Gmail.com")
	assert.Empty(t, reason)
	assert.Equal(t, "refund.help@gmail.com", got)

	_, reason = v.Email("scammer@paytm")
	assert.Equal(t, ReasonMalformed, reason)

	_, reason = v.Email("Someone <a@b.com>")
	assert.Equal(t, ReasonMalformed, reason)
}

func TestValidators_PhishingLink(t *testing.T) {
	v := NewValidators(nil)
	tests := []struct {
		raw    string
		want   string
		reason string
		risk   string
	}{
		{raw: "http://sbi-kyc-update.xyz/login?id=5", want: "http://sbi-kyc-update.xyz/login?id=5", risk: "deceptive_keyword:kyc"},
		{raw: "https://Secure-Login.example.xyz/Path.", want: "https://secure-login.example.xyz/Path", risk: "deceptive_keyword:secure"},
		{raw: "bit.ly/abc123", want: "http://bit.ly/abc123", risk: "shortener"},
		{raw: "http://192.168.10.5/pay", want: "http://192.168.10.5/pay", risk: "ip_host"},
		{raw: "www.cheap-prizes.top/", want: "http://www.cheap-prizes.top", risk: "deceptive_keyword:prize"},
		{raw: "www.randomshop.shop", want: "http://www.randomshop.shop", risk: "untrusted_domain"},
		{raw: "https://www.onlinesbi.sbi/", reason: ReasonTrustedDomain},
		{raw: "https://incometax.gov.in/refund", reason: ReasonTrustedDomain},
		{raw: "https://netbanking.hdfcbank.com/netbanking/", reason: ReasonTrustedDomain},
		{raw: "https://sites.google.com/view/my-portfolio", reason: ReasonTrustedDomain},
		{raw: "https://kyc-update.sbi.co.in/login", want: "https://kyc-update.sbi.co.in/login", risk: "deceptive_keyword:kyc"},
		{raw: "https://sites.google.com/view/sbi-kyc-verify-login", want: "https://sites.google.com/view/sbi-kyc-verify-login", risk: "deceptive_keyword:kyc"},
		{raw: "https://docs.google.com/forms/d/refund-claim", want: "https://docs.google.com/forms/d/refund-claim", risk: "deceptive_keyword:refund"},
		{raw: "http://localhost/x", reason: ReasonMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, reason := v.PhishingLink(tt.raw)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.want, got)
			if tt.risk != "" {
				assert.Equal(t, tt.risk, v.LinkRisk(got))
			}
		})
	}
}

func TestBeneficiaryName(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		reason string
	}{
		{raw: "Rahul Kumar Sharma", want: "Rahul Kumar Sharma"},
		{raw: "RAHUL KUMAR", want: "Rahul Kumar"},
		{raw: "Rahul Kumar IFSC", want: "Rahul Kumar"},
		{raw: "Rahul", reason: ReasonNameShape},
		{raw: "rahul kumar", reason: ReasonNameShape},
		{raw: "State Bank", reason: ReasonNameShape},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, reason := BeneficiaryName(tt.raw)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidators_Dispatch(t *testing.T) {
	v := NewValidators(nil)

	got, reason := v.Validate(models.KindBankName, "hdfc bank", Context{})
	assert.Empty(t, reason)
	assert.Equal(t, "HDFC Bank", got)

	_, reason = v.Validate(models.KindBankName, "Bank of Nowhere", Context{})
	assert.Equal(t, ReasonUnknownBank, reason)

	got, reason = v.Validate(models.KindWhatsAppNumber, "919812345678", Context{})
	assert.Empty(t, reason)
	assert.Equal(t, "+919812345678", got)

	got, reason = v.Validate(models.KindOther, "  REF   9981 ", Context{})
	assert.Empty(t, reason)
	assert.Equal(t, "REF 9981", got)

	_, reason = v.Validate(models.IntelKind("crypto_wallet"), "0xabc", Context{})
	assert.Equal(t, ReasonUnknownKind, reason)
}
