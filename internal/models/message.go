package models

import (
	"strings"
	"time"
)

// Sender identifies who authored a message in a honeypot conversation.
type Sender string

const (
	SenderScammer Sender = "scammer"
	SenderUser    Sender = "user"
)

// Valid reports whether s is a known sender.
func (s Sender) Valid() bool {
	return s == SenderScammer || s == SenderUser
}

// Message is one immutable entry of a conversation.
type Message struct {
	Sender    Sender    `json:"sender" validate:"required,oneof=scammer user"`
	Text      string    `json:"text" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata carries optional channel hints supplied by the caller.
type Metadata struct {
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Category is the scam type reported to callers.
type Category string

const (
	CategoryNone                    Category = "none"
	CategoryBankImpersonation       Category = "bank_impersonation"
	CategoryKYCUpdate               Category = "kyc_update"
	CategoryLotteryReward           Category = "lottery_reward"
	CategoryJobOffer                Category = "job_offer"
	CategoryInvestment              Category = "investment"
	CategoryTechSupport             Category = "tech_support"
	CategoryDelivery                Category = "delivery"
	CategoryGovernmentImpersonation Category = "government_impersonation"
	CategoryRomance                 Category = "romance"
	CategorySextortion              Category = "sextortion"
	CategoryUtilityDisconnection    Category = "utility_disconnection"
	CategoryPhishing                Category = "phishing"
	CategoryOther                   Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryNone:                    {},
	CategoryBankImpersonation:       {},
	CategoryKYCUpdate:               {},
	CategoryLotteryReward:           {},
	CategoryJobOffer:                {},
	CategoryInvestment:              {},
	CategoryTechSupport:             {},
	CategoryDelivery:                {},
	CategoryGovernmentImpersonation: {},
	CategoryRomance:                 {},
	CategorySextortion:              {},
	CategoryUtilityDisconnection:    {},
	CategoryPhishing:                {},
	CategoryOther:                   {},
}

// ParseCategory normalizes free-form model output into a Category.
// Unknown labels map to CategoryOther; empty input maps to CategoryNone.
func ParseCategory(raw string) Category {
	c := strings.ToLower(strings.TrimSpace(raw))
	c = strings.NewReplacer(" ", "_", "-", "_").Replace(c)
	if c == "" {
		return CategoryNone
	}
	if _, ok := knownCategories[Category(c)]; ok {
		return Category(c)
	}
	return CategoryOther
}
