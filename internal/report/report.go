// Package report renders conversation state into the public response
// contract and ships final results to archives and callbacks.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/state"
)

const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
)

type EngagementMetrics struct {
	EngagementDurationSeconds int64 `json:"engagementDurationSeconds"`
	TotalMessagesExchanged    int   `json:"totalMessagesExchanged"`
}

type LabelledValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Intelligence lists accumulated items per kind. Slices are never nil so they
// serialize as [] rather than null.
type Intelligence struct {
	BankAccounts     []string        `json:"bankAccounts"`
	UPIIDs           []string        `json:"upiIds"`
	PhoneNumbers     []string        `json:"phoneNumbers"`
	IFSCCodes        []string        `json:"ifscCodes"`
	BeneficiaryNames []string        `json:"beneficiaryNames"`
	BankNames        []string        `json:"bankNames"`
	PhishingLinks    []string        `json:"phishingLinks"`
	WhatsAppNumbers  []string        `json:"whatsappNumbers"`
	Emails           []string        `json:"emails"`
	Other            []LabelledValue `json:"other"`
}

type Response struct {
	Status                string            `json:"status"`
	SessionID             string            `json:"sessionId"`
	ScamDetected          bool              `json:"scamDetected"`
	ScamType              *string           `json:"scamType"`
	Confidence            *float64          `json:"confidence"`
	EngagementMetrics     EngagementMetrics `json:"engagementMetrics"`
	ExtractedIntelligence Intelligence      `json:"extractedIntelligence"`
	AgentNotes            string            `json:"agentNotes"`
	AgentResponse         *string           `json:"agentResponse"`
}

// Input is everything Assemble reads. Reply is empty when no persona reply
// goes out this turn.
type Input struct {
	State    *state.State
	Reply    string
	Degraded bool
	Persona  string
	Notes    []string
}

// Assemble is a pure function of its input.
func Assemble(in Input) Response {
	st := in.State
	if st == nil {
		st = &state.State{Mode: state.ModeMonitoring, Category: models.CategoryNone}
	}

	resp := Response{
		Status:                StatusSuccess,
		SessionID:             st.ID,
		ScamDetected:          st.EverEngaged(),
		ExtractedIntelligence: BuildIntelligence(st.Intelligence),
		AgentNotes:            Notes(st, in.Persona, in.Degraded, in.Notes...),
	}
	if in.Degraded {
		resp.Status = StatusDegraded
	}
	if resp.ScamDetected {
		category := st.Category
		if category == "" || category == models.CategoryNone {
			category = models.CategoryOther
		}
		scamType := string(category)
		resp.ScamType = &scamType
	}
	if st.Observed {
		conf := math.Round(st.Confidence*10000) / 10000
		resp.Confidence = &conf
	}
	if st.EverEngaged() {
		resp.EngagementMetrics = EngagementMetrics{
			EngagementDurationSeconds: st.ElapsedSeconds,
			TotalMessagesExchanged:    st.TurnCount + st.RepliesSent,
		}
	}
	if reply := strings.TrimSpace(in.Reply); reply != "" {
		resp.AgentResponse = &reply
	}
	return resp
}

// BuildIntelligence groups a set by kind in reporting order.
func BuildIntelligence(set models.IntelSet) Intelligence {
	intel := Intelligence{
		BankAccounts:     []string{},
		UPIIDs:           []string{},
		PhoneNumbers:     []string{},
		IFSCCodes:        []string{},
		BeneficiaryNames: []string{},
		BankNames:        []string{},
		PhishingLinks:    []string{},
		WhatsAppNumbers:  []string{},
		Emails:           []string{},
		Other:            []LabelledValue{},
	}
	for _, item := range set.Items {
		switch item.Kind {
		case models.KindBankAccount:
			intel.BankAccounts = append(intel.BankAccounts, item.Value)
		case models.KindUPIID:
			intel.UPIIDs = append(intel.UPIIDs, item.Value)
		case models.KindPhoneNumber:
			intel.PhoneNumbers = append(intel.PhoneNumbers, item.Value)
		case models.KindIFSCCode:
			intel.IFSCCodes = append(intel.IFSCCodes, item.Value)
		case models.KindBeneficiaryName:
			intel.BeneficiaryNames = append(intel.BeneficiaryNames, item.Value)
		case models.KindBankName:
			intel.BankNames = append(intel.BankNames, item.Value)
		case models.KindPhishingLink:
			intel.PhishingLinks = append(intel.PhishingLinks, item.Value)
		case models.KindWhatsAppNumber:
			intel.WhatsAppNumbers = append(intel.WhatsAppNumbers, item.Value)
		case models.KindEmail:
			intel.Emails = append(intel.Emails, item.Value)
		case models.KindOther:
			intel.Other = append(intel.Other, LabelledValue{Label: item.Label, Value: item.Value})
		}
	}
	return intel
}

// Count is the total number of items across every kind.
func (i Intelligence) Count() int {
	return len(i.BankAccounts) + len(i.UPIIDs) + len(i.PhoneNumbers) + len(i.IFSCCodes) +
		len(i.BeneficiaryNames) + len(i.BankNames) + len(i.PhishingLinks) +
		len(i.WhatsAppNumbers) + len(i.Emails) + len(i.Other)
}

// Notes renders the one-line analyst summary, e.g.
// "Mode: CAUTIOUS | Tactics: urgency | Confidence: 72% | Turn: 3 | Persona: anxious".
func Notes(st *state.State, persona string, degraded bool, extra ...string) string {
	parts := []string{"Mode: " + string(st.Mode)}
	if len(st.Tactics) > 0 {
		parts = append(parts, "Tactics: "+strings.Join(st.Tactics, ", "))
	}
	if st.Observed {
		parts = append(parts, fmt.Sprintf("Confidence: %d%%", int(math.Round(st.Confidence*100))))
	} else {
		parts = append(parts, "Confidence: n/a")
	}
	parts = append(parts, fmt.Sprintf("Turn: %d", st.TurnCount))
	if persona != "" {
		parts = append(parts, "Persona: "+persona)
	}
	if st.ExitReason != state.ExitNone {
		parts = append(parts, "Exit: "+string(st.ExitReason))
	}
	if degraded {
		parts = append(parts, "Degraded: classifier unavailable")
	}
	for _, e := range extra {
		if e = strings.TrimSpace(e); e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, " | ")
}
