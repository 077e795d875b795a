package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig holds the alert email addresses.
type SESConfig struct {
	FromEmail string
	FromName  string
	To        []string
}

// SESAlert emails analysts a summary of every terminated scam conversation.
// Records with no scam detected are skipped.
type SESAlert struct {
	client sesAPI
	from   string
	to     []string
}

func NewSESAlert(client sesAPI, cfg SESConfig) *SESAlert {
	if client == nil {
		panic("report: SES client cannot be nil")
	}
	if cfg.FromEmail == "" || len(cfg.To) == 0 {
		panic("report: SES alert needs a sender and at least one recipient")
	}
	if cfg.FromName == "" {
		cfg.FromName = "Scam Honeypot"
	}
	return &SESAlert{
		client: client,
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail),
		to:     cfg.To,
	}
}

func (a *SESAlert) Deliver(ctx context.Context, rec Record) error {
	if !rec.ScamDetected {
		return nil
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(a.from),
		Destination: &types.Destination{
			ToAddresses: a.to,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(alertSubject(rec)),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(alertBody(rec)),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
	if _, err := a.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("report: SES alert failed: %w", err)
	}
	return nil
}

func alertSubject(rec Record) string {
	scamType := rec.ScamType
	if scamType == "" {
		scamType = "unknown"
	}
	return fmt.Sprintf("[honeypot] %s conversation %s ended: %s (%d items)",
		scamType, rec.SessionID, rec.ExitReason, rec.Intelligence.Count())
}

func alertBody(rec Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", rec.SessionID)
	fmt.Fprintf(&b, "Scam type: %s\n", rec.ScamType)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", rec.Confidence*100)
	fmt.Fprintf(&b, "Exit reason: %s\n", rec.ExitReason)
	fmt.Fprintf(&b, "Turns: %d, messages: %d, duration: %ds\n", rec.TurnCount, rec.TotalMessages, rec.DurationSecs)
	fmt.Fprintf(&b, "Completed: %s\n", rec.CompletedAt)
	if rec.PatternVersion != "" {
		fmt.Fprintf(&b, "Patterns: %s\n", rec.PatternVersion)
	}
	b.WriteString("\nExtracted intelligence:\n")
	in := rec.Intelligence
	for _, group := range []struct {
		name   string
		values []string
	}{
		{"Bank accounts", in.BankAccounts},
		{"IFSC codes", in.IFSCCodes},
		{"Beneficiaries", in.BeneficiaryNames},
		{"Banks", in.BankNames},
		{"UPI IDs", in.UPIIDs},
		{"Phone numbers", in.PhoneNumbers},
		{"WhatsApp numbers", in.WhatsAppNumbers},
		{"Emails", in.Emails},
		{"Links", in.PhishingLinks},
	} {
		if len(group.values) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", group.name, strings.Join(group.values, ", "))
	}
	for _, o := range in.Other {
		fmt.Fprintf(&b, "  %s: %s\n", o.Label, o.Value)
	}
	if in.Count() == 0 {
		b.WriteString("  none\n")
	}
	fmt.Fprintf(&b, "\nNotes: %s\n", rec.AgentNotes)
	return b.String()
}
