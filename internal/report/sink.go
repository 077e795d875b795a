package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-resty/resty/v2"

	"github.com/wolfman30/scam-honeypot/internal/state"
)

const archiveTTL = 90 * 24 * time.Hour

// Record is the final result of a terminated conversation.
type Record struct {
	SessionID      string       `dynamodbav:"sessionId" json:"sessionId"`
	ScamDetected   bool         `dynamodbav:"scamDetected" json:"scamDetected"`
	ScamType       string       `dynamodbav:"scamType,omitempty" json:"scamType,omitempty"`
	Confidence     float64      `dynamodbav:"confidence" json:"confidence"`
	ExitReason     string       `dynamodbav:"exitReason" json:"exitReason"`
	TurnCount      int          `dynamodbav:"turnCount" json:"turnCount"`
	DurationSecs   int64        `dynamodbav:"engagementDurationSeconds" json:"engagementDurationSeconds"`
	TotalMessages  int          `dynamodbav:"totalMessagesExchanged" json:"totalMessagesExchanged"`
	Intelligence   Intelligence `dynamodbav:"extractedIntelligence" json:"extractedIntelligence"`
	AgentNotes     string       `dynamodbav:"agentNotes" json:"agentNotes"`
	PatternVersion string       `dynamodbav:"patternVersion,omitempty" json:"patternVersion,omitempty"`
	CompletedAt    string       `dynamodbav:"completedAt" json:"completedAt"`
	ExpiresAt      int64        `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// NewRecord captures the final result from a terminated state and its response.
func NewRecord(st *state.State, resp Response, patternVersion string, now time.Time) Record {
	rec := Record{
		SessionID:      st.ID,
		ScamDetected:   resp.ScamDetected,
		Confidence:     st.Confidence,
		ExitReason:     string(st.ExitReason),
		TurnCount:      st.TurnCount,
		DurationSecs:   resp.EngagementMetrics.EngagementDurationSeconds,
		TotalMessages:  resp.EngagementMetrics.TotalMessagesExchanged,
		Intelligence:   resp.ExtractedIntelligence,
		AgentNotes:     resp.AgentNotes,
		PatternVersion: patternVersion,
		CompletedAt:    now.UTC().Format(time.RFC3339Nano),
	}
	if resp.ScamType != nil {
		rec.ScamType = *resp.ScamType
	}
	return rec
}

// Sink receives final results.
type Sink interface {
	Deliver(ctx context.Context, rec Record) error
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Deliver(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoArchive stores final results in a DynamoDB table keyed by sessionId.
type DynamoArchive struct {
	client    dynamoAPI
	tableName string
	ttl       time.Duration
}

func NewDynamoArchive(client dynamoAPI, tableName string) *DynamoArchive {
	if client == nil {
		panic("report: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("report: table name cannot be empty")
	}
	return &DynamoArchive{client: client, tableName: tableName, ttl: archiveTTL}
}

func (a *DynamoArchive) Deliver(ctx context.Context, rec Record) error {
	if rec.ExpiresAt == 0 {
		rec.ExpiresAt = time.Now().Add(a.ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("report: failed to marshal record: %w", err)
	}
	if _, err := a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("report: failed to archive record: %w", err)
	}
	return nil
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher announces final results on a queue.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

func NewSQSPublisher(client sqsAPI, queueURL string) *SQSPublisher {
	if client == nil {
		panic("report: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("report: SQS queueURL cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Deliver(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("report: failed to encode record: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("report: failed to send SQS message: %w", err)
	}
	return nil
}

// WebhookPublisher posts final results to an HTTP callback.
type WebhookPublisher struct {
	client *resty.Client
	url    string
	apiKey string
}

func NewWebhookPublisher(url, apiKey string, timeout time.Duration) *WebhookPublisher {
	if url == "" {
		panic("report: webhook url cannot be empty")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	return &WebhookPublisher{client: client, url: url, apiKey: apiKey}
}

func (w *WebhookPublisher) Deliver(ctx context.Context, rec Record) error {
	req := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rec)
	if w.apiKey != "" {
		req.SetHeader("x-api-key", w.apiKey)
	}
	resp, err := req.Post(w.url)
	if err != nil {
		return fmt.Errorf("report: webhook delivery failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("report: webhook returned status %d", resp.StatusCode())
	}
	return nil
}
