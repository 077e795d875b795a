package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one line of the monthly JSONL index of archived reports.
type ManifestEntry struct {
	SessionID   string `json:"sessionId"`
	Key         string `json:"key"`
	ScamType    string `json:"scamType,omitempty"`
	ExitReason  string `json:"exitReason"`
	IntelCount  int    `json:"intelCount"`
	CompletedAt string `json:"completedAt"`
}

// S3Archive writes each final result as a JSON object and indexes it in a monthly manifest.
type S3Archive struct {
	client s3API
	bucket string
	prefix string
}

func NewS3Archive(client s3API, bucket string) *S3Archive {
	if client == nil {
		panic("report: s3 client cannot be nil")
	}
	if bucket == "" {
		panic("report: bucket cannot be empty")
	}
	return &S3Archive{client: client, bucket: bucket, prefix: "reports/v1"}
}

func (a *S3Archive) Deliver(ctx context.Context, rec Record) error {
	completed, err := time.Parse(time.RFC3339Nano, rec.CompletedAt)
	if err != nil {
		completed = time.Now().UTC()
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("report: failed to encode record: %w", err)
	}

	key := fmt.Sprintf("%s/by-date/%d/%02d/%02d/%s.json",
		a.prefix, completed.Year(), completed.Month(), completed.Day(), rec.SessionID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("report: s3 put %s: %w", key, err)
	}

	return a.appendManifest(ctx, completed, ManifestEntry{
		SessionID:   rec.SessionID,
		Key:         key,
		ScamType:    rec.ScamType,
		ExitReason:  rec.ExitReason,
		IntelCount:  rec.Intelligence.Count(),
		CompletedAt: rec.CompletedAt,
	})
}

// appendManifest does a read-modify-write; S3 has no append.
func (a *S3Archive) appendManifest(ctx context.Context, at time.Time, entry ManifestEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("report: failed to encode manifest entry: %w", err)
	}
	key := fmt.Sprintf("%s/manifests/%d-%02d.jsonl", a.prefix, at.Year(), at.Month())

	var existing []byte
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(out.Body)
		out.Body.Close()
		if err != nil {
			return fmt.Errorf("report: read manifest %s: %w", key, err)
		}
	case isNoSuchKey(err):
	default:
		return fmt.Errorf("report: get manifest %s: %w", key, err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("report: s3 put manifest %s: %w", key, err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}
