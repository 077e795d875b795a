// Package classify turns a message (plus its history) into a scam judgment by
// consulting one or more external models.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/scam-honeypot/internal/models"
)

var (
	// ErrMalformedInput is returned for input that cannot be classified, such as empty text.
	ErrMalformedInput = errors.New("classify: malformed input")
	// ErrAdapterTimeout is returned when the classifier misses its deadline.
	ErrAdapterTimeout = errors.New("classify: adapter timed out")
	// ErrAdapterFailure is returned when no classifier produced a usable answer.
	ErrAdapterFailure = errors.New("classify: adapter failed")
	// ErrMalformedAnswer marks a model answer that could not be parsed or was out of range.
	ErrMalformedAnswer = errors.New("classify: malformed model answer")
)

// Input is what a classifier sees for one turn.
type Input struct {
	Text     string
	History  []models.Message
	Metadata models.Metadata
}

// Judgment is a classifier's opinion. RawConfidence is the probability that
// the conversation is a scam.
type Judgment struct {
	IsScam        bool
	RawConfidence float64
	Category      models.Category
	Tactics       []string
	Tier          string
}

// Classifier produces a Judgment. It never mutates conversation state.
type Classifier interface {
	Classify(ctx context.Context, in Input) (Judgment, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, in Input) (Judgment, error)

func (f Func) Classify(ctx context.Context, in Input) (Judgment, error) {
	return f(ctx, in)
}

func validateInput(in Input) error {
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("%w: empty text", ErrMalformedInput)
	}
	return nil
}

type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds next by timeout. A missed deadline is reported as
// ErrAdapterTimeout; cancellation of the parent context is passed through.
func WithTimeout(next Classifier, timeout time.Duration) Classifier {
	if timeout <= 0 {
		return next
	}
	return &timeoutClassifier{next: next, timeout: timeout}
}

func (c *timeoutClassifier) Classify(ctx context.Context, in Input) (Judgment, error) {
	if err := validateInput(in); err != nil {
		return Judgment{}, err
	}
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		j   Judgment
		err error
	}
	done := make(chan result, 1)
	go func() {
		j, err := c.next.Classify(tctx, in)
		done <- result{j: j, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Judgment{}, fmt.Errorf("%w after %s", ErrAdapterTimeout, c.timeout)
		}
		return r.j, r.err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return Judgment{}, err
		}
		return Judgment{}, fmt.Errorf("%w after %s", ErrAdapterTimeout, c.timeout)
	}
}

// Chain tries each classifier in order; the first success wins.
type Chain []Classifier

func (c Chain) Classify(ctx context.Context, in Input) (Judgment, error) {
	if err := validateInput(in); err != nil {
		return Judgment{}, err
	}
	if len(c) == 0 {
		return Judgment{}, fmt.Errorf("%w: no classifiers configured", ErrAdapterFailure)
	}

	var errs []error
	for _, next := range c {
		if next == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Judgment{}, err
		}
		j, err := next.Classify(ctx, in)
		if err == nil {
			return j, nil
		}
		if errors.Is(err, ErrMalformedInput) {
			return Judgment{}, err
		}
		errs = append(errs, err)
	}
	if err := ctx.Err(); err != nil {
		return Judgment{}, err
	}
	if len(errs) == 0 {
		return Judgment{}, fmt.Errorf("%w: no classifiers configured", ErrAdapterFailure)
	}
	allTimedOut := true
	for _, err := range errs {
		if !errors.Is(err, ErrAdapterTimeout) {
			allTimedOut = false
			break
		}
	}
	if allTimedOut {
		return Judgment{}, errors.Join(errs...)
	}
	return Judgment{}, fmt.Errorf("%w: %w", ErrAdapterFailure, errors.Join(errs...))
}
