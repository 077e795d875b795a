package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// ErrNoTiers is returned by a Fallback with nothing configured.
var ErrNoTiers = errors.New("llm: no model tiers configured")

// Tier is one named entry in a Fallback chain.
type Tier struct {
	Name   string
	Client Client
}

// Fallback tries each tier in order and returns the first success.
// Cancellation of ctx stops the walk.
type Fallback struct {
	tiers  []Tier
	logger *logging.Logger
}

// NewFallback builds a chain, skipping tiers with a nil client.
func NewFallback(logger *logging.Logger, tiers ...Tier) *Fallback {
	if logger == nil {
		logger = logging.Default()
	}
	kept := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		if t.Client == nil {
			continue
		}
		kept = append(kept, t)
	}
	return &Fallback{tiers: kept, logger: logger}
}

// Len reports the number of usable tiers.
func (f *Fallback) Len() int {
	if f == nil {
		return 0
	}
	return len(f.tiers)
}

func (f *Fallback) Complete(ctx context.Context, req Request) (Response, error) {
	if f == nil || len(f.tiers) == 0 {
		return Response{}, ErrNoTiers
	}

	var errs []error
	for i, tier := range f.tiers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		resp, err := tier.Client.Complete(ctx, req)
		if err == nil {
			if resp.Tier == "" {
				resp.Tier = tier.Name
			}
			if i > 0 {
				f.logger.Info("fallback model tier succeeded", "tier", tier.Name, "attempt", i+1)
			}
			return resp, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
		f.logger.Warn("model tier failed",
			"tier", tier.Name,
			"error", err.Error(),
			"remaining", len(f.tiers)-i-1,
		)
	}
	return Response{}, errors.Join(errs...)
}
