package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/internal/llm"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// ModelTiers is the ordered model chain shared by the classifier, persona and extractor.
type ModelTiers struct {
	Client llm.Client
	Names  []string
	closer func() error
}

// Close releases clients that hold connections.
func (m *ModelTiers) Close() error {
	if m == nil || m.closer == nil {
		return nil
	}
	return m.closer()
}

// BuildModelTiers wires Bedrock primary, Bedrock fallback and Gemini in that order.
// With nothing configured it returns a ModelTiers whose Client is nil.
func BuildModelTiers(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *ModelTiers {
	if logger == nil {
		logger = logging.Default()
	}
	var tiers []llm.Tier
	if awsCfg != nil && strings.TrimSpace(cfg.BedrockModelID) != "" {
		api := bedrockruntime.NewFromConfig(*awsCfg)
		tiers = append(tiers, llm.Tier{Name: "bedrock:" + cfg.BedrockModelID, Client: llm.NewBedrockClient(api, cfg.BedrockModelID)})
		if id := strings.TrimSpace(cfg.BedrockFallbackID); id != "" && id != cfg.BedrockModelID {
			tiers = append(tiers, llm.Tier{Name: "bedrock:" + id, Client: llm.NewBedrockClient(api, id)})
		}
	}

	out := &ModelTiers{}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini tier disabled", "error", err)
		} else {
			tiers = append(tiers, llm.Tier{Name: "gemini:" + cfg.GeminiModelID, Client: gemini})
			out.closer = gemini.Close
		}
	}

	if len(tiers) == 0 {
		logger.Warn("no model tiers configured; classifier disabled and persona uses canned replies")
		return out
	}
	for _, t := range tiers {
		out.Names = append(out.Names, t.Name)
	}
	out.Client = llm.NewFallback(logger.WithComponent("llm"), tiers...)
	logger.Info("model tiers configured", "tiers", out.Names)
	return out
}
