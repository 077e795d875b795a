package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/scam-honeypot/internal/config"
	"github.com/wolfman30/scam-honeypot/internal/report"
	"github.com/wolfman30/scam-honeypot/pkg/logging"
)

// BuildSink fans final results out to every configured destination.
// It returns nil when none are configured.
func BuildSink(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) report.Sink {
	if logger == nil {
		logger = logging.Default()
	}
	var sinks report.MultiSink
	if cfg.ReportTable != "" {
		if awsCfg == nil {
			logger.Warn("report table configured without AWS config; archive disabled", "table", cfg.ReportTable)
		} else {
			sinks = append(sinks, report.NewDynamoArchive(dynamodb.NewFromConfig(*awsCfg), cfg.ReportTable))
		}
	}
	if cfg.ReportBucket != "" {
		if awsCfg == nil {
			logger.Warn("report bucket configured without AWS config; s3 archive disabled", "bucket", cfg.ReportBucket)
		} else {
			sinks = append(sinks, report.NewS3Archive(s3.NewFromConfig(*awsCfg), cfg.ReportBucket))
		}
	}
	if cfg.ReportQueueURL != "" {
		if awsCfg == nil {
			logger.Warn("report queue configured without AWS config; publisher disabled", "queue", cfg.ReportQueueURL)
		} else {
			sinks = append(sinks, report.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.ReportQueueURL))
		}
	}
	if alertsEnabled(cfg) {
		if awsCfg == nil {
			logger.Warn("alert email configured without AWS config; alerts disabled", "from", cfg.AlertEmailFrom)
		} else {
			sinks = append(sinks, report.NewSESAlert(sesv2.NewFromConfig(*awsCfg), report.SESConfig{
				FromEmail: cfg.AlertEmailFrom,
				To:        cfg.AlertEmailTo,
			}))
		}
	}
	if cfg.CallbackURL != "" {
		sinks = append(sinks, report.NewWebhookPublisher(cfg.CallbackURL, cfg.CallbackAPIKey, cfg.CallbackTimeout))
	}
	if len(sinks) == 0 {
		logger.Info("no report sinks configured")
		return nil
	}
	logger.Info("report sinks configured", "count", len(sinks))
	return sinks
}
