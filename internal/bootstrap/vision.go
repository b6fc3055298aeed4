package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/sightline/internal/vision"
	"go.uber.org/fx"
)

func ProvideVisionConfig(cfg *Config) vision.Config {
	return vision.Config{
		OllamaURL:         cfg.VisionURL,
		Model:             cfg.VisionModel,
		Timeout:           cfg.VisionTimeout,
		RequestsPerMinute: cfg.VisionRPM,
		Burst:             cfg.VisionBurst,
	}
}

func ProvideVisionClient(cfg vision.Config) *vision.Client {
	return vision.NewClient(cfg)
}

func ProvideVisionAnalyzer(client *vision.Client, logger *slog.Logger) *vision.Analyzer {
	return vision.NewAnalyzer(client, logger)
}

func ProvideCapturerConfig(cfg *Config) vision.CapturerConfig {
	return vision.CapturerConfig{
		CaptureRate: cfg.FrameCaptureRate,
		MaxFrameAge: cfg.FrameMaxAge,
		TargetWidth: cfg.FrameWidth,
		Quality:     cfg.FrameQuality,
	}
}

var VisionModule = fx.Options(
	fx.Provide(
		ProvideVisionConfig,
		ProvideVisionClient,
		ProvideVisionAnalyzer,
		ProvideCapturerConfig,
	),
)
