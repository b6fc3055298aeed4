package bootstrap

import (
	"context"
	"log/slog"

	"github.com/eleven-am/sightline/internal/audio"
	"github.com/eleven-am/sightline/internal/gateway"
	"github.com/eleven-am/sightline/internal/kv"
	"github.com/eleven-am/sightline/internal/vision"
	"github.com/eleven-am/sightline/internal/voicesession"
	"go.uber.org/fx"
)

func ProvideSessionConfig(cfg *Config) voicesession.Config {
	return voicesession.Config{
		AutoStart:          cfg.AutoStart,
		HoldThreshold:      cfg.HoldThreshold,
		FirstFrameDelay:    cfg.FirstFrameDelay,
		PostNarrationDelay: cfg.PostNarrationDelay,
		BusyRetryDelay:     cfg.BusyRetryDelay,
		ListenRetryDelay:   cfg.ListenRetryDelay,
		ErrorRetryDelay:    cfg.ErrorRetryDelay,
		ResumeDelay:        cfg.ResumeDelay,
		MaxUtterance:       cfg.MaxUtterance,
	}
}

func ProvideVoiceSessionManager(
	lc fx.Lifecycle,
	cfg *Config,
	sessionCfg voicesession.Config,
	analyzer *vision.Analyzer,
	store kv.Store,
	logger *slog.Logger,
) *voicesession.Manager {
	mgr := voicesession.NewManager(voicesession.ManagerConfig{
		Session:  sessionCfg,
		Analyzer: analyzer,
		Store:    store,
		MaxTags:  cfg.MaxTags,
		Log:      logger,
	})
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mgr.Close()
		},
	})
	return mgr
}

func ProvideEarconBank() *audio.EarconBank {
	return audio.NewEarconBank()
}

func ProvideDeviceHandler(
	cfg *Config,
	mgr *voicesession.Manager,
	earcons *audio.EarconBank,
	capture vision.CapturerConfig,
	logger *slog.Logger,
) *gateway.DeviceHandler {
	return gateway.NewDeviceHandler(gateway.HandlerConfig{
		Sessions:   mgr,
		Earcons:    earcons,
		Capture:    capture,
		SpeechRate: cfg.SpeechRate,
		Lang:       cfg.RecognitionLang,
		RateLimit:  ProvideRateLimiterConfig(cfg),
		Logger:     logger.With("handler", "device"),
	})
}

func ProvideRateLimiterConfig(cfg *Config) gateway.RateLimiterConfig {
	rl := gateway.DefaultRateLimiterConfig()
	if cfg.DeviceRequestsPerSecond > 0 {
		rl.RequestsPerSecond = cfg.DeviceRequestsPerSecond
	}
	if cfg.DeviceBurst > 0 {
		rl.Burst = cfg.DeviceBurst
	}
	return rl
}

var VoiceModule = fx.Options(
	fx.Provide(
		ProvideSessionConfig,
		ProvideVoiceSessionManager,
		ProvideEarconBank,
		ProvideDeviceHandler,
	),
)
