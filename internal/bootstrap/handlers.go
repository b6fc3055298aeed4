package bootstrap

import (
	"log/slog"
	"os"

	"github.com/eleven-am/sightline/internal/gateway"
	"github.com/eleven-am/sightline/internal/kv"
	"github.com/eleven-am/sightline/internal/tags"
	"github.com/eleven-am/sightline/internal/voicesession"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	DeviceHandler *gateway.DeviceHandler
	TagsHandler   *tags.Handler
	Config        *Config
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/api/v1")

	params.DeviceHandler.RegisterRoutes(api)

	tagsGroup := api.Group("/devices/:device/tags")
	tagsGroup.Use(gateway.RequireDevice())
	tagsGroup.Use(gateway.RateLimiter(ProvideRateLimiterConfig(params.Config)))
	params.TagsHandler.RegisterRoutes(tagsGroup)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideTagsHandler(store kv.Store, mgr *voicesession.Manager, logger *slog.Logger) *tags.Handler {
	return tags.NewHandler(store, mgr, logger.With("handler", "tags"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideTagsHandler,
	),
	fx.Invoke(RegisterRoutes),
)
