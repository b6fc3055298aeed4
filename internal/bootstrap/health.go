package bootstrap

import (
	"github.com/eleven-am/sightline/internal/health"
	"github.com/eleven-am/sightline/internal/vision"
	"github.com/eleven-am/sightline/internal/voicesession"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const version = "1.0.0"

func ProvideHealthHandler(
	db *gorm.DB,
	redis *redis.Client,
	visionClient *vision.Client,
	mgr *voicesession.Manager,
) *health.Handler {
	return health.NewHandler(health.Config{
		DB:       db,
		Redis:    redis,
		Vision:   visionClient,
		Sessions: mgr,
		Version:  version,
	})
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(h.Middleware())
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
