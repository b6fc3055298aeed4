package gateway

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eleven-am/sightline/internal/audio"
	"github.com/eleven-am/sightline/internal/transport"
	"github.com/eleven-am/sightline/internal/vision"
	"github.com/eleven-am/sightline/internal/voicesession"
	"github.com/labstack/echo/v4"
)

// SessionManager owns the narration session of each connected device.
type SessionManager interface {
	CreateSession(ctx context.Context, deviceID string, camera voicesession.Camera, device voicesession.Device) *voicesession.Session
	RemoveSession(session *voicesession.Session)
}

type HandlerConfig struct {
	Sessions   SessionManager
	Earcons    *audio.EarconBank
	Capture    vision.CapturerConfig
	SpeechRate float64
	Lang       string
	RateLimit  RateLimiterConfig
	Logger     *slog.Logger
}

type DeviceHandler struct {
	sessions   SessionManager
	earcons    *audio.EarconBank
	capture    vision.CapturerConfig
	speechRate float64
	lang       string
	rateLimit  RateLimiterConfig
	logger     *slog.Logger
}

func NewDeviceHandler(cfg HandlerConfig) *DeviceHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Earcons == nil {
		cfg.Earcons = audio.NewEarconBank()
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit = DefaultRateLimiterConfig()
	}
	return &DeviceHandler{
		sessions:   cfg.Sessions,
		earcons:    cfg.Earcons,
		capture:    cfg.Capture,
		speechRate: cfg.SpeechRate,
		lang:       cfg.Lang,
		rateLimit:  cfg.RateLimit,
		logger:     cfg.Logger.With("component", "device_handler"),
	}
}

func (h *DeviceHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/devices/:device/connect", h.Connect, RequireDevice(), RateLimiter(h.rateLimit))
}

// Connect godoc
// @Summary      Connect a device
// @Description  Upgrades to a WebSocket carrying the device protocol. One narration session runs per connection; a second connection for the same device replaces the first.
// @Tags         devices
// @Param        device  path  string  true  "Device ID"
// @Success      101
// @Failure      400  {object}  shared.APIError
// @Failure      429  {object}  shared.APIError
// @Router       /devices/{device}/connect [get]
func (h *DeviceHandler) Connect(c echo.Context) error {
	deviceID := GetDeviceID(c)

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "device_id", deviceID)
		return nil
	}

	conn := NewWSDeviceConnection(ws, deviceID, h.logger)

	captureCfg := h.capture
	captureCfg.DeviceID = deviceID
	captureCfg.Decoder = nil
	if captureCfg.Logger == nil {
		captureCfg.Logger = h.logger
	}
	capturer := vision.NewFrameCapturer(captureCfg)

	device := NewDevice(DeviceConfig{
		Conn:       conn,
		Earcons:    h.earcons,
		SpeechRate: h.speechRate,
		Lang:       h.lang,
		Logger:     h.logger.With("device_id", deviceID),
	})

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	session := h.sessions.CreateSession(ctx, deviceID, capturer, device)
	logger := h.logger.With("device_id", deviceID, "session_id", session.ID())
	logger.Info("device connected")

	go conn.writePump(ctx)
	go conn.readPump(ctx)
	go func() {
		select {
		case <-capturer.Ready():
			session.CameraReady()
		case <-session.Done():
		}
		<-session.Done()
		// replaced by a newer connection or shutting down
		conn.Close()
	}()

	for env := range conn.Messages() {
		if err := device.Dispatch(env, session, capturer); err != nil {
			if env.Type == transport.MessageTypeFrame {
				logger.Debug("frame rejected", "error", err)
				continue
			}
			logger.Warn("device message rejected", "type", env.Type, "error", err)
			if errors.Is(err, ErrUnknownMessage) || errors.Is(err, transport.ErrEmptyPayload) {
				device.ReportError(err.Error())
			} else {
				device.ReportError("invalid " + string(env.Type) + " message")
			}
		}
	}

	h.sessions.RemoveSession(session)
	capturer.Stop()
	_ = conn.Close()

	logger.Info("device disconnected")
	return nil
}
