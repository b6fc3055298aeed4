package health

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/sightline/internal/voicesession"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type SessionStats struct {
	Active int            `json:"active"`
	ByMode map[string]int `json:"by_mode"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveConnections int64  `json:"active_connections"`
}

type Stats struct {
	Sessions SessionStats `json:"sessions"`
	Requests RequestStats `json:"requests"`
	Runtime  RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type SessionDetail struct {
	SessionID     string `json:"session_id"`
	DeviceID      string `json:"device_id"`
	Mode          string `json:"mode"`
	StartedAt     string `json:"started_at"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type SessionsResponse struct {
	Total    int             `json:"total"`
	Sessions []SessionDetail `json:"sessions"`
}

// SessionLister reports the live narration sessions.
type SessionLister interface {
	SessionCount() int
	ListSessions() []voicesession.SessionInfo
}

// VisionProbe reports whether the vision endpoint answers.
type VisionProbe interface {
	IsAvailable(ctx context.Context) bool
}

type Config struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Vision   VisionProbe
	Sessions SessionLister
	Version  string
}

// Handler serves liveness, readiness and session listing. Only the storage
// backend that is configured is checked; it is the one critical component.
type Handler struct {
	db        *gorm.DB
	redis     *redis.Client
	vision    VisionProbe
	sessions  SessionLister
	version   string
	startTime time.Time
	now       func() time.Time

	totalRequests     uint64
	activeConnections int64
}

func NewHandler(cfg Config) *Handler {
	return &Handler{
		db:        cfg.DB,
		redis:     cfg.Redis,
		vision:    cfg.Vision,
		sessions:  cfg.Sessions,
		version:   cfg.Version,
		startTime: time.Now(),
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Readiness)
	e.GET("/health/live", h.Liveness)
	e.GET("/health/sessions", h.Sessions)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

func (h *Handler) IncrementConnections() {
	atomic.AddInt64(&h.activeConnections, 1)
}

func (h *Handler) DecrementConnections() {
	atomic.AddInt64(&h.activeConnections, -1)
}

// Middleware counts requests and in-flight connections, device sockets
// included.
func (h *Handler) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementConnections()
			defer h.DecrementConnections()
			return next(c)
		}
	}
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type check struct {
	name     string
	critical bool
	run      func(context.Context) ComponentStatus
}

func (h *Handler) checks() []check {
	var checks []check
	if h.db != nil {
		checks = append(checks, check{"database", true, h.checkDatabase})
	}
	if h.redis != nil {
		checks = append(checks, check{"redis", true, h.checkRedis})
	}
	checks = append(checks, check{"vision", false, h.checkVision})
	return checks
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	checks := h.checks()
	components := make(map[string]ComponentStatus, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(len(checks))
	for _, ch := range checks {
		go func(ch check) {
			defer wg.Done()
			status := ch.run(ctx)
			mu.Lock()
			components[ch.name] = status
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	overallStatus := computeOverallStatus(checks, components)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     h.now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(h.now().Sub(h.startTime).Seconds()),
		Stats: Stats{
			Sessions: h.sessionStats(),
			Requests: RequestStats{
				TotalRequests:     atomic.LoadUint64(&h.totalRequests),
				ActiveConnections: atomic.LoadInt64(&h.activeConnections),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

func (h *Handler) sessionStats() SessionStats {
	stats := SessionStats{ByMode: make(map[string]int)}
	if h.sessions == nil {
		return stats
	}
	for _, s := range h.sessions.ListSessions() {
		stats.ByMode[s.Mode]++
	}
	stats.Active = h.sessions.SessionCount()
	return stats
}

func (h *Handler) Sessions(c echo.Context) error {
	var sessions []voicesession.SessionInfo
	if h.sessions != nil {
		sessions = h.sessions.ListSessions()
	}

	now := h.now()
	details := make([]SessionDetail, len(sessions))
	for i, s := range sessions {
		details[i] = SessionDetail{
			SessionID:     s.SessionID,
			DeviceID:      s.DeviceID,
			Mode:          s.Mode,
			StartedAt:     s.StartedAt.UTC().Format(time.RFC3339),
			UptimeSeconds: int64(now.Sub(s.StartedAt).Seconds()),
		}
	}

	return c.JSON(http.StatusOK, SessionsResponse{
		Total:    len(details),
		Sessions: details,
	})
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	start := time.Now()

	sqlDB, err := h.db.DB()
	if err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "failed to get underlying db",
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    evaluateDBStats(sqlDB.Stats()),
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func evaluateDBStats(stats sql.DBStats) Status {
	if stats.OpenConnections >= stats.MaxOpenConnections && stats.MaxOpenConnections > 0 {
		return StatusDegraded
	}
	return StatusHealthy
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) checkVision(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.vision == nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "vision not configured",
		}
	}

	if !h.vision.IsAvailable(ctx) {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "endpoint unreachable",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

// computeOverallStatus is unhealthy when a critical component is down and
// degraded when anything else is.
func computeOverallStatus(checks []check, components map[string]ComponentStatus) Status {
	for _, ch := range checks {
		if ch.critical && components[ch.name].Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}

	for _, status := range components {
		if status.Status != StatusHealthy {
			return StatusDegraded
		}
	}

	return StatusHealthy
}
