package vision

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

const (
	DefaultTargetWidth = 512
	DefaultQuality     = 70
)

// FrameCapturer keeps the latest downscaled snapshot pushed by a device.
type FrameCapturer struct {
	deviceID    string
	logger      *slog.Logger
	captureRate time.Duration
	maxAge      time.Duration
	width       int
	quality     int
	decoder     VideoDecoder
	now         func() time.Time

	mu          sync.Mutex
	latest      Image
	lastCapture time.Time
	stopped     bool
	ready       chan struct{}
	readyOnce   sync.Once
}

type CapturerConfig struct {
	DeviceID    string
	Decoder     VideoDecoder
	CaptureRate time.Duration
	MaxFrameAge time.Duration
	TargetWidth int
	Quality     int
	Logger      *slog.Logger
	Now         func() time.Time
}

func NewFrameCapturer(cfg CapturerConfig) *FrameCapturer {
	if cfg.CaptureRate == 0 {
		cfg.CaptureRate = 250 * time.Millisecond
	}
	if cfg.MaxFrameAge == 0 {
		cfg.MaxFrameAge = 10 * time.Second
	}
	if cfg.TargetWidth <= 0 {
		cfg.TargetWidth = DefaultTargetWidth
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	if cfg.Decoder == nil {
		cfg.Decoder = NewVPXDecoder()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &FrameCapturer{
		deviceID:    cfg.DeviceID,
		logger:      cfg.Logger.With("component", "frame-capturer", "device_id", cfg.DeviceID),
		captureRate: cfg.CaptureRate,
		maxAge:      cfg.MaxFrameAge,
		width:       cfg.TargetWidth,
		quality:     cfg.Quality,
		decoder:     cfg.Decoder,
		now:         cfg.Now,
		ready:       make(chan struct{}),
	}
}

// Ready is closed once the first frame has been decoded.
func (c *FrameCapturer) Ready() <-chan struct{} {
	return c.ready
}

// HandleFrame ingests a device snapshot. Frames arriving faster than the
// capture rate are dropped without decoding.
func (c *FrameCapturer) HandleFrame(data []byte, mimeType string) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty frame", ErrInvalidImage)
	}
	now := c.now()

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	if !c.lastCapture.IsZero() && now.Sub(c.lastCapture) < c.captureRate {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	img, err := c.decode(data, mimeType)
	if err != nil {
		c.logger.Debug("frame decode failed", "error", err, "mime_type", mimeType)
		return err
	}

	frame, err := c.encode(img, now)
	if err != nil {
		c.logger.Debug("frame encode failed", "error", err)
		return err
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.latest = frame
	c.lastCapture = now
	c.mu.Unlock()

	c.readyOnce.Do(func() {
		c.logger.Info("camera ready", "width", frame.Width, "height", frame.Height)
		close(c.ready)
	})
	return nil
}

// CaptureFrame returns the latest snapshot, or false before readiness, after
// Stop, or when the device has stopped sending frames.
func (c *FrameCapturer) CaptureFrame() (Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.latest.Empty() {
		return Image{}, false
	}
	if c.now().Sub(c.latest.CapturedAt) > c.maxAge {
		return Image{}, false
	}
	return c.latest, true
}

func (c *FrameCapturer) decode(data []byte, mimeType string) (image.Image, error) {
	switch mimeType {
	case MimeJPEG, MimePNG, "":
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		return img, nil
	case MimeVP8:
		return c.decoder.Decode(data, mimeType)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}
}

func (c *FrameCapturer) encode(img image.Image, capturedAt time.Time) (Image, error) {
	if img.Bounds().Dx() > c.width {
		img = imaging.Resize(img, c.width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return Image{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Image{
		Data:       buf.Bytes(),
		MimeType:   MimeJPEG,
		Width:      img.Bounds().Dx(),
		Height:     img.Bounds().Dy(),
		CapturedAt: capturedAt,
	}, nil
}

func (c *FrameCapturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.latest = Image{}
	if c.decoder != nil {
		c.decoder.Close()
	}
}
