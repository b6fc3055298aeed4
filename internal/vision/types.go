package vision

import (
	"errors"
	"time"
)

var (
	ErrInvalidImage      = errors.New("invalid image")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeVP8  = "video/VP8"
)

type Config struct {
	OllamaURL         string
	Model             string
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
}

// Image is an encoded still ready to send to the vision model.
type Image struct {
	Data       []byte
	MimeType   string
	Width      int
	Height     int
	CapturedAt time.Time
}

func (i Image) Empty() bool {
	return len(i.Data) == 0
}

type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}
