package vision

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/vp8"
)

type VideoDecoder interface {
	Decode(data []byte, mimeType string) (image.Image, error)
	Close() error
}

// VPXDecoder decodes standalone VP8 keyframes. Interframes are rejected.
type VPXDecoder struct {
	mu sync.Mutex
}

func NewVPXDecoder() *VPXDecoder {
	return &VPXDecoder{}
}

func (d *VPXDecoder) Decode(data []byte, mimeType string) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame data", ErrInvalidImage)
	}
	if mimeType != MimeVP8 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	decoder := vp8.NewDecoder()
	decoder.Init(bytes.NewReader(data), len(data))

	fh, err := decoder.DecodeFrameHeader()
	if err != nil {
		return nil, fmt.Errorf("decode frame header: %w", err)
	}
	if !fh.KeyFrame {
		return nil, fmt.Errorf("%w: vp8 interframe", ErrInvalidImage)
	}
	if fh.Width == 0 || fh.Height == 0 {
		return nil, fmt.Errorf("%w: frame dimensions %dx%d", ErrInvalidImage, fh.Width, fh.Height)
	}

	img, err := decoder.DecodeFrame()
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func (d *VPXDecoder) Close() error {
	return nil
}
