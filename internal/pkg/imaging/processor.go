package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
)

// Config for avatar processing
type Config struct {
	Width   int // Bounding box width (default 256)
	Height  int // Bounding box height (default 256)
	Quality int // JPEG quality 1-100 (default 85)
}

// DefaultConfig returns default processing config
func DefaultConfig() Config {
	return Config{
		Width:   256,
		Height:  256,
		Quality: 85,
	}
}

// Avatar is an encoded avatar image.
type Avatar struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Processor handles image processing
type Processor struct {
	config Config
}

// NewProcessor creates image processor
func NewProcessor(config Config) *Processor {
	def := DefaultConfig()
	if config.Width <= 0 {
		config.Width = def.Width
	}
	if config.Height <= 0 {
		config.Height = def.Height
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = def.Quality
	}
	return &Processor{config: config}
}

// Avatar decodes an image, fits it inside the configured box keeping its
// aspect ratio, and encodes it as JPEG. Smaller images are not enlarged.
func (p *Processor) Avatar(reader io.Reader) (*Avatar, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	fitted := img
	b := img.Bounds()
	if b.Dx() > p.config.Width || b.Dy() > p.config.Height {
		fitted = imaging.Fit(img, p.config.Width, p.config.Height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fitted, &jpeg.Options{Quality: p.config.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}

	return &Avatar{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       fitted.Bounds().Dx(),
		Height:      fitted.Bounds().Dy(),
	}, nil
}

// AvatarPath returns the storage key of a user's avatar.
func AvatarPath(userID, version string) string {
	return fmt.Sprintf("avatars/%s/%s.jpg", userID, version)
}
