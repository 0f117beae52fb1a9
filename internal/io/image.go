package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// DefaultCoverSize is the longest edge, in pixels, of cover art we write.
const DefaultCoverSize = 1000

// ImageService prepares cover art found in a source library for the
// output tree.
//
// Cover art is normalized to a JPEG no larger than a square bounding box;
// artwork that already satisfies this is passed through byte for byte.
type ImageService struct {
	quality int
}

// NewImageService creates a new ImageService encoding JPEGs at quality 90.
func NewImageService() *ImageService {
	return &ImageService{quality: 90}
}

// NeedsProcessing reports whether data has to be re-encoded to become a
// JPEG within maxSize x maxSize. Undecodable data reports an error.
func (s *ImageService) NeedsProcessing(data []byte, maxSize int) (bool, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	return format != "jpeg" || cfg.Width > maxSize || cfg.Height > maxSize, nil
}

// FitJPEG returns data as a JPEG that fits within maxSize x maxSize.
//
// If data already is such a JPEG it is returned unchanged, avoiding a
// lossy re-encode.
func (s *ImageService) FitJPEG(ctx context.Context, data []byte, maxSize int) ([]byte, error) {
	needed, err := s.NeedsProcessing(data, maxSize)
	if err != nil {
		return nil, err
	}
	if !needed {
		return data, nil
	}
	return s.ResizeImage(ctx, data, maxSize, maxSize)
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and images that are already small enough
// keep their size. The result is always JPEG encoded. The Catmull-Rom
// kernel is used for scaling.
//
// Example:
//
//	// A 1500x1000 PNG becomes a 1000x667 JPEG
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return s.encode(dst)
}

func (s *ImageService) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitWithin scales width x height down, preserving aspect ratio, so that
// neither edge exceeds its maximum.
func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}
