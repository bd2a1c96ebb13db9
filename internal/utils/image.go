package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// TransformLimits bounds the compressor output. A zero or negative field
// disables that bound.
type TransformLimits struct {
	MaxSizeBytes int64
	MaxDimension int
}

// ProgressFunc receives fractional progress in the 0-100 range. Values are
// monotonically non-decreasing; the final value on success is 100, and no
// terminal value is emitted on error.
type ProgressFunc func(percent float64)

type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func GetImageDimensions(data []byte) (*ImageDimensions, error) {
	config, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// CompressImage re-encodes a raster image payload so that it fits within
// limits, downscaling the longest edge first and then trading JPEG quality
// for size. The input slice is never modified; a payload that already fits
// both bounds is returned unchanged. Filenames outside the recognized
// raster set are also returned unchanged.
func CompressImage(data []byte, filename string, limits TransformLimits, progress ProgressFunc) ([]byte, error) {
	if !IsRasterImage(filename) {
		reportProgress(progress, 100)
		return data, nil
	}

	dims, err := GetImageDimensions(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	if fitsLimits(int64(len(data)), dims, limits) {
		reportProgress(progress, 100)
		return data, nil
	}

	reportProgress(progress, 10)

	img, err := decodeImage(data, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	reportProgress(progress, 30)

	if limits.MaxDimension > 0 {
		img = downscale(img, uint(limits.MaxDimension))
	}

	reportProgress(progress, 50)

	// Walk JPEG quality down until the payload fits. PNG and the other
	// lossless formats have no quality knob, so everything re-encodes as
	// JPEG; the object key and content type still follow the original
	// filename.
	steps := 1 + (JPEGQualityStart-JPEGQualityFloor)/JPEGQualityStep
	step := 0
	for quality := JPEGQualityStart; quality >= JPEGQualityFloor; quality -= JPEGQualityStep {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}

		step++
		reportProgress(progress, 50+40*float64(step)/float64(steps))

		if limits.MaxSizeBytes <= 0 || int64(buf.Len()) <= limits.MaxSizeBytes {
			reportProgress(progress, 100)
			return buf.Bytes(), nil
		}
	}

	return nil, fmt.Errorf("image exceeds %d bytes at minimum quality", limits.MaxSizeBytes)
}

func fitsLimits(size int64, dims *ImageDimensions, limits TransformLimits) bool {
	if limits.MaxSizeBytes > 0 && size > limits.MaxSizeBytes {
		return false
	}
	if limits.MaxDimension > 0 && (dims.Width > limits.MaxDimension || dims.Height > limits.MaxDimension) {
		return false
	}
	return true
}

func downscale(img image.Image, maxDimension uint) image.Image {
	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())

	if width <= maxDimension && height <= maxDimension {
		return img
	}

	// Scale the longest edge to the bound, keeping aspect ratio.
	var newWidth, newHeight uint
	if width >= height {
		newWidth = maxDimension
		newHeight = uint(float64(height) * float64(maxDimension) / float64(width))
	} else {
		newWidth = uint(float64(width) * float64(maxDimension) / float64(height))
		newHeight = maxDimension
	}

	return resize.Resize(newWidth, newHeight, img, resize.Lanczos3)
}

func decodeImage(data []byte, filename string) (image.Image, error) {
	reader := bytes.NewReader(data)

	switch GetFileExtension(filename) {
	case ".jpg", ".jpeg":
		return jpeg.Decode(reader)
	case ".png":
		return png.Decode(reader)
	case ".gif":
		return gif.Decode(reader)
	case ".bmp":
		return bmp.Decode(reader)
	case ".webp":
		return webp.Decode(reader)
	default:
		// Try generic decode
		img, _, err := image.Decode(reader)
		return img, err
	}
}

func reportProgress(progress ProgressFunc, percent float64) {
	if progress != nil {
		progress(percent)
	}
}
