package utils

// Application Constants
const (
	AppName    = "picbed"
	AppVersion = "1.0.0"

	// Compression
	JPEGQualityStart = 92
	JPEGQualityFloor = 20
	JPEGQualityStep  = 8

	// Upload
	BytesPerMB = 1024 * 1024
)

var (
	// AllowedImageTypes is the extension set the compressor recognizes.
	// Anything outside it is uploaded as-is.
	AllowedImageTypes = []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"}
)
