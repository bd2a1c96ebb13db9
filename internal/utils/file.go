package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// ExtensionSuffix returns the lowercase extension without the leading dot,
// e.g. "photo.PNG" -> "png". Empty when the filename has no extension.
func ExtensionSuffix(filename string) string {
	return strings.TrimPrefix(GetFileExtension(filename), ".")
}

func IsAllowedFileType(filename string, allowedTypes []string) bool {
	ext := ExtensionSuffix(filename)

	for _, allowedType := range allowedTypes {
		if ext == allowedType {
			return true
		}
	}

	return false
}

// IsRasterImage reports whether the filename carries one of the raster
// image extensions the compressor recognizes.
func IsRasterImage(filename string) bool {
	return IsAllowedFileType(filename, AllowedImageTypes)
}

// BuildObjectKey derives the storage key for a payload: the path prefix,
// the content digest and the original file extension. The key depends only
// on the original bytes and the extension, never on compression settings,
// so byte-identical uploads always map to the same object.
func BuildObjectKey(pathPrefix, contentHex, filename string) string {
	ext := ExtensionSuffix(filename)
	if ext == "" {
		return pathPrefix + contentHex
	}
	return pathPrefix + contentHex + "." + ext
}

// ContentTypeForFilename derives the Content-Type header value from the
// file extension alone. Raster images map to image/<ext> verbatim (the
// provider does not care that image/jpg is not a registered type); other
// extensions fall back to the platform MIME table.
func ContentTypeForFilename(filename string) string {
	if IsRasterImage(filename) {
		return "image/" + ExtensionSuffix(filename)
	}

	if ct := mime.TypeByExtension(GetFileExtension(filename)); ct != "" {
		return ct
	}

	return "application/octet-stream"
}
