package security

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrNoExtension       = errors.New("file has no extension")
	ErrExtensionNotImage = errors.New("file extension not allowed")
	ErrContentMismatch   = errors.New("file content does not match extension")
	ErrMIMENotAllowed    = errors.New("MIME type not allowed")
	ErrFileTooLarge      = errors.New("file too large")
	ErrEmptyFile         = errors.New("file is empty")
)

// Magic byte signatures for allowed image types
var magicBytes = map[string][][]byte{
	".jpg":  {{0xFF, 0xD8, 0xFF}},
	".jpeg": {{0xFF, 0xD8, 0xFF}},
	".png":  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	".gif":  {{0x47, 0x49, 0x46, 0x38, 0x37, 0x61}, {0x47, 0x49, 0x46, 0x38, 0x39, 0x61}}, // GIF87a & GIF89a
	".webp": {{0x52, 0x49, 0x46, 0x46}},                                                   // RIFF header
}

// Strict MIME types. application/octet-stream is never accepted.
var imageMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageCheck is the outcome of ValidateImage.
type ImageCheck struct {
	Extension    string
	DetectedMIME string
}

// ValidateImage performs 3-layer validation on an uploaded image:
// 1. Extension whitelist check
// 2. Magic byte verification (content matches extension)
// 3. Sniffed MIME type whitelist
func ValidateImage(filename string, data []byte, maxBytes int64) (ImageCheck, error) {
	var check ImageCheck
	if len(data) == 0 {
		return check, ErrEmptyFile
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return check, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return check, ErrNoExtension
	}
	check.Extension = ext

	// Layer 1: Extension whitelist
	signatures, ok := magicBytes[ext]
	if !ok {
		return check, ErrExtensionNotImage
	}

	// Layer 2: Magic bytes
	if !hasSignature(data, signatures) {
		return check, ErrContentMismatch
	}

	// Layer 3: MIME sniffing
	check.DetectedMIME = http.DetectContentType(data)
	if !imageMIMETypes[check.DetectedMIME] {
		return check, ErrMIMENotAllowed
	}
	return check, nil
}

func hasSignature(data []byte, signatures [][]byte) bool {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

// IsImageExtension checks if the extension is an accepted image type
func IsImageExtension(ext string) bool {
	_, ok := magicBytes[strings.ToLower(ext)]
	return ok
}
