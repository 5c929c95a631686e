package media

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go-panel-backend/internal/domain"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const jpegQuality = 85

// Downscale shrinks the image so that its longest side is at most
// maxDimension, keeping the aspect ratio. Images already within bounds, and
// any call with maxDimension <= 0, return the upload untouched. PNG output
// stays PNG; every other format is re-encoded as JPEG.
func Downscale(up domain.Upload, maxDimension int) (domain.Upload, error) {
	if maxDimension <= 0 {
		return up, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(up.Data))
	if err != nil {
		return up, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= maxDimension && cfg.Height <= maxDimension {
		return up, nil
	}
	// Animated GIFs would lose their frames.
	if up.ContentType == "image/gif" {
		if g, err := gif.DecodeAll(bytes.NewReader(up.Data)); err == nil && len(g.Image) > 1 {
			return up, nil
		}
	}

	img, format, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		return up, fmt.Errorf("failed to decode image (format: %s): %w", format, err)
	}

	bounds := img.Bounds()
	w, h := fitWithin(bounds.Dx(), bounds.Dy(), maxDimension)
	resized := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	out := up
	if format == "png" {
		err = png.Encode(&buf, resized)
		out.ContentType = "image/png"
	} else {
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality})
		out.ContentType = "image/jpeg"
		out.Filename = replaceExt(up.Filename, ".jpg")
	}
	if err != nil {
		return up, fmt.Errorf("failed to encode image: %w", err)
	}
	out.Data = buf.Bytes()
	return out, nil
}

func fitWithin(width, height, max int) (int, int) {
	if width >= height {
		if width <= max {
			return width, height
		}
		return max, maxInt(1, int(float64(height)*float64(max)/float64(width)))
	}
	if height <= max {
		return width, height
	}
	return maxInt(1, int(float64(width)*float64(max)/float64(height))), max
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func replaceExt(filename, ext string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ext
}

// SanitizeFilename keeps ASCII letters, digits, '_' and '-' in the base name
// and a lowercase extension. Spaces become underscores.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	base = strings.ReplaceAll(base, " ", "_")

	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		b.WriteString("file")
	}

	var cleanExt strings.Builder
	for _, r := range ext {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			cleanExt.WriteRune(r)
		}
	}
	if cleanExt.Len() > 1 {
		b.WriteString(cleanExt.String())
	}
	return b.String()
}

// ObjectKey builds "<prefix>/<unix-ms>-<sanitized filename>".
func ObjectKey(prefix, filename string, now time.Time) string {
	return prefix + "/" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + SanitizeFilename(filename)
}
