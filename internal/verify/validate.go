package verify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"image-verify/internal"
	"image-verify/internal/imagecmp"
)

// Upload is one submitted file as declared by the client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Validate checks the declared size and type. It never looks at the image bytes
// beyond their length.
func Validate(u Upload, cfg internal.Config) error {
	if u.Size <= 0 && len(u.Data) == 0 {
		return &ValidationError{Reason: "No file provided"}
	}
	if u.Size > cfg.MaxFileSize || int64(len(u.Data)) > cfg.MaxFileSize {
		return &ValidationError{Reason: fmt.Sprintf("File size exceeds %s limit", formatMB(cfg.MaxFileSize))}
	}
	if !lo.Contains(cfg.SupportedFormats, normalizeType(u.ContentType)) {
		return &ValidationError{Reason: "Unsupported file format. Please upload JPEG, PNG, or WebP images."}
	}
	return nil
}

// ValidateDimensions rejects uploads whose header declares more pixels than
// cfg.MaxImagePixels. Unreadable headers pass through and fail later as decode errors.
func ValidateDimensions(data []byte, cfg internal.Config) error {
	dim, err := imagecmp.Dimensions(data)
	if err != nil {
		return nil
	}
	if imagecmp.CheckPixels(dim.Width, dim.Height, cfg.MaxImagePixels) != nil {
		return &ValidationError{Reason: fmt.Sprintf("Image dimensions %dx%d exceed the %s pixel limit",
			dim.Width, dim.Height, formatPixels(cfg.MaxImagePixels))}
	}
	return nil
}

func formatPixels(n int64) string {
	if n >= 1_000_000 && n%100_000 == 0 {
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', -1, 64) + "MP"
	}
	return strconv.FormatInt(n, 10)
}

// normalizeType lowercases a content type and drops parameters such as charset.
func normalizeType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func formatMB(n int64) string {
	if n < 1024*1024 {
		return fmt.Sprintf("%dKB", n/1024)
	}
	mb := float64(n) / 1024 / 1024
	if mb == float64(int64(mb)) {
		return fmt.Sprintf("%dMB", int64(mb))
	}
	return fmt.Sprintf("%.1fMB", mb)
}
