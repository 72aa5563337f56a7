package imagecmp

import "fmt"

// DecodeError is returned when image bytes cannot be decoded.
type DecodeError struct {
	Source string // "uploaded", "reference" or empty
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode %s image: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DimensionsError reports an image whose pixel count is above the allowed limit.
type DimensionsError struct {
	Width, Height int
	MaxPixels     int64
}

func (e *DimensionsError) Error() string {
	return fmt.Sprintf("image is %dx%d, above the %d pixel limit", e.Width, e.Height, e.MaxPixels)
}

// LengthMismatchError is returned by HammingDistance for hashes of unequal length.
type LengthMismatchError struct {
	Left, Right int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("hashes must be of equal length (%d != %d)", e.Left, e.Right)
}

// InvalidHashError reports a non-hexadecimal character inside a hash.
type InvalidHashError struct {
	Pos  int
	Char byte
}

func (e *InvalidHashError) Error() string {
	return fmt.Sprintf("invalid hex digit %q at position %d", e.Char, e.Pos)
}

// ComparisonError wraps any failure during scoring that is not a decode error.
type ComparisonError struct {
	Op  string
	Err error
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("compare images: %s: %v", e.Op, e.Err)
}

func (e *ComparisonError) Unwrap() error { return e.Err }
