// Package imagecmp compares an uploaded image against a reference image using an
// average perceptual hash and pixel-level difference scores.
package imagecmp

import (
	"bytes"
	"errors"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// resampleFilter is used for every resize so that pixel grids of both images line up
// and hashes stay reproducible.
var resampleFilter = imaging.Linear

var errEmptyImage = errors.New("empty image data")

// Decode decodes JPEG, PNG, GIF, BMP, TIFF or WebP bytes.
func Decode(data []byte) (image.Image, error) {
	return DecodeLimited(data, 0)
}

// Dimensions reads only the image header.
func Dimensions(data []byte) (image.Config, error) {
	if len(data) == 0 {
		return image.Config{}, &DecodeError{Err: errEmptyImage}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, &DecodeError{Err: err}
	}
	return cfg, nil
}

// DecodeLimited is Decode with the header checked against maxPixels first, so an
// oversized raster is never allocated. maxPixels <= 0 disables the check.
func DecodeLimited(data []byte, maxPixels int64) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errEmptyImage}
	}
	if maxPixels > 0 {
		cfg, err := Dimensions(data)
		if err != nil {
			return nil, err
		}
		if err := CheckPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
			return nil, &DecodeError{Err: err}
		}
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Err: errEmptyImage}
	}
	return img, nil
}

// CheckPixels returns a *DimensionsError when width*height exceeds maxPixels.
func CheckPixels(width, height int, maxPixels int64) error {
	if maxPixels > 0 && int64(width)*int64(height) > maxPixels {
		return &DimensionsError{Width: width, Height: height, MaxPixels: maxPixels}
	}
	return nil
}

func decodeAs(source string, data []byte, maxPixels int64) (image.Image, error) {
	img, err := DecodeLimited(data, maxPixels)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Source = source
		}
		return nil, err
	}
	return img, nil
}

// Resize scales img to exactly width x height.
func Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, resampleFilter)
}
