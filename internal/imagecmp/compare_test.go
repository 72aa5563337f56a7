package imagecmp

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareIdentical(t *testing.T) {
	data := encodePNG(t, gradient(300, 200))

	res, err := Compare(data, data, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.PixelSimilarity)
	assert.Equal(t, 100.0, res.StructuralSimilarity)
	assert.Equal(t, 100.0, res.PerceptualSimilarity)
	assert.InDelta(t, 100.0, res.OverallSimilarity, 1e-9)
	assert.True(t, res.Match)
	assert.Zero(t, res.HammingDistance)
	assert.Equal(t, res.UploadedHash, res.ReferenceHash)
}

func TestCompareBlackAgainstWhite(t *testing.T) {
	black := encodePNG(t, solid(512, 512, color.Black))
	white := encodePNG(t, solid(512, 512, color.White))

	res, err := Compare(black, white, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.PixelSimilarity)
	assert.Equal(t, 0.0, res.StructuralSimilarity)
	// both hashes are all zeros
	assert.Equal(t, 100.0, res.PerceptualSimilarity)
	assert.InDelta(t, 30.0, res.OverallSimilarity, 1e-9)
	assert.False(t, res.Match)
}

func TestCompareDifferentResolutions(t *testing.T) {
	c := color.NRGBA{R: 40, G: 120, B: 220, A: 255}
	small := encodePNG(t, solid(100, 50, c))
	large := encodePNG(t, solid(640, 480, c))

	res, err := Compare(small, large, Options{Width: 64, Height: 64, Threshold: 95})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.PixelSimilarity)
	assert.True(t, res.Match)
}

func TestCompareDecodeErrors(t *testing.T) {
	good := encodePNG(t, gradient(16, 16))

	_, err := Compare([]byte("junk"), good, DefaultOptions())
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "uploaded", de.Source)

	_, err = Compare(good, nil, DefaultOptions())
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "reference", de.Source)
}

func TestCompareInvalidOptions(t *testing.T) {
	data := encodePNG(t, gradient(16, 16))
	_, err := Compare(data, data, Options{Width: 0, Height: 10})
	var ce *ComparisonError
	require.True(t, errors.As(err, &ce))
}

func TestPixelScoresTolerance(t *testing.T) {
	ref := solid(4, 4, color.Black)

	below := solid(4, 4, color.NRGBA{R: 10, G: 10, B: 9, A: 255})
	pixel, structural, err := PixelScores(below, ref)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pixel)
	assert.InDelta(t, 100-29.0/765*100, structural, 1e-9)

	at := solid(4, 4, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	pixel, _, err = PixelScores(at, ref)
	require.NoError(t, err)
	assert.Equal(t, 0.0, pixel)
}

func TestPixelScoresIgnoresAlpha(t *testing.T) {
	a := solid(2, 2, color.NRGBA{R: 50, G: 60, B: 70, A: 255})
	b := solid(2, 2, color.NRGBA{R: 50, G: 60, B: 70, A: 10})
	pixel, structural, err := PixelScores(a, b)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pixel)
	assert.Equal(t, 100.0, structural)
}

func TestPixelScoresPartialMatch(t *testing.T) {
	a := solid(2, 2, color.Black)
	b := solid(2, 2, color.Black)
	b.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	pixel, structural, err := PixelScores(a, b)
	require.NoError(t, err)
	assert.Equal(t, 75.0, pixel)
	assert.InDelta(t, 75.0, structural, 1e-9)
}

func TestPixelScoresSizeMismatch(t *testing.T) {
	_, _, err := PixelScores(image.NewNRGBA(image.Rect(0, 0, 2, 2)), image.NewNRGBA(image.Rect(0, 0, 3, 2)))
	assert.Error(t, err)
}

func TestOverallSimilarityIsLinear(t *testing.T) {
	for _, p := range []float64{0, 12.5, 50, 99.9, 100} {
		for _, s := range []float64{0, 33.3, 100} {
			for _, h := range []float64{0, 70, 100} {
				assert.InDelta(t, 0.4*p+0.3*s+0.3*h, OverallSimilarity(p, s, h), 1e-9)
			}
		}
	}
	assert.InDelta(t, 100.0, OverallSimilarity(100, 100, 100), 1e-9)
	assert.Equal(t, 0.0, OverallSimilarity(0, 0, 0))
}

func TestIsMatchBoundary(t *testing.T) {
	assert.True(t, IsMatch(95, 95))
	assert.False(t, IsMatch(94, 95))
	assert.True(t, IsMatch(100, 95))
	assert.True(t, IsMatch(0, 0))
}

// withPNGSize rewrites the IHDR width and height of an encoded PNG. The pixel data is
// left alone, so only a header read can succeed on the result.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	require.True(t, len(data) > 33 && string(data[12:16]) == "IHDR")
	out := bytes.Clone(data)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestCompareRejectsOversizedDimensions(t *testing.T) {
	ref := encodePNG(t, gradient(16, 16))
	huge := withPNGSize(t, encodePNG(t, solid(8, 8, color.Gray{Y: 128})), 12000, 12000)

	cfg, err := Dimensions(huge)
	require.NoError(t, err)
	assert.Equal(t, 12000, cfg.Width)

	_, err = Compare(huge, ref, DefaultOptions())
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "uploaded", de.Source)
	var dim *DimensionsError
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 12000, dim.Height)
	assert.Equal(t, int64(40_000_000), dim.MaxPixels)
}

func TestCompareMaxPixelsBoundary(t *testing.T) {
	data := encodePNG(t, gradient(20, 10))
	opts := Options{Width: 16, Height: 16, Threshold: 95, MaxPixels: 200}

	_, err := Compare(data, data, opts)
	require.NoError(t, err)

	opts.MaxPixels = 199
	_, err = Compare(data, data, opts)
	var dim *DimensionsError
	require.True(t, errors.As(err, &dim))

	opts.MaxPixels = 0
	_, err = Compare(data, data, opts)
	require.NoError(t, err)
}

// 1x1 lossless WebP
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestDecodeWebP(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "webp", format)

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1, 1), img.Bounds().Size())

	res, err := Compare(data, data, Options{Width: 8, Height: 8, Threshold: 95})
	require.NoError(t, err)
	assert.True(t, res.Match)
	assert.Equal(t, 100.0, res.PixelSimilarity)
}
