package imagecmp

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// halves is black on the left half and white on the right half.
func halves(w, h int) *image.NRGBA {
	img := solid(w, h, color.Black)
	for y := 0; y < h; y++ {
		for x := w / 2; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func TestPerceptualHashDeterministic(t *testing.T) {
	data := encodePNG(t, gradient(200, 120))

	first, err := PerceptualHash(data)
	require.NoError(t, err)
	second, err := PerceptualHash(data)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, HashLength)
	assert.Equal(t, 256, HashLength)
	assert.Equal(t, strings.ToLower(first), first)
}

func TestPerceptualHashBitLayout(t *testing.T) {
	hash, err := PerceptualHash(encodePNG(t, halves(32, 32)))
	require.NoError(t, err)

	// each 32-pixel row: 16 dark bits then 16 bright bits
	assert.Equal(t, strings.Repeat("0000ffff", 32), hash)
}

func TestPerceptualHashUniformImage(t *testing.T) {
	hash, err := PerceptualHash(encodePNG(t, solid(64, 64, color.NRGBA{R: 90, G: 10, B: 200, A: 255})))
	require.NoError(t, err)

	// nothing is strictly above the mean
	assert.Equal(t, strings.Repeat("0", HashLength), hash)
}

func TestPerceptualHashDecodeError(t *testing.T) {
	_, err := PerceptualHash([]byte("definitely not an image"))
	var de *DecodeError
	require.True(t, errors.As(err, &de))

	_, err = PerceptualHash(nil)
	require.True(t, errors.As(err, &de))
}

func TestHammingDistance(t *testing.T) {
	a := strings.Repeat("0000ffff", 32)
	b := strings.Repeat("0f00ff0f", 32)

	d, err := HammingDistance(a, a)
	require.NoError(t, err)
	assert.Zero(t, d)

	ab, err := HammingDistance(a, b)
	require.NoError(t, err)
	ba, err := HammingDistance(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
	assert.Equal(t, 8*32, ab)

	d, err = HammingDistance("f", "0")
	require.NoError(t, err)
	assert.Equal(t, 4, d)

	d, err = HammingDistance("AB", "ab")
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestHammingDistanceErrors(t *testing.T) {
	_, err := HammingDistance("abc", "ab")
	var lm *LengthMismatchError
	require.True(t, errors.As(err, &lm))
	assert.Equal(t, 3, lm.Left)
	assert.Equal(t, 2, lm.Right)

	_, err = HammingDistance("0g", "00")
	var ih *InvalidHashError
	require.True(t, errors.As(err, &ih))
	assert.Equal(t, 1, ih.Pos)
}

func TestPerceptualSimilarity(t *testing.T) {
	assert.Equal(t, 100.0, PerceptualSimilarity(0))
	assert.InDelta(t, 50.0, PerceptualSimilarity(5), 1e-9)
	assert.Equal(t, 0.0, PerceptualSimilarity(10))
	assert.Equal(t, 0.0, PerceptualSimilarity(300))

	prev := PerceptualSimilarity(0)
	for d := 1; d <= HashLength*4; d++ {
		s := PerceptualSimilarity(d)
		assert.LessOrEqual(t, s, prev, "distance %d", d)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
		prev = s
	}
}
