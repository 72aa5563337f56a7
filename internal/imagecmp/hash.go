package imagecmp

import (
	"image"
	"math"
	"math/bits"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	hashSize = 32
	hashBits = hashSize * hashSize

	// HashLength is the number of hex digits in a perceptual hash (4 bits each).
	HashLength = hashBits / 4

	// hammingCutoff is the distance at which perceptual similarity reaches 0%.
	hammingCutoff = 10
)

const hexDigits = "0123456789abcdef"

// PerceptualHash decodes data and returns its average hash.
func PerceptualHash(data []byte) (string, error) {
	img, err := Decode(data)
	if err != nil {
		return "", err
	}
	return AverageHash(img), nil
}

// AverageHash reduces img to a 32x32 grey thumbnail and emits one bit per pixel:
// 1 when the pixel is strictly brighter than the thumbnail mean. Bits are packed
// row-major into lowercase hex.
func AverageHash(img image.Image) string {
	grey := imaging.Grayscale(Resize(img, hashSize, hashSize))

	values := make([]uint8, 0, hashBits)
	sum := 0
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			// r == g == b after Grayscale
			v := grey.NRGBAAt(x, y).R
			values = append(values, v)
			sum += int(v)
		}
	}
	mean := float64(sum) / float64(len(values))

	var sb strings.Builder
	sb.Grow(HashLength)
	for i := 0; i < len(values); i += 4 {
		var nibble byte
		for _, v := range values[i : i+4] {
			nibble <<= 1
			if float64(v) > mean {
				nibble |= 1
			}
		}
		sb.WriteByte(hexDigits[nibble])
	}
	return sb.String()
}

// HammingDistance returns the number of differing bits between two hex hashes.
func HammingDistance(a, b string) (int, error) {
	if len(a) != len(b) {
		return 0, &LengthMismatchError{Left: len(a), Right: len(b)}
	}
	distance := 0
	for i := 0; i < len(a); i++ {
		x, ok := hexValue(a[i])
		if !ok {
			return 0, &InvalidHashError{Pos: i, Char: a[i]}
		}
		y, ok := hexValue(b[i])
		if !ok {
			return 0, &InvalidHashError{Pos: i, Char: b[i]}
		}
		distance += bits.OnesCount8(x ^ y)
	}
	return distance, nil
}

// PerceptualSimilarity maps a Hamming distance onto 0..100, reaching 0 at ten bits.
func PerceptualSimilarity(distance int) float64 {
	score := 100 - float64(distance)/hammingCutoff*100
	return math.Min(100, math.Max(0, score))
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
