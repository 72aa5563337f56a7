package imagecmp

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// pixelTolerance is the summed RGB difference below which two pixels match.
	pixelTolerance = 30
	// maxPixelDiff is the largest possible summed RGB difference (3 * 255).
	maxPixelDiff = 765

	pixelWeight      = 0.4
	structuralWeight = 0.3
	perceptualWeight = 0.3
)

// Options controls a single comparison.
type Options struct {
	Width     int
	Height    int
	Threshold float64 // minimum overall similarity (percent) counted as a match
	MaxPixels int64   // width*height limit per input; 0 means unlimited
}

// DefaultOptions returns a 512x512 grid with a 95% threshold and a 40 megapixel input limit.
func DefaultOptions() Options {
	return Options{Width: 512, Height: 512, Threshold: 95, MaxPixels: 40_000_000}
}

// ComparisonResult holds every score of one comparison. All similarities are percentages.
type ComparisonResult struct {
	PixelSimilarity      float64
	StructuralSimilarity float64
	PerceptualSimilarity float64
	OverallSimilarity    float64
	Match                bool

	HammingDistance int
	UploadedHash    string
	ReferenceHash   string
	Elapsed         time.Duration
}

type decoded struct {
	grid *image.NRGBA
	hash string
}

// Compare scores uploaded against reference. Both are decoded concurrently, resized to
// the same grid and compared pixel by pixel; perceptual hashes are taken from the
// images at their original resolution.
func Compare(uploaded, reference []byte, opts Options) (*ComparisonResult, error) {
	start := time.Now()
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, &ComparisonError{Op: "options", Err: fmt.Errorf("invalid grid %dx%d", opts.Width, opts.Height)}
	}

	var up, ref decoded
	var g errgroup.Group
	g.Go(func() (err error) {
		up, err = prepare("uploaded", uploaded, opts)
		return err
	})
	g.Go(func() (err error) {
		ref, err = prepare("reference", reference, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pixel, structural, err := PixelScores(up.grid, ref.grid)
	if err != nil {
		return nil, &ComparisonError{Op: "pixel scores", Err: err}
	}
	distance, err := HammingDistance(up.hash, ref.hash)
	if err != nil {
		return nil, &ComparisonError{Op: "hamming distance", Err: err}
	}
	perceptual := PerceptualSimilarity(distance)
	overall := OverallSimilarity(pixel, structural, perceptual)

	return &ComparisonResult{
		PixelSimilarity:      pixel,
		StructuralSimilarity: structural,
		PerceptualSimilarity: perceptual,
		OverallSimilarity:    overall,
		Match:                IsMatch(overall, opts.Threshold),
		HammingDistance:      distance,
		UploadedHash:         up.hash,
		ReferenceHash:        ref.hash,
		Elapsed:              time.Since(start),
	}, nil
}

func prepare(source string, data []byte, opts Options) (decoded, error) {
	img, err := decodeAs(source, data, opts.MaxPixels)
	if err != nil {
		return decoded{}, err
	}
	return decoded{
		grid: Resize(img, opts.Width, opts.Height),
		hash: AverageHash(img),
	}, nil
}

// PixelScores compares two equally sized images. pixel is the share of pixels whose
// summed RGB difference is below the tolerance; structural falls linearly with the
// total RGB difference.
func PixelScores(a, b *image.NRGBA) (pixel, structural float64, err error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() {
		return 0, 0, fmt.Errorf("size mismatch: %v vs %v", ab.Size(), bb.Size())
	}
	w, h := ab.Dx(), ab.Dy()
	total := w * h
	if total == 0 {
		return 0, 0, errors.New("empty pixel grid")
	}

	matching := 0
	var sumDiff int64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			diff := channelDiff(a.NRGBAAt(ab.Min.X+x, ab.Min.Y+y), b.NRGBAAt(bb.Min.X+x, bb.Min.Y+y))
			sumDiff += int64(diff)
			if diff < pixelTolerance {
				matching++
			}
		}
	}

	pixel = float64(matching) / float64(total) * 100
	structural = math.Max(0, 100-float64(sumDiff)/(float64(total)*maxPixelDiff)*100)
	return pixel, structural, nil
}

// channelDiff sums absolute R, G and B differences; alpha is ignored.
func channelDiff(p, q color.NRGBA) int {
	return absDiff(p.R, q.R) + absDiff(p.G, q.G) + absDiff(p.B, q.B)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// OverallSimilarity is the fixed weighted combination of the three scores.
func OverallSimilarity(pixel, structural, perceptual float64) float64 {
	return pixelWeight*pixel + structuralWeight*structural + perceptualWeight*perceptual
}

// IsMatch reports whether overall reaches threshold; equality counts as a match.
func IsMatch(overall, threshold float64) bool {
	return overall >= threshold
}
