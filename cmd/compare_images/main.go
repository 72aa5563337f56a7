package main

import (
	"flag"
	"fmt"
	"log"
	"math/bits"
	"os"

	"github.com/vitali-fedulov/imagehash2"
	"github.com/vitali-fedulov/images4"

	"image-verify/internal/imagecmp"
	"image-verify/internal/verify"
)

const (
	hashNumBuckets = 4
	hashEpsilon    = 0.25
)

func main() {
	image1Path := flag.String("img1", "", "Path to uploaded image")
	image2Path := flag.String("img2", "", "Path to reference image")
	threshold := flag.Float64("threshold", imagecmp.DefaultOptions().Threshold, "Match threshold in percent")
	flag.Parse()

	if *image1Path == "" || *image2Path == "" {
		log.Fatal("Usage: compare_images -img1 <path1> -img2 <path2> [-threshold 95]")
	}

	fmt.Printf("Comparing images:\n  Image 1: %s\n  Image 2: %s\n\n", *image1Path, *image2Path)

	data1, err := os.ReadFile(*image1Path)
	if err != nil {
		log.Fatalf("Failed to read image 1: %v", err)
	}
	data2, err := os.ReadFile(*image2Path)
	if err != nil {
		log.Fatalf("Failed to read image 2: %v", err)
	}

	// 1. File hash comparison (identical files)
	hash1 := verify.ContentHash(data1)
	hash2 := verify.ContentHash(data2)

	fmt.Printf("1. FILE HASH COMPARISON:\n")
	fmt.Printf("   Image 1 SHA256: %s\n", hash1)
	fmt.Printf("   Image 2 SHA256: %s\n", hash2)
	if hash1 == hash2 {
		fmt.Printf("   Result: ✓ IDENTICAL FILES\n\n")
	} else {
		fmt.Printf("   Result: ✗ Different files\n\n")
	}

	// 2. Verification scores, the same ones the server reports
	opts := imagecmp.DefaultOptions()
	opts.Threshold = *threshold
	res, err := imagecmp.Compare(data1, data2, opts)
	if err != nil {
		log.Fatalf("Failed to compare images: %v", err)
	}

	fmt.Printf("2. VERIFICATION SCORES (%dx%d grid):\n", opts.Width, opts.Height)
	fmt.Printf("   Pixel similarity:      %s%%\n", verify.FormatPercent(res.PixelSimilarity))
	fmt.Printf("   Structural similarity: %s%%\n", verify.FormatPercent(res.StructuralSimilarity))
	fmt.Printf("   Perceptual similarity: %s%% (hamming %d bits)\n", verify.FormatPercent(res.PerceptualSimilarity), res.HammingDistance)
	fmt.Printf("   Overall:               %s%%\n", verify.FormatPercent(res.OverallSimilarity))
	if res.Match {
		fmt.Printf("   Result: ✓ MATCH (threshold %.1f%%)\n\n", opts.Threshold)
	} else {
		fmt.Printf("   Result: ✗ NO MATCH (threshold %.1f%%)\n\n", opts.Threshold)
	}

	// 3. Secondary perceptual check
	fmt.Printf("3. ICON COMPARISON:\n")
	img1, err := imagecmp.Decode(data1)
	if err != nil {
		log.Fatalf("Failed to decode image 1: %v", err)
	}
	img2, err := imagecmp.Decode(data2)
	if err != nil {
		log.Fatalf("Failed to decode image 2: %v", err)
	}
	icon1 := images4.Icon(img1)
	icon2 := images4.Icon(img2)
	central1 := imagehash2.CentralHash9(icon1, hashEpsilon, hashNumBuckets)
	central2 := imagehash2.CentralHash9(icon2, hashEpsilon, hashNumBuckets)

	fmt.Printf("   Image 1 central hash: %016x\n", central1)
	fmt.Printf("   Image 2 central hash: %016x\n", central2)
	fmt.Printf("   Differing bits: %d\n", bits.OnesCount64(central1^central2))
	if images4.Similar(icon1, icon2) {
		fmt.Printf("   Result: ✓ SIMILAR ICONS\n\n")
	} else {
		fmt.Printf("   Result: ✗ DIFFERENT ICONS\n\n")
	}

	fmt.Printf("SUMMARY:\n")
	switch {
	case hash1 == hash2:
		fmt.Printf("  Images are: IDENTICAL (same file)\n")
	case res.Match:
		fmt.Printf("  Images are: MATCHING (%s%%)\n", verify.FormatPercent(res.OverallSimilarity))
	default:
		fmt.Printf("  Images are: DIFFERENT (%s%%)\n", verify.FormatPercent(res.OverallSimilarity))
	}
}
