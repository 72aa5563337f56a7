package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	"github.com/joho/godotenv"

	"image-verify/internal"
	"image-verify/internal/imagecmp"
	"image-verify/internal/s3"
	"image-verify/internal/verify"
)

// Prints the fingerprints of the configured reference image so they can be
// pinned in deployment notes or compared against uploads by hand.
func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	path := flag.String("path", "", "Reference image file (defaults to the configured reference)")
	flag.Parse()

	cfg, err := internal.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *path != "" {
		cfg.ReferenceImagePath = *path
		cfg.ReferenceImageKey = ""
	}

	var s3c s3.Client
	if cfg.ReferenceImageKey != "" {
		if s3c, err = s3.New(cfg); err != nil {
			fmt.Printf("Error creating S3 client: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ref := verify.NewReferenceSource(cfg, s3c)
	data, err := ref.Load(ctx)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	img, err := imagecmp.Decode(data)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	phash, err := goimagehash.PerceptionHash(imaging.Resize(img, 256, 256, imaging.Lanczos))
	if err != nil {
		fmt.Printf("❌ perception hash: %v\n", err)
		os.Exit(1)
	}

	b := img.Bounds()
	fmt.Printf("Reference: %s\n", ref.Location())
	fmt.Printf("  Size:         %dx%d, %d bytes\n", b.Dx(), b.Dy(), len(data))
	fmt.Printf("  SHA256:       %s\n", verify.ContentHash(data))
	fmt.Printf("  Average hash: %s\n", imagecmp.AverageHash(img))
	fmt.Printf("  DCT pHash:    %016x\n", phash.GetHash())
}
