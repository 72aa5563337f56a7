// Package verify turns an upload into a verification: validation, content hash,
// reference lookup, comparison and hand-off to the recorders.
package verify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"image-verify/internal"
	"image-verify/internal/imagecmp"
	"image-verify/internal/logging"
	"image-verify/internal/model"
)

// Notifier receives finished verifications. Notify must not block.
type Notifier interface {
	Notify(rec model.VerificationRecord)
}

// Verification is the outcome of one upload.
type Verification struct {
	ID             string
	Filename       string
	ContentHash    string // sha256 of the uploaded bytes, hex
	Result         imagecmp.ComparisonResult
	Threshold      float64
	ProcessingTime time.Duration
}

type Verifier struct {
	cfg      internal.Config
	ref      ReferenceSource
	notifier Notifier
	log      *logging.Logger
}

func NewVerifier(cfg internal.Config, ref ReferenceSource, notifier Notifier, log *logging.Logger) *Verifier {
	return &Verifier{cfg: cfg, ref: ref, notifier: notifier, log: log}
}

func (v *Verifier) Config() internal.Config { return v.cfg }

func (v *Verifier) Reference() ReferenceSource { return v.ref }

// Verify validates u, compares it against the reference and notifies the recorders.
// Validation errors are returned before any hashing or decoding happens.
func (v *Verifier) Verify(ctx context.Context, u Upload) (*Verification, error) {
	start := time.Now()

	if err := Validate(u, v.cfg); err != nil {
		v.log.Infof("verify: rejected %q (%s, %d bytes): %v", u.Filename, u.ContentType, u.Size, err)
		return nil, err
	}
	if len(u.Data) == 0 {
		return nil, &ValidationError{Reason: "No file provided"}
	}
	if err := ValidateDimensions(u.Data, v.cfg); err != nil {
		v.log.Infof("verify: rejected %q: %v", u.Filename, err)
		return nil, err
	}

	hash := ContentHash(u.Data)
	v.log.Infof("verify: %q received (%.2f KB, %s), sha256 %s...", u.Filename, float64(len(u.Data))/1024, u.ContentType, hash[:16])

	reference, err := v.ref.Load(ctx)
	if err != nil {
		return nil, err
	}

	res, err := imagecmp.Compare(u.Data, reference, v.cfg.CompareOptions())
	if err != nil {
		return nil, err
	}

	out := &Verification{
		ID:             uuid.NewString(),
		Filename:       u.Filename,
		ContentHash:    hash,
		Result:         *res,
		Threshold:      v.cfg.SimilarityThreshold,
		ProcessingTime: time.Since(start),
	}

	v.log.Infof("verify: %s match=%t overall=%.2f%% pixel=%.2f structural=%.2f perceptual=%.2f hamming=%d in %v",
		out.ID, res.Match, res.OverallSimilarity, res.PixelSimilarity, res.StructuralSimilarity,
		res.PerceptualSimilarity, res.HammingDistance, out.ProcessingTime)

	if v.notifier != nil {
		v.notifier.Notify(out.Record(start))
	}
	return out, nil
}

// Record converts the verification into what the recorders store.
func (vr *Verification) Record(at time.Time) model.VerificationRecord {
	return model.VerificationRecord{
		ID:                   vr.ID,
		Filename:             vr.Filename,
		MatchResult:          vr.Result.Match,
		ContentHash:          vr.ContentHash,
		SimilarityPercentage: vr.Result.OverallSimilarity,
		CreatedAt:            at.UTC(),
	}
}

// ContentHash is the hex SHA-256 of data.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FormatPercent renders a score with two decimals, as returned to clients.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
