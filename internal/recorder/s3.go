package recorder

import (
	"context"
	"path"

	"image-verify/internal/model"
	"image-verify/internal/s3"
)

// S3 stores each record as its own JSON object under prefix/YYYY-MM-DD/<id>.json.
type S3 struct {
	client s3.Client
	prefix string
}

func NewS3(client s3.Client, prefix string) *S3 {
	return &S3{client: client, prefix: prefix}
}

func (r *S3) Name() string { return "s3" }

func (r *S3) Record(ctx context.Context, rec model.VerificationRecord) error {
	return r.client.WriteJSON(ctx, r.Key(rec), &rec)
}

func (r *S3) Key(rec model.VerificationRecord) string {
	return path.Join(r.prefix, rec.CreatedAt.UTC().Format("2006-01-02"), rec.ID+".json")
}
