package verify

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"image-verify/internal"
	"image-verify/internal/s3"
)

// ReferenceSource yields the bytes of the single reference image.
type ReferenceSource interface {
	Load(ctx context.Context) ([]byte, error)
	Location() string
}

// FileReference reads the reference from disk on every call.
type FileReference struct {
	Path string
}

func (r FileReference) Location() string { return r.Path }

func (r FileReference) Load(_ context.Context) ([]byte, error) {
	b, err := os.ReadFile(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ReferenceMissingError{Location: r.Path, Err: err}
		}
		return nil, err
	}
	if len(b) == 0 {
		return nil, &ReferenceMissingError{Location: r.Path, Err: errors.New("empty file")}
	}
	return b, nil
}

// ObjectReference reads the reference from S3 and keeps it for ttl, so repeated
// requests do not hit the bucket.
type ObjectReference struct {
	client s3.Client
	key    string
	ttl    time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	cached []byte
	exp    time.Time
}

func NewObjectReference(client s3.Client, key string, ttl time.Duration) *ObjectReference {
	return &ObjectReference{client: client, key: key, ttl: ttl, now: time.Now}
}

func (r *ObjectReference) Location() string { return "s3://" + r.key }

func (r *ObjectReference) Load(ctx context.Context) ([]byte, error) {
	r.mu.RLock()
	cached, exp := r.cached, r.exp
	r.mu.RUnlock()
	if cached != nil && r.now().Before(exp) {
		return cached, nil
	}

	b, _, err := r.client.GetBytes(ctx, r.key)
	if err != nil {
		if s3.IsNotExist(err) {
			return nil, &ReferenceMissingError{Location: r.Location(), Err: err}
		}
		return nil, err
	}
	if len(b) == 0 {
		return nil, &ReferenceMissingError{Location: r.Location(), Err: errors.New("empty object")}
	}

	r.mu.Lock()
	r.cached = b
	r.exp = r.now().Add(r.ttl)
	r.mu.Unlock()
	return b, nil
}

// NewReferenceSource picks S3 when REFERENCE_IMAGE_KEY is set, the local file otherwise.
func NewReferenceSource(cfg internal.Config, client s3.Client) ReferenceSource {
	if cfg.ReferenceImageKey != "" && client != nil {
		return NewObjectReference(client, cfg.ReferenceImageKey, cfg.ReferenceCacheTTL)
	}
	return FileReference{Path: cfg.ReferenceImagePath}
}
