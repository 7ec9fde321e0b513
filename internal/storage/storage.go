// Package storage holds uploaded images (note photos, stamps, receipts,
// finding references) and serves them under public URLs of the form
// {base}/storage/v1/object/public/{bucket}/{path}.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Bucket is a top-level storage namespace.
type Bucket string

const (
	BucketImages   Bucket = "images"
	BucketStamps   Bucket = "stamps"
	BucketReceipts Bucket = "receipts"
	BucketFindings Bucket = "findings"
)

// Buckets lists the known buckets.
var Buckets = []Bucket{BucketImages, BucketStamps, BucketReceipts, BucketFindings}

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	for _, k := range Buckets {
		if k == b {
			return true
		}
	}
	return false
}

// PublicPrefix is the URL path under which objects are served.
const PublicPrefix = "/storage/v1/object/public/"

var (
	ErrInvalidBucket = errors.New("invalid_bucket")
	ErrInvalidPath   = errors.New("invalid_path")
	ErrNotFound      = errors.New("object_not_found")
)

// Storage uploads and removes objects.
type Storage interface {
	Upload(ctx context.Context, bucket Bucket, name, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, bucket Bucket, objectPath string) error
	PublicURL(bucket Bucket, objectPath string) string
}

// PathFromURL extracts bucket and object path from a public URL.
func PathFromURL(u string) (Bucket, string, bool) {
	i := strings.Index(u, PublicPrefix)
	if i < 0 {
		return "", "", false
	}
	rest := u[i+len(PublicPrefix):]
	if q := strings.IndexAny(rest, "?#"); q >= 0 {
		rest = rest[:q]
	}
	bucket, p, ok := strings.Cut(rest, "/")
	if !ok || p == "" || !Bucket(bucket).Valid() {
		return "", "", false
	}
	return Bucket(bucket), p, true
}

// FileStore keeps objects on the local filesystem, one directory per bucket.
type FileStore struct {
	root    string
	baseURL string
	maxSide int
}

// NewFileStore creates the bucket directories under root.
func NewFileStore(root, baseURL string, maxImageSide int) (*FileStore, error) {
	for _, b := range Buckets {
		if err := os.MkdirAll(filepath.Join(root, string(b)), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b, err)
		}
	}
	if maxImageSide <= 0 {
		maxImageSide = DefaultMaxSide
	}
	return &FileStore{root: root, baseURL: strings.TrimRight(baseURL, "/"), maxSide: maxImageSide}, nil
}

func cleanObjectPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") || strings.Contains(c, "\\") || c != p {
		return "", ErrInvalidPath
	}
	return c, nil
}

// Upload stores the content of r under a fresh name and returns its public URL.
// Images are normalised before being written.
func (s *FileStore) Upload(ctx context.Context, bucket Bucket, name, contentType string, r io.Reader) (string, error) {
	if !bucket.Valid() {
		return "", ErrInvalidBucket
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(name))
	var body io.Reader = r
	if IsImage(contentType) {
		data, newExt, err := NormalizeImage(r, contentType, s.maxSide)
		if err != nil {
			return "", err
		}
		body, ext = data, newExt
	}
	objectPath := uuid.NewString() + ext
	full := filepath.Join(s.root, string(bucket), filepath.FromSlash(objectPath))
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.PublicURL(bucket, objectPath), nil
}

// Remove deletes an object.
func (s *FileStore) Remove(_ context.Context, bucket Bucket, objectPath string) error {
	if !bucket.Valid() {
		return ErrInvalidBucket
	}
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, string(bucket), filepath.FromSlash(p)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// Read returns the content of an object.
func (s *FileStore) Read(bucket Bucket, objectPath string) ([]byte, error) {
	if !bucket.Valid() {
		return nil, ErrInvalidBucket
	}
	p, err := cleanObjectPath(objectPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, string(bucket), filepath.FromSlash(p)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// PublicURL returns the URL an object is served at.
func (s *FileStore) PublicURL(bucket Bucket, objectPath string) string {
	return s.baseURL + PublicPrefix + string(bucket) + "/" + objectPath
}

// Handler serves stored objects under PublicPrefix.
func (s *FileStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, PublicPrefix)
		bucket, p, ok := strings.Cut(rest, "/")
		if !ok || !Bucket(bucket).Valid() {
			http.NotFound(w, r)
			return
		}
		clean, err := cleanObjectPath(p)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, filepath.Join(s.root, bucket, filepath.FromSlash(clean)))
	})
}
