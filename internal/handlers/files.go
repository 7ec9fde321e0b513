package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/diewo77/inspection-workshop/validation"
)

// MaxUploadBytes bounds multipart uploads.
const MaxUploadBytes = 15 << 20

var errNoFile = errors.New("no file")

type uploaded struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

// upload stores the multipart file of field in bucket. It returns errNoFile
// when the form carries no such file.
func (d Deps) upload(r *http.Request, field string, bucket storage.Bucket) (uploaded, error) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		return uploaded{}, fmt.Errorf("parse form: %w", err)
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return uploaded{}, errNoFile
	}
	if err != nil {
		return uploaded{}, err
	}
	defer f.Close()
	ct := hdr.Header.Get("Content-Type")
	url, err := d.Storage.Upload(r.Context(), bucket, hdr.Filename, ct, f)
	if err != nil {
		return uploaded{}, err
	}
	return uploaded{URL: url, Name: hdr.Filename, ContentType: ct}, nil
}

// UploadHandler stores files in the public buckets.
type UploadHandler struct {
	Deps
}

func NewUploadHandler(d Deps) *UploadHandler { return &UploadHandler{Deps: d} }

// Upload handles POST /api/uploads/{bucket} with a "file" form field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	bucket := storage.Bucket(r.PathValue("bucket"))
	if !bucket.Valid() {
		h.fail(w, r, storage.ErrInvalidBucket, "upload_failed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	up, err := h.upload(r, "file", bucket)
	if errors.Is(err, errNoFile) {
		h.invalid(w, r, validation.Violations{"file": "required"})
		return
	}
	if err != nil {
		h.fail(w, r, err, "upload_failed")
		return
	}
	httpx.JSON(w, http.StatusCreated, up)
}

// Remove handles DELETE /api/uploads?url=... for files no longer referenced.
func (h *UploadHandler) Remove(w http.ResponseWriter, r *http.Request) {
	bucket, p, ok := storage.PathFromURL(r.URL.Query().Get("url"))
	if !ok {
		h.fail(w, r, storage.ErrInvalidPath, "delete_failed")
		return
	}
	if err := h.Storage.Remove(r.Context(), bucket, p); err != nil {
		h.fail(w, r, err, "delete_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"removed": string(bucket) + "/" + p})
}
