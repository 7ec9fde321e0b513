package handlers

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) upload(path, field string, data []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		fw, err := mw.CreateFormFile(field, "photo.png")
		require.NoError(e.t, err)
		_, err = fw.Write(data)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, path, &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r = r.WithContext(auth.WithEmployeeID(r.Context(), e.gm.ID))
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, r)
	return w
}

func TestUploads(t *testing.T) {
	e := newTestEnv(t)
	h := NewUploadHandler(e.deps)
	e.mux.Handle("POST /api/uploads/{bucket}", e.deps.Gate.RequireSubject(http.HandlerFunc(h.Upload)))
	e.mux.Handle("DELETE /api/uploads", e.deps.Gate.RequireSubject(http.HandlerFunc(h.Remove)))

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 40, 30))))

	w := e.upload("/api/uploads/images", "file", img.Bytes())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	up := decode[uploaded](t, w)
	assert.True(t, strings.HasPrefix(up.URL, "http://test"+storage.PublicPrefix+"images/"), up.URL)

	bucket, p, ok := storage.PathFromURL(up.URL)
	require.True(t, ok)
	_, err := e.files.Read(bucket, p)
	require.NoError(t, err)

	w = e.upload("/api/uploads/secrets", "file", img.Bytes())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.upload("/api/uploads/images", "other", img.Bytes())
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "required", decode[errorBody](t, w).Details.Fields["file"])

	del := "/api/uploads?url=" + url.QueryEscape(up.URL)
	w = e.do(http.MethodDelete, del, nil, &e.gm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, err = e.files.Read(bucket, p)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	w = e.do(http.MethodDelete, "/api/uploads?url=not-a-storage-url", nil, &e.gm)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
