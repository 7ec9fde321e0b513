package handlers

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/internal/ai"
	"github.com/diewo77/inspection-workshop/internal/export"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/state"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) addRequest(status models.RequestStatus, price float64) models.InspectionRequest {
	e.t.Helper()
	c := e.addClient("Client " + string(status))
	req := models.InspectionRequest{ClientID: c.ID, Status: status, Price: price}
	require.NoError(e.t, e.deps.State.CreateRequest(bg, &req, state.Actor{ID: e.gm.ID, Name: e.gm.Name}))
	return req
}

func TestReportPDF(t *testing.T) {
	e := newTestEnv(t)
	h := NewReportHandler(e.deps, "https://workshop.test/", "")
	e.route("GET /api/requests/{id}/report.pdf", gate.PrintReports, h.PDF)
	req := e.addRequest(models.StatusComplete, 300)

	w := e.do(http.MethodGet, "/api/requests/"+req.ID+"/report.pdf?lang=en&inline=1", nil, &e.gm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "inline;"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = e.do(http.MethodGet, "/api/requests/missing/report.pdf", nil, &e.gm)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/api/requests/"+req.ID+"/report.pdf", nil, &e.clerk)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReportPreview(t *testing.T) {
	e := newTestEnv(t)
	h := NewReportHandler(e.deps, "https://workshop.test", "")
	e.route("GET /requests/{id}/report", gate.PrintReports, h.Preview)
	req := e.addRequest(models.StatusNew, 300)

	w := e.do(http.MethodGet, "/requests/"+req.ID+"/report?lang=en", nil, &e.gm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/api/requests/"+req.ID+"/report.pdf?inline=1")

	w = e.do(http.MethodGet, "/requests/missing/report", nil, &e.gm)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExports(t *testing.T) {
	e := newTestEnv(t)
	h := NewReportHandler(e.deps, "", "")
	e.route("GET /api/export/requests.xlsx", gate.ViewFinancials, h.ExportRequests)
	e.route("GET /api/export/expenses.xlsx", gate.ManageExpenses, h.ExportExpenses)
	e.addRequest(models.StatusNew, 300)
	e.addRequest(models.StatusComplete, 450)
	exp := models.Expense{Description: "Rent", Amount: 1000, Date: time.Now()}
	require.NoError(t, e.deps.State.AddExpense(bg, &exp))

	for _, path := range []string{
		"/api/export/requests.xlsx",
		"/api/export/requests.xlsx?status=complete",
		"/api/export/expenses.xlsx?from=2020-01-01",
	} {
		w := e.do(http.MethodGet, path, nil, &e.gm)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
	}

	w := e.do(http.MethodGet, "/api/export/expenses.xlsx?to=31-12-2020", nil, &e.gm)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = e.do(http.MethodGet, "/api/export/requests.xlsx", nil, &e.clerk)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func plateUpload(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 120))
	for x := 0; x < 400; x++ {
		img.Set(x, 60, color.White)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", "plate.png")
	require.NoError(t, err)
	require.NoError(t, png.Encode(fw, img))
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestPlate(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", "https://ai.test/v1beta/models/m:generateContent",
		httpmock.NewStringResponder(http.StatusOK,
			`{"candidates":[{"content":{"parts":[{"text":"LETTERS: أ ب ج\nNUMBERS: 1234"}]}}]}`))

	e := newTestEnv(t)
	h := NewAIHandler(e.deps, ai.New(ai.Config{APIKey: "k", Model: "m", BaseURL: "https://ai.test/v1beta/"}))
	e.route("POST /api/ai/plate", gate.UseAI, h.Plate)

	send := func(fields map[string]string) *httptest.ResponseRecorder {
		body, ct := plateUpload(t, fields)
		r := httptest.NewRequest(http.MethodPost, "/api/ai/plate", body)
		r.Header.Set("Content-Type", ct)
		r.Header.Set("Accept-Language", "en")
		r = r.WithContext(auth.WithEmployeeID(r.Context(), e.gm.ID))
		w := httptest.NewRecorder()
		e.mux.ServeHTTP(w, r)
		return w
	}

	w := send(map[string]string{"lang": "en", "x": "10", "y": "10", "w": "200", "h": "80"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decode[plateView](t, w)
	assert.Equal(t, "أ ب ج", v.LettersAr)
	assert.Equal(t, "A B J", v.LettersEn)
	assert.Equal(t, "A B J", v.Letters)
	assert.Equal(t, "1234", v.Numbers)
	assert.Equal(t, "أ ب ج 1234", v.Plate)

	w = send(map[string]string{"x": "-1", "y": "0", "w": "1", "h": "1"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid", decode[errorBody](t, w).Details.Fields["crop"])

	httpmock.RegisterResponder("POST", "https://ai.test/v1beta/models/m:generateContent",
		httpmock.NewStringResponder(http.StatusOK,
			`{"candidates":[{"content":{"parts":[{"text":"no plate here"}]}}]}`))
	w = send(nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ai_no_plate", decode[errorBody](t, w).Error)
}
