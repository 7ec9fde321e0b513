package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/diewo77/inspection-workshop/internal/export"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/report"
	"github.com/diewo77/inspection-workshop/internal/state"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
)

// objectReader is implemented by storages able to hand back their objects.
type objectReader interface {
	Read(bucket storage.Bucket, objectPath string) ([]byte, error)
}

// ReportHandler renders inspection reports and spreadsheet exports.
type ReportHandler struct {
	Deps
	// BaseURL prefixes the verification link printed as a QR code.
	BaseURL  string
	FontPath string
}

func NewReportHandler(d Deps, baseURL, fontPath string) *ReportHandler {
	return &ReportHandler{Deps: d, BaseURL: strings.TrimRight(baseURL, "/"), FontPath: fontPath}
}

func (h *ReportHandler) verifyURL(id string) string {
	return h.BaseURL + "/requests/" + id + "/report"
}

// document builds the report of request id. The language is ?lang= when
// given, else the workshop default.
func (h *ReportHandler) document(r *http.Request) (report.Document, error) {
	id := r.PathValue("id")
	lang := ""
	if l := r.URL.Query().Get("lang"); l != "" {
		lang = Lang(r)
	}
	in, err := report.Assemble(h.State, id, lang, h.verifyURL(id))
	if errors.Is(err, report.ErrRequestNotFound) {
		return report.Document{}, fmt.Errorf("report %s: %w", id, state.ErrNotFound)
	}
	if err != nil {
		return report.Document{}, err
	}
	return report.Build(in), nil
}

// loadImage reads note images from the local store. Images elsewhere are
// printed as links.
func (h *ReportHandler) loadImage(url string) ([]byte, extension.Type, error) {
	rd, ok := h.Storage.(objectReader)
	if !ok {
		return nil, "", errors.New("storage cannot read objects")
	}
	bucket, p, ok := storage.PathFromURL(url)
	if !ok {
		return nil, "", storage.ErrInvalidPath
	}
	var ext extension.Type
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		ext = extension.Png
	case ".jpg", ".jpeg":
		ext = extension.Jpg
	default:
		return nil, "", fmt.Errorf("unsupported image %s", p)
	}
	data, err := rd.Read(bucket, p)
	if err != nil {
		return nil, "", err
	}
	return data, ext, nil
}

// PDF handles GET /api/requests/{id}/report.pdf. ?inline=1 opens it in the
// browser instead of downloading.
func (h *ReportHandler) PDF(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document(r)
	if err != nil {
		h.fail(w, r, err, "report_failed")
		return
	}
	out, err := report.PDF(doc, report.PDFOptions{FontPath: h.FontPath, Images: h.loadImage})
	if err != nil {
		h.fail(w, r, err, "report_failed")
		return
	}
	disp := "attachment"
	if r.URL.Query().Get("inline") == "1" {
		disp = "inline"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disp, doc.FileName()))
	http.ServeContent(w, r, doc.FileName(), time.Now(), bytes.NewReader(out))
}

// Preview handles GET /requests/{id}/report, the printable HTML page.
func (h *ReportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document(r)
	if errors.Is(err, state.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.logf("report preview: %v", err)
		http.Error(w, "report error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	opts := report.HTMLOptions{Toolbar: true, PDFURL: "/api/requests/" + r.PathValue("id") + "/report.pdf?inline=1"}
	if err := report.RenderHTML(&buf, doc, opts); err != nil {
		h.logf("report preview: %v", err)
		http.Error(w, "report error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *ReportHandler) sendSheet(w http.ResponseWriter, r *http.Request, kind string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.fail(w, r, err, "export_failed")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(kind, time.Now())))
	_, _ = buf.WriteTo(w)
}

// ExportRequests handles GET /api/export/requests.xlsx with the optional
// ?from=, ?to= and ?status= filters.
func (h *ReportHandler) ExportRequests(w http.ResponseWriter, r *http.Request) {
	p, v := periodFromQuery(r)
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	status := models.RequestStatus(r.URL.Query().Get("status"))
	var list []models.InspectionRequest
	for _, req := range h.State.Requests() {
		if p.Contains(req.CreatedAt) && (status == "" || req.Status == status) {
			list = append(list, req)
		}
	}
	slices.SortFunc(list, func(a, b models.InspectionRequest) int { return a.RequestNumber - b.RequestNumber })
	h.sendSheet(w, r, "requests", func(buf *bytes.Buffer) error {
		return export.Requests(buf, list, h.State, Lang(r))
	})
}

// ExportExpenses handles GET /api/export/expenses.xlsx.
func (h *ReportHandler) ExportExpenses(w http.ResponseWriter, r *http.Request) {
	p, v := periodFromQuery(r)
	if !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	var list []models.Expense
	for _, e := range h.State.Expenses() {
		if p.Contains(e.Date) {
			list = append(list, e)
		}
	}
	slices.SortFunc(list, func(a, b models.Expense) int { return a.Date.Compare(b.Date) })
	h.sendSheet(w, r, "expenses", func(buf *bytes.Buffer) error {
		return export.Expenses(buf, list, Lang(r))
	})
}
