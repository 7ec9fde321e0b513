package report

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/png"
	"io"
	"strconv"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
	"money": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}).ParseFS(templateFS, "templates/report.html.tmpl"))

// HTMLOptions tune the on-screen preview.
type HTMLOptions struct {
	// Toolbar shows the print button and PDF link (hidden when printing).
	Toolbar bool
	PDFURL  string
}

type htmlView struct {
	Document
	Toolbar bool
	PDFURL  string
	QRImage template.URL
}

// RenderHTML writes the document as a standalone HTML page.
func RenderHTML(w io.Writer, doc Document, opts HTMLOptions) error {
	doc.Style = sanitize(doc.Style)
	v := htmlView{Document: doc, Toolbar: opts.Toolbar, PDFURL: opts.PDFURL}
	if doc.QRValue != "" {
		img, err := QRCodePNG(doc.QRValue, doc.Style.QR.Size, doc.Style.QR.Color, doc.Style.QR.BackgroundColor)
		if err != nil {
			return err
		}
		v.QRImage = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img))
	}
	return tmpl.ExecuteTemplate(w, "report.html.tmpl", v)
}

// QRCodePNG encodes value as a size×size PNG QR code in the given colors.
func QRCodePNG(value string, size int, fg, bg string) ([]byte, error) {
	code, err := qr.Encode(value, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("scale qr: %w", err)
	}
	on, off := hexColor(fg, color.Black), hexColor(bg, color.White)
	bounds := code.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := off
			if r, _, _, _ := code.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA(); r == 0 {
				c = on
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// hexColor parses #rgb or #rrggbb, returning fallback when invalid.
func hexColor(s string, fallback color.Color) color.Color {
	if !IsColor(s) {
		return fallback
	}
	s = s[1:]
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
