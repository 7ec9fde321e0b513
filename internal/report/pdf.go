package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"

	"github.com/diewo77/inspection-workshop/internal/models"
)

// PDFOptions configure PDF generation.
type PDFOptions struct {
	// FontPath is a TTF file with Arabic glyphs. Without it the built-in
	// fonts are used and Arabic text is not shaped.
	FontPath   string
	FontFamily string
	// Images embeds note images; nil prints their URLs instead.
	Images ImageLoader
}

// PDF renders doc as an A4 document, paginated automatically.
func PDF(doc Document, opts PDFOptions) ([]byte, error) {
	doc.Style = sanitize(doc.Style)
	b := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).
		WithRightMargin(12).
		WithTopMargin(12)
	if opts.FontPath != "" {
		family := opts.FontFamily
		if family == "" {
			family = "report"
		}
		fonts, err := repository.New().
			AddUTF8Font(family, fontstyle.Normal, opts.FontPath).
			AddUTF8Font(family, fontstyle.Bold, opts.FontPath).
			Load()
		if err != nil {
			return nil, fmt.Errorf("load font: %w", err)
		}
		b = b.WithCustomFonts(fonts).WithDefaultFont(&props.Font{Family: family})
	}

	m := maroto.New(b.Build())
	m.AddRows(pdfRows(doc, opts)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return out.GetBytes(), nil
}

func pdfColor(hex string) *props.Color {
	c := hexColor(hex, nil)
	if c == nil {
		return nil
	}
	r, g, b, _ := c.RGBA()
	return &props.Color{Red: int(r >> 8), Green: int(g >> 8), Blue: int(b >> 8)}
}

// textAlign follows the reading direction of the document.
func textAlign(doc Document) align.Type {
	if doc.Dir == "rtl" {
		return align.Right
	}
	return align.Left
}

func pdfRows(doc Document, opts PDFOptions) []core.Row {
	st := doc.Style
	base := float64(st.FontSize)
	primary := pdfColor(st.PrimaryColor)
	body := props.Text{Size: base, Align: textAlign(doc), Color: pdfColor(st.TextColor)}
	bold := body
	bold.Style = fontstyle.Bold
	heading := props.Text{Size: base + 2, Style: fontstyle.Bold, Align: textAlign(doc), Color: primary}
	line := base * 0.6

	var rows []core.Row
	rows = append(rows,
		text.NewRow(float64(st.HeaderFontSize)*0.7, doc.Labels.Title, props.Text{
			Size: float64(st.HeaderFontSize), Style: fontstyle.Bold, Align: align.Center, Color: primary,
		}),
	)
	if doc.AppName != "" {
		rows = append(rows, text.NewRow(line, doc.AppName, props.Text{Size: base, Align: align.Center}))
	}

	pair := func(label, value string) core.Row {
		return row.New(line).Add(
			text.NewCol(4, label, bold),
			text.NewCol(8, value, body),
		)
	}
	rows = append(rows,
		pair(doc.Labels.RequestNumber, strconv.Itoa(doc.RequestNumber)),
		pair(doc.Labels.Date, doc.Date.Format("2006-01-02")),
		pair(doc.Labels.Client, strings.TrimSpace(doc.ClientName+" "+doc.ClientPhone)),
		pair(doc.Labels.Vehicle, vehicleLine(doc.Vehicle)),
	)
	if p := doc.Vehicle.Plate; p.IsChassis() {
		rows = append(rows, pair(doc.Labels.Chassis, p.Chassis))
	} else if p.Raw != "" {
		rows = append(rows, pair(doc.Labels.Plate, plateLine(p)))
	}
	if doc.InspectionType != "" {
		rows = append(rows, text.NewRow(line, doc.InspectionType, bold))
	}
	if doc.ShowPrice {
		rows = append(rows, pair(doc.Labels.Price, strconv.FormatFloat(doc.Price, 'f', 2, 64)))
	}
	for _, f := range doc.CustomFields {
		rows = append(rows, pair(f.Label, f.Value))
	}

	for _, s := range doc.Sections {
		rows = append(rows, row.New(line/2), text.NewRow(line+2, s.Name, heading))
		for _, f := range s.Findings {
			if f.HasResult {
				rows = append(rows, row.New(line).Add(
					text.NewCol(7, f.Name, body),
					text.NewCol(5, f.Value, bold),
				))
				continue
			}
			rows = append(rows, text.NewRow(line, f.Name, body))
		}
		rows = append(rows, noteRows(s.TextNotes, s.ImageNotes, line, body, opts.Images)...)
	}
	if len(doc.GeneralText) > 0 || len(doc.GeneralImages) > 0 {
		rows = append(rows, row.New(line/2), text.NewRow(line+2, doc.Labels.GeneralNotes, heading))
		rows = append(rows, noteRows(doc.GeneralText, doc.GeneralImages, line, body, opts.Images)...)
	}

	if doc.QRValue != "" {
		qrCol := code.NewQrCol(3, doc.QRValue, props.Rect{Center: true, Percent: 100})
		spacer := col.New(9)
		r := row.New(35)
		if doc.Style.QR.Position == "left" {
			r.Add(qrCol, spacer)
		} else {
			r.Add(spacer, qrCol)
		}
		rows = append(rows, row.New(line/2), r)
	}
	if doc.Disclaimer != "" {
		rows = append(rows, row.New(line/2), text.NewRow(line*2, doc.Disclaimer, props.Text{Size: base - 2, Align: textAlign(doc)}))
	}
	return rows
}

// noteRows prints text notes, then image notes: the image itself when the
// loader can provide it, otherwise the caption and URL.
func noteRows(textNotes, imageNotes []models.Note, line float64, body props.Text, load ImageLoader) []core.Row {
	var rows []core.Row
	for _, n := range textNotes {
		rows = append(rows, text.NewRow(line, "• "+n.Text, body))
	}
	for _, n := range imageNotes {
		if load != nil {
			if data, ext, err := load(n.ImageURL); err == nil {
				rows = append(rows, image.NewFromBytesRow(45, data, ext, props.Rect{Center: true, Percent: 95}))
				if n.Text != "" {
					rows = append(rows, text.NewRow(line, n.Text, props.Text{Size: body.Size - 1, Align: align.Center}))
				}
				continue
			}
		}
		caption := n.ImageURL
		if n.Text != "" {
			caption = n.Text + " - " + n.ImageURL
		}
		rows = append(rows, text.NewRow(line, caption, props.Text{Size: body.Size - 2, Align: body.Align}))
	}
	return rows
}

// ImageLoader returns the bytes and format of a stored image.
type ImageLoader func(url string) ([]byte, extension.Type, error)

func vehicleLine(v Vehicle) string {
	parts := []string{v.Make, v.Model}
	if v.Year > 0 {
		parts = append(parts, strconv.Itoa(v.Year))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func plateLine(p Plate) string {
	out := strings.TrimSpace(p.Letters + " " + p.Numbers)
	if p.LettersEn != "" && p.LettersEn != p.Letters {
		out += " / " + strings.TrimSpace(p.LettersEn+" "+p.Numbers)
	}
	return out
}
