// Package export writes spreadsheets of requests and expenses.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/diewo77/inspection-workshop/i18n"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Lookup resolves display names for the referenced records.
type Lookup interface {
	ClientByID(id string) (models.Client, bool)
	InspectionType(id string) (models.InspectionType, bool)
	Broker(id string) (models.Broker, bool)
}

type sheet struct {
	name    string
	headers []string
	rows    [][]any
	widths  []float64
}

// Requests writes one row per request.
func Requests(w io.Writer, requests []models.InspectionRequest, lk Lookup, lang string) error {
	s := sheet{
		name: "Requests",
		headers: []string{
			i18n.T(lang, "request_number"), i18n.T(lang, "date"), i18n.T(lang, "client"),
			"Phone", "Inspection", "Status", i18n.T(lang, "price"), "Payment",
			"Broker", "Commission", "Earnings", "Created by",
		},
		widths: []float64{12, 18, 24, 16, 20, 14, 12, 12, 20, 12, 12, 20},
	}
	for _, r := range requests {
		var client, phone, inspection, broker string
		if c, ok := lk.ClientByID(r.ClientID); ok {
			client, phone = c.Name, c.Phone
		}
		if t, ok := lk.InspectionType(r.InspectionTypeID); ok {
			inspection = t.Name
		}
		if r.BrokerID != nil {
			if b, ok := lk.Broker(*r.BrokerID); ok {
				broker = b.Name
			}
		}
		s.rows = append(s.rows, []any{
			r.RequestNumber,
			r.CreatedAt.Format("2006-01-02 15:04"),
			client,
			phone,
			inspection,
			i18n.T(lang, "status_"+string(r.Status)),
			r.Price,
			string(r.PaymentType),
			broker,
			r.BrokerCommission,
			r.Earnings(),
			r.EmployeeName,
		})
	}
	return s.write(w)
}

// Expenses writes one row per expense followed by a total row.
func Expenses(w io.Writer, expenses []models.Expense, lang string) error {
	s := sheet{
		name:    "Expenses",
		headers: []string{i18n.T(lang, "date"), "Category", "Description", "Amount", "Receipt"},
		widths:  []float64{14, 18, 40, 12, 40},
	}
	var total float64
	for _, e := range expenses {
		total += e.Amount
		s.rows = append(s.rows, []any{e.Date.Format(time.DateOnly), e.Category, e.Description, e.Amount, e.ReceiptImageURL})
	}
	s.rows = append(s.rows, []any{"", "", "Total", total, ""})
	return s.write(w)
}

func (s sheet) write(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(s.name)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if f.GetSheetName(0) != s.name {
		f.DeleteSheet("Sheet1")
	}

	header := make([]any, len(s.headers))
	for i, h := range s.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		_ = f.SetRowStyle(s.name, 1, 1, headerStyle)
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	for i, width := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.name, col, col, width); err != nil {
			return err
		}
	}
	if err := f.SetPanes(s.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}

// FileName returns the download name of an export.
func FileName(kind string, now time.Time) string {
	return fmt.Sprintf("%s-%s.xlsx", kind, now.Format("20060102"))
}
