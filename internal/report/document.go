// Package report maps a request and its related records onto a report
// document, then renders that document as HTML for preview/print or as an
// A4 PDF. Building the document is pure: the same input always yields the
// same document.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/diewo77/inspection-workshop/i18n"
	"github.com/diewo77/inspection-workshop/internal/models"
)

// Input is everything needed to build one report. Missing related records
// are nil.
type Input struct {
	Request        models.InspectionRequest
	Client         *models.Client
	Car            *models.Car
	Make           *models.CarMake
	Model          *models.CarModel
	InspectionType *models.InspectionType
	Categories     []models.CustomFindingCategory
	Findings       []models.PredefinedFinding
	Settings       models.Settings
	Lang           string
	// VerifyURL is encoded in the QR code when enabled.
	VerifyURL string
}

// Vehicle is the vehicle block of the report.
type Vehicle struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year,omitempty"`
	Plate        Plate  `json:"plate"`
	FromSnapshot bool   `json:"from_snapshot"`
}

// FindingRow is one inspected attribute. HasResult is false for a finding
// recorded without a value; such a row carries no result cell.
type FindingRow struct {
	Name      string `json:"name"`
	Value     string `json:"value,omitempty"`
	HasResult bool   `json:"has_result"`
}

// Section is one finding category of the report.
type Section struct {
	CategoryID string        `json:"category_id"`
	Name       string        `json:"name"`
	Findings   []FindingRow  `json:"findings"`
	TextNotes  []models.Note `json:"text_notes"`
	ImageNotes []models.Note `json:"image_notes"`
}

// Empty reports whether the section has nothing to show.
func (s Section) Empty() bool {
	return len(s.Findings) == 0 && len(s.TextNotes) == 0 && len(s.ImageNotes) == 0
}

// Labels are the localized captions of the report.
type Labels struct {
	Title         string
	RequestNumber string
	Date          string
	Client        string
	Vehicle       string
	Plate         string
	Chassis       string
	Price         string
	Notes         string
	GeneralNotes  string
}

// Document is the rendered-independent report.
type Document struct {
	Lang           string               `json:"lang"`
	Dir            string               `json:"dir"`
	Labels         Labels               `json:"-"`
	AppName        string               `json:"app_name"`
	LogoURL        string               `json:"logo_url,omitempty"`
	RequestID      string               `json:"request_id"`
	RequestNumber  int                  `json:"request_number"`
	Date           time.Time            `json:"date"`
	Status         models.RequestStatus `json:"status"`
	ClientName     string               `json:"client_name"`
	ClientPhone    string               `json:"client_phone,omitempty"`
	Vehicle        Vehicle              `json:"vehicle"`
	InspectionType string               `json:"inspection_type,omitempty"`
	Price          float64              `json:"price"`
	ShowPrice      bool                 `json:"show_price"`
	Sections       []Section            `json:"sections"`
	GeneralText    []models.Note        `json:"general_text_notes"`
	GeneralImages  []models.Note        `json:"general_image_notes"`
	CustomFields   []models.HeaderField `json:"custom_fields,omitempty"`
	Disclaimer     string               `json:"disclaimer,omitempty"`
	StampURL       string               `json:"stamp_url,omitempty"`
	QRValue        string               `json:"qr_value,omitempty"`
	Style          models.ReportStyle   `json:"style"`
}

// FileName returns the download name of the report PDF.
func FileName(requestNumber int) string {
	return fmt.Sprintf("report-%d.pdf", requestNumber)
}

// FileName returns the download name of d.
func (d Document) FileName() string { return FileName(d.RequestNumber) }

func labels(lang string) Labels {
	return Labels{
		Title:         i18n.T(lang, "report_title"),
		RequestNumber: i18n.T(lang, "request_number"),
		Date:          i18n.T(lang, "date"),
		Client:        i18n.T(lang, "client"),
		Vehicle:       i18n.T(lang, "vehicle"),
		Plate:         i18n.T(lang, "plate"),
		Chassis:       i18n.T(lang, "chassis"),
		Price:         i18n.T(lang, "price"),
		Notes:         i18n.T(lang, "notes"),
		GeneralNotes:  i18n.T(lang, "general_notes"),
	}
}

// Build maps in onto a Document.
func Build(in Input) Document {
	lang := i18n.Normalize(in.Lang)
	if in.Lang == "" && in.Settings.Language != "" {
		lang = i18n.Normalize(in.Settings.Language)
	}
	req := in.Request
	rs := in.Settings.Report

	doc := Document{
		Lang:          lang,
		Dir:           "rtl",
		Labels:        labels(lang),
		AppName:       in.Settings.AppName,
		LogoURL:       in.Settings.LogoURL,
		RequestID:     req.ID,
		RequestNumber: req.RequestNumber,
		Date:          req.CreatedAt,
		Status:        req.Status,
		Price:         req.Price,
		ShowPrice:     rs.ShowPrice,
		CustomFields:  rs.CustomFields,
		Disclaimer:    rs.Disclaimer,
		StampURL:      rs.StampURL,
		Style:         rs.ReportStyle,
		Vehicle:       vehicle(in, lang),
	}
	if lang == "en" {
		doc.Dir = "ltr"
	}
	if req.StampURL != "" {
		doc.StampURL = req.StampURL
	}
	if in.Client != nil {
		doc.ClientName = in.Client.Name
		doc.ClientPhone = in.Client.Phone
	}
	if in.InspectionType != nil {
		doc.InspectionType = in.InspectionType.Name
	}
	if rs.QR.Enabled && in.VerifyURL != "" {
		doc.QRValue = in.VerifyURL
	}
	doc.GeneralText, doc.GeneralImages = splitNotes(req.GeneralNotes)
	doc.Sections = sections(in)
	return doc
}

// vehicle prefers the snapshot captured at creation over the live records.
func vehicle(in Input, lang string) Vehicle {
	var v Vehicle
	if in.Car != nil {
		v.Plate = ParsePlate(in.Car.PlateNumber, in.Settings.PlateCharacters)
	}
	if snap, ok := in.Request.Snapshot(); ok {
		v.Make, v.Model, v.Year = snap.Make, snap.Model, snap.Year
		v.FromSnapshot = true
		return v
	}
	if in.Make != nil {
		v.Make = models.DisplayName(lang, in.Make.NameAr, in.Make.NameEn)
	}
	if in.Model != nil {
		v.Model = models.DisplayName(lang, in.Model.NameAr, in.Model.NameEn)
	}
	if in.Car != nil {
		v.Year = in.Car.Year
	}
	return v
}

func splitNotes(notes []models.Note) (text, images []models.Note) {
	for _, n := range notes {
		if n.HasImage() {
			images = append(images, n)
			continue
		}
		if strings.TrimSpace(n.Text) != "" {
			text = append(text, n)
		}
	}
	return text, images
}

// categoryOrder lists category ids in report order. With an inspection type
// only its own categories are printed, in its order. Without one every
// catalog category is listed, then categories the request references.
func categoryOrder(in Input) []string {
	seen := map[string]bool{}
	var order []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		order = append(order, id)
	}
	if in.InspectionType != nil {
		for _, id := range in.InspectionType.FindingCategoryIDs {
			add(id)
		}
		return order
	}
	for _, c := range in.Categories {
		add(c.ID)
	}
	// categories referenced by the request but missing from the catalog
	for _, f := range in.Request.Findings {
		add(f.CategoryID)
	}
	noted := make([]string, 0, len(in.Request.CategoryNotes.Data()))
	for id := range in.Request.CategoryNotes.Data() {
		noted = append(noted, id)
	}
	sort.Strings(noted)
	for _, id := range noted {
		add(id)
	}
	return order
}

func sections(in Input) []Section {
	names := make(map[string]string, len(in.Categories))
	for _, c := range in.Categories {
		names[c.ID] = c.Name
	}
	findingNames := make(map[string]string, len(in.Findings))
	for _, f := range in.Findings {
		findingNames[f.ID] = f.Name
	}
	byCategory := map[string][]FindingRow{}
	for _, f := range in.Request.Findings {
		name := findingNames[f.FindingID]
		if name == "" {
			name = f.FindingID
		}
		value := strings.TrimSpace(f.Value)
		byCategory[f.CategoryID] = append(byCategory[f.CategoryID], FindingRow{
			Name:      name,
			Value:     value,
			HasResult: value != "",
		})
	}

	var out []Section
	for _, id := range categoryOrder(in) {
		s := Section{CategoryID: id, Name: names[id], Findings: byCategory[id]}
		if s.Name == "" {
			s.Name = id
		}
		s.TextNotes, s.ImageNotes = splitNotes(in.Request.NotesFor(id))
		if s.Empty() {
			continue
		}
		out = append(out, s)
	}
	return out
}
