package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var table = models.DefaultPlateCharacters()

func TestTransliterate(t *testing.T) {
	assert.Equal(t, "A B J", Transliterate("أ ب ج", table))
	assert.Equal(t, "AX?", Transliterate("أص?", table), "unmapped characters are kept")

	custom := []models.PlateCharacterPair{{Ar: "هـ", En: "H"}, {Ar: "ه", En: "E"}}
	assert.Equal(t, "H E", Transliterate("هـ ه", custom), "longest match wins")
}

func TestTransliterateIsReversible(t *testing.T) {
	for _, pair := range table {
		en := Transliterate(pair.Ar, table)
		require.Equal(t, pair.En, en)
		assert.Equal(t, pair.Ar, Reverse(en, table))
		assert.Equal(t, pair.Ar, Reverse(strings.ToLower(en), table), "reverse ignores case")
	}
	assert.Equal(t, "أ ب ج", Reverse("A B J", table))
}

func TestParsePlate(t *testing.T) {
	p := ParsePlate("أ ب ج 1234", table)
	assert.Equal(t, "أ ب ج", p.Letters)
	assert.Equal(t, "A B J", p.LettersEn)
	assert.Equal(t, "1234", p.Numbers)
	assert.False(t, p.IsChassis())

	p = ParsePlate("١٢٣ د ر", table)
	assert.Equal(t, "123", p.Numbers, "arabic-indic digits")
	assert.Equal(t, "د ر", p.Letters)
	assert.Equal(t, "D R", p.LettersEn)

	p = ParsePlate(models.ChassisMarker+" WVWZZZ1JZXW000001", table)
	assert.True(t, p.IsChassis())
	assert.Equal(t, "WVWZZZ1JZXW000001", p.Chassis)
	assert.Empty(t, p.Letters)

	assert.Equal(t, "أ ب 12", FormatPlate(" أ  ب ", "12"))
}

func fixture() Input {
	withFinding := models.CustomFindingCategory{Base: models.Base{ID: "cat-body"}, Name: "Body"}
	withNotes := models.CustomFindingCategory{Base: models.Base{ID: "cat-engine"}, Name: "Engine"}
	empty := models.CustomFindingCategory{Base: models.Base{ID: "cat-tyres"}, Name: "Tyres"}

	req := models.InspectionRequest{
		Base:          models.Base{ID: "r1", CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		RequestNumber: 1006,
		ClientID:      "c1",
		CarID:         "car1",
		Price:         350,
		Findings: datatypes.JSONSlice[models.Finding]{
			{CategoryID: "cat-body", FindingID: "f-bumper", Value: "Repainted"},
			{CategoryID: "cat-body", FindingID: "f-roof", Value: "  "},
		},
		GeneralNotes: datatypes.JSONSlice[models.Note]{
			{ID: "n1", Text: "Customer waiting"},
			{ID: "n2", Text: "Dent", ImageURL: "http://x/storage/v1/object/public/images/a.jpg"},
		},
		CategoryNotes: datatypes.NewJSONType(map[string][]models.Note{
			"cat-engine": {{ID: "n3", Text: "Oil leak"}, {ID: "n4", ImageURL: "http://x/img.png"}},
		}),
	}
	req.SetSnapshot(models.CarSnapshot{Make: "Toyota", Model: "Camry", Year: 2019})

	return Input{
		Request: req,
		Client:  &models.Client{Name: "Ali", Phone: "0500"},
		Car:     &models.Car{MakeID: "m1", ModelID: "mo1", Year: 2023, PlateNumber: "أ ب ج 1234"},
		Make:    &models.CarMake{NameAr: "نيسان", NameEn: "Nissan"},
		Model:   &models.CarModel{NameAr: "صني", NameEn: "Sunny"},
		InspectionType: &models.InspectionType{
			Name:               "Full",
			FindingCategoryIDs: datatypes.JSONSlice[string]{"cat-engine", "cat-tyres", "cat-body"},
		},
		Categories: []models.CustomFindingCategory{withFinding, withNotes, empty},
		Findings: []models.PredefinedFinding{
			{Base: models.Base{ID: "f-bumper"}, Name: "Front bumper", CategoryID: "cat-body"},
			{Base: models.Base{ID: "f-roof"}, Name: "Roof", CategoryID: "cat-body"},
		},
		Settings:  models.DefaultSettings(),
		Lang:      "en",
		VerifyURL: "http://localhost:8080/requests/r1/report",
	}
}

func TestBuildUsesSnapshot(t *testing.T) {
	doc := Build(fixture())
	assert.Equal(t, "Toyota", doc.Vehicle.Make)
	assert.Equal(t, "Camry", doc.Vehicle.Model)
	assert.Equal(t, 2019, doc.Vehicle.Year)
	assert.True(t, doc.Vehicle.FromSnapshot)
	assert.Equal(t, "A B J", doc.Vehicle.Plate.LettersEn)

	in := fixture()
	in.Request.CarSnapshot = datatypes.NewJSONType[*models.CarSnapshot](nil)
	doc = Build(in)
	assert.Equal(t, "Nissan", doc.Vehicle.Make)
	assert.Equal(t, "Sunny", doc.Vehicle.Model)
	assert.Equal(t, 2023, doc.Vehicle.Year)

	in.Lang = "ar"
	assert.Equal(t, "نيسان", Build(in).Vehicle.Make)
}

func TestBuildSections(t *testing.T) {
	doc := Build(fixture())
	require.Len(t, doc.Sections, 2, "empty category omitted")
	assert.Equal(t, "Engine", doc.Sections[0].Name, "inspection type order")
	assert.Equal(t, "Body", doc.Sections[1].Name)

	engine := doc.Sections[0]
	assert.Empty(t, engine.Findings)
	require.Len(t, engine.TextNotes, 1)
	require.Len(t, engine.ImageNotes, 1)
	assert.Equal(t, "n4", engine.ImageNotes[0].ID)

	body := doc.Sections[1]
	require.Len(t, body.Findings, 2)
	assert.Equal(t, FindingRow{Name: "Front bumper", Value: "Repainted", HasResult: true}, body.Findings[0])
	assert.Equal(t, FindingRow{Name: "Roof"}, body.Findings[1], "blank value has no result")

	require.Len(t, doc.GeneralText, 1)
	require.Len(t, doc.GeneralImages, 1)
	assert.Equal(t, "report-1006.pdf", doc.FileName())
	assert.Equal(t, "ltr", doc.Dir)
	assert.Equal(t, "http://localhost:8080/requests/r1/report", doc.QRValue)
}

func TestBuildSectionsFollowInspectionType(t *testing.T) {
	in := fixture()
	in.InspectionType.FindingCategoryIDs = datatypes.JSONSlice[string]{"cat-body"}
	doc := Build(in)
	require.Len(t, doc.Sections, 1, "engine notes are outside the type")
	assert.Equal(t, "Body", doc.Sections[0].Name)

	in.InspectionType = nil
	doc = Build(in)
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Body", doc.Sections[0].Name, "catalog order without a type")
	assert.Equal(t, "Engine", doc.Sections[1].Name)
}

func TestBuildIsDeterministic(t *testing.T) {
	assert.Equal(t, Build(fixture()), Build(fixture()))
}

func TestRenderHTML(t *testing.T) {
	in := fixture()
	in.Settings.Report.PrimaryColor = "red;}</style><script>alert(1)</script>"
	in.Settings.Report.FontFamily = "x; background:url(evil)"
	doc := Build(in)

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, doc, HTMLOptions{Toolbar: true, PDFURL: "/api/requests/r1/report.pdf"}))
	html := buf.String()

	assert.Contains(t, html, "Front bumper")
	assert.Contains(t, html, "Repainted")
	assert.Contains(t, html, "Engine")
	assert.NotContains(t, html, "Tyres")
	assert.Contains(t, html, "Toyota Camry")
	assert.Contains(t, html, "data:image/png;base64,")
	assert.Contains(t, html, "window.print()")
	assert.NotContains(t, html, "<script>alert")
	assert.NotContains(t, html, "evil")
	assert.Contains(t, html, "--primary: #1e3a8a", "invalid color falls back to default")
}

func TestPDF(t *testing.T) {
	loads := 0
	out, err := PDF(Build(fixture()), PDFOptions{
		Images: func(string) ([]byte, extension.Type, error) {
			loads++
			return nil, "", assert.AnError
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, 2, loads, "one load per image note")
}

func TestThemes(t *testing.T) {
	th, ok := ThemeByName("EMERALD")
	require.True(t, ok)
	style := th.Apply(models.DefaultSettings().Report.ReportStyle)
	assert.Equal(t, "#047857", style.PrimaryColor)
	assert.Equal(t, "Cairo, sans-serif", style.FontFamily)
	assert.Equal(t, 12, style.FontSize, "non-theme fields untouched")

	bad := Theme{PrimaryColor: "blue", FontFamily: "a;b"}
	style = bad.Apply(models.DefaultSettings().Report.ReportStyle)
	assert.Equal(t, "#1e3a8a", style.PrimaryColor)

	_, ok = ThemeByName("nope")
	assert.False(t, ok)
}

func TestSanitizeKeepsZeroSpacing(t *testing.T) {
	style := models.DefaultSettings().Report.ReportStyle
	style.CardPadding = 0
	style.CardRadius = 0
	style.FontSize = 0
	style.CardColumns = 9
	got := sanitize(style)
	assert.Equal(t, 0, got.CardPadding)
	assert.Equal(t, 0, got.CardRadius)
	assert.Equal(t, 12, got.FontSize, "zero below a positive bound means unset")
	assert.Equal(t, 4, got.CardColumns)

	style.CardPadding = -3
	assert.Equal(t, 12, sanitize(style).CardPadding)
}

type fakeSource struct{ in Input }

func (f fakeSource) Request(id string) (models.InspectionRequest, bool) {
	return f.in.Request, id == f.in.Request.ID
}
func (f fakeSource) ClientByID(string) (models.Client, bool) { return *f.in.Client, true }
func (f fakeSource) Car(string) (models.Car, bool)           { return *f.in.Car, true }
func (f fakeSource) Make(string) (models.CarMake, bool)      { return models.CarMake{}, false }
func (f fakeSource) Model(string) (models.CarModel, bool)    { return *f.in.Model, true }
func (f fakeSource) InspectionType(string) (models.InspectionType, bool) {
	return models.InspectionType{}, false
}
func (f fakeSource) Categories() []models.CustomFindingCategory { return f.in.Categories }
func (f fakeSource) Findings() []models.PredefinedFinding       { return f.in.Findings }
func (f fakeSource) Settings() models.Settings                  { return f.in.Settings }

func TestAssemble(t *testing.T) {
	src := fakeSource{in: fixture()}
	in, err := Assemble(src, "r1", "en", "")
	require.NoError(t, err)
	assert.NotNil(t, in.Client)
	assert.NotNil(t, in.Car)
	assert.Nil(t, in.Make)
	assert.NotNil(t, in.Model)
	assert.Nil(t, in.InspectionType)

	_, err = Assemble(src, "missing", "en", "")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
