package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/inspection-workshop/internal/db"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/diewo77/inspection-workshop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// memStorage records removals and can be told to fail.
type memStorage struct {
	mu      sync.Mutex
	removed []string
	fail    bool
}

func (m *memStorage) Upload(_ context.Context, b storage.Bucket, name, _ string, _ io.Reader) (string, error) {
	return "http://test" + storage.PublicPrefix + string(b) + "/" + name, nil
}

func (m *memStorage) Remove(_ context.Context, b storage.Bucket, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("storage down")
	}
	m.removed = append(m.removed, string(b)+"/"+p)
	return nil
}

func (m *memStorage) PublicURL(b storage.Bucket, p string) string {
	return "http://test" + storage.PublicPrefix + string(b) + "/" + p
}

func newTestStore(t *testing.T) (*Store, *gorm.DB, *memStorage) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	objects := &memStorage{}
	s := New(store.New(gdb, objects), WithLogger(log.New(io.Discard, "", 0)))
	return s, gdb, objects
}

var ctx = context.Background()

func TestNextRequestNumber(t *testing.T) {
	s, _, _ := newTestStore(t)
	assert.Equal(t, 1001, s.NextRequestNumber(), "empty list starts at 1001")

	c := &models.Client{Name: "Ali"}
	require.NoError(t, s.AddClient(ctx, c))
	for _, n := range []int{1002, 1005, 1003} {
		r := &models.InspectionRequest{ClientID: c.ID, RequestNumber: n}
		require.NoError(t, s.client.Requests.Insert(ctx, r))
	}
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, 1006, s.NextRequestNumber())

	req := &models.InspectionRequest{ClientID: c.ID}
	require.NoError(t, s.CreateRequest(ctx, req, Actor{ID: "e1", Name: "Sara"}))
	assert.Equal(t, 1006, req.RequestNumber)
	assert.Equal(t, 1007, s.NextRequestNumber())
	assert.Equal(t, models.StatusNew, req.Status)
	require.Len(t, req.ActivityLog, 1)
	assert.Equal(t, ActionCreated, req.ActivityLog[0].Action)
	assert.Equal(t, "Sara", req.EmployeeName)
}

func TestCreateRequest_CapturesCarSnapshot(t *testing.T) {
	s, _, _ := newTestStore(t)
	mk, err := s.FindOrCreateMake(ctx, "Toyota", "تويوتا")
	require.NoError(t, err)
	md, err := s.FindOrCreateModel(ctx, mk.ID, "Camry", "كامري")
	require.NoError(t, err)
	car := &models.Car{MakeID: mk.ID, ModelID: md.ID, Year: 2019}
	require.NoError(t, s.AddCar(ctx, car))

	req := &models.InspectionRequest{ClientID: "c1", CarID: car.ID}
	require.NoError(t, s.CreateRequest(ctx, req, Actor{}))
	snap, ok := req.Snapshot()
	require.True(t, ok)
	assert.Equal(t, models.CarSnapshot{Make: "Toyota", Model: "Camry", Year: 2019}, snap)

	stored, err := s.client.Requests.Get(ctx, req.ID)
	require.NoError(t, err)
	got, ok := stored.Snapshot()
	require.True(t, ok)
	assert.Equal(t, snap, got)
}

func TestDeleteClient_GuardedByRequests(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	c := &models.Client{Name: "Ali"}
	require.NoError(t, s.AddClient(ctx, c))
	req := &models.InspectionRequest{ClientID: c.ID}
	require.NoError(t, s.CreateRequest(ctx, req, Actor{}))

	err := s.DeleteClient(ctx, c.ID)
	assert.ErrorIs(t, err, ErrClientHasRequests)

	var clients, requests int64
	gdb.Model(&models.Client{}).Count(&clients)
	gdb.Model(&models.InspectionRequest{}).Count(&requests)
	assert.EqualValues(t, 1, clients)
	assert.EqualValues(t, 1, requests)
	assert.Len(t, s.Clients(), 1)
	assert.Len(t, s.Requests(), 1)

	require.NoError(t, s.DeleteRequest(ctx, req.ID))
	require.NoError(t, s.DeleteClient(ctx, c.ID))
	assert.Empty(t, s.Clients())
}

func TestDeleteMake_CascadesModels(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	toyota, _ := s.FindOrCreateMake(ctx, "Toyota", "")
	nissan, _ := s.FindOrCreateMake(ctx, "Nissan", "")
	_, _ = s.FindOrCreateModel(ctx, toyota.ID, "Camry", "")
	_, _ = s.FindOrCreateModel(ctx, toyota.ID, "Corolla", "")
	_, _ = s.FindOrCreateModel(ctx, nissan.ID, "Sunny", "")

	require.NoError(t, s.DeleteMake(ctx, toyota.ID))

	var left []models.CarModel
	require.NoError(t, gdb.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, nissan.ID, left[0].MakeID)
	require.Len(t, s.Models(), 1)
	assert.Equal(t, "Sunny", s.Models()[0].NameEn)
	assert.Len(t, s.Makes(), 1)
}

func TestDeleteCategory_CascadesFindings(t *testing.T) {
	s, gdb, objects := newTestStore(t)
	ext := &models.CustomFindingCategory{Name: "Exterior"}
	eng := &models.CustomFindingCategory{Name: "Engine"}
	require.NoError(t, s.AddCategory(ctx, ext))
	require.NoError(t, s.AddCategory(ctx, eng))
	require.NoError(t, s.AddFinding(ctx, &models.PredefinedFinding{Name: "Hood", CategoryID: ext.ID,
		ReferenceImageURL: "http://test/storage/v1/object/public/findings/hood.jpg"}))
	require.NoError(t, s.AddFinding(ctx, &models.PredefinedFinding{Name: "Roof", CategoryID: ext.ID}))
	require.NoError(t, s.AddFinding(ctx, &models.PredefinedFinding{Name: "Oil", CategoryID: eng.ID}))

	require.NoError(t, s.DeleteCategory(ctx, ext.ID))

	var n int64
	gdb.Model(&models.PredefinedFinding{}).Where("category_id = ?", ext.ID).Count(&n)
	assert.Zero(t, n)
	require.Len(t, s.Findings(), 1)
	assert.Equal(t, "Oil", s.Findings()[0].Name)
	assert.Equal(t, []string{"findings/hood.jpg"}, objects.removed)
}

func TestDelete_ImageRemovalIsBestEffort(t *testing.T) {
	s, _, objects := newTestStore(t)
	objects.fail = true
	e := &models.Expense{Amount: 10, ReceiptImageURL: "http://test/storage/v1/object/public/receipts/r.jpg"}
	require.NoError(t, s.AddExpense(ctx, e))
	require.NoError(t, s.DeleteExpense(ctx, e.ID))
	assert.Empty(t, s.Expenses())
}

func TestFindOrCreateMake_CaseInsensitive(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	a, err := s.FindOrCreateMake(ctx, "Toyota", "تويوتا")
	require.NoError(t, err)
	b, err := s.FindOrCreateMake(ctx, "  TOYOTA ", "")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	var n int64
	gdb.Model(&models.CarMake{}).Count(&n)
	assert.EqualValues(t, 1, n)

	m1, _ := s.FindOrCreateModel(ctx, a.ID, "Camry", "")
	m2, _ := s.FindOrCreateModel(ctx, a.ID, "camry", "")
	assert.Equal(t, m1.ID, m2.ID)
}

func TestUpdateSettings_DeepMergeAndRollback(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	require.NoError(t, s.Refresh(ctx))
	before := s.Settings()

	got, err := s.UpdateSettings(ctx, map[string]any{"report": map[string]any{"qr": map[string]any{"size": 150}}})
	require.NoError(t, err)
	assert.Equal(t, 150, got.Report.QR.Size)
	assert.Equal(t, before.Report.QR.Color, got.Report.QR.Color)
	assert.Equal(t, before.Report.QR.Position, got.Report.QR.Position)
	assert.Equal(t, before.Report.PrimaryColor, got.Report.PrimaryColor)

	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, 150, s.Settings().Report.QR.Size, "persisted")

	require.NoError(t, gdb.Migrator().DropTable(&models.AppSettings{}))
	_, err = s.UpdateSettings(ctx, map[string]any{"app_name": "Broken"})
	require.Error(t, err)
	assert.Equal(t, 150, s.Settings().Report.QR.Size)
	assert.NotEqual(t, "Broken", s.Settings().AppName, "rolled back")
}

func TestRefresh_MissingSettingsRowUsesDefaults(t *testing.T) {
	s, _, _ := newTestStore(t)
	assert.True(t, s.IsLoading())
	require.NoError(t, s.Refresh(ctx))
	assert.False(t, s.IsLoading())
	assert.False(t, s.IsRefreshing())
	assert.Equal(t, models.DefaultSettings().Report.PrimaryColor, s.Settings().Report.PrimaryColor)
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	require.NoError(t, s.AddClient(ctx, &models.Client{Name: "Ali"}))
	require.NoError(t, gdb.Migrator().DropTable(&models.Broker{}))
	require.Error(t, s.Refresh(ctx))
	assert.Len(t, s.Clients(), 1)
	assert.False(t, s.IsLoading())
}

func TestUpdateRequest_StaleWrite(t *testing.T) {
	s, _, _ := newTestStore(t)
	req := &models.InspectionRequest{ClientID: "c1"}
	require.NoError(t, s.CreateRequest(ctx, req, Actor{}))

	first := *req
	second := *req
	first.Price = 100
	require.NoError(t, s.UpdateRequest(ctx, &first))
	assert.Equal(t, 2, first.Version)

	second.Price = 200
	err := s.UpdateRequest(ctx, &second)
	assert.ErrorIs(t, err, ErrStaleWrite)
	assert.Equal(t, 1, second.Version)

	cached, _ := s.Request(req.ID)
	assert.Equal(t, 100.0, cached.Price)
}

func TestUpdateRequestWithCar_SecondWriteFailureKeepsFirst(t *testing.T) {
	s, gdb, _ := newTestStore(t)
	car := &models.Car{PlateNumber: "أ ب 1"}
	require.NoError(t, s.AddCar(ctx, car))
	req := &models.InspectionRequest{ClientID: "c1", CarID: car.ID}
	require.NoError(t, s.CreateRequest(ctx, req, Actor{}))

	stale := *req
	stale.Version = 99
	car.Year = 2022
	err := s.UpdateRequestWithCar(ctx, &stale, car)
	require.ErrorIs(t, err, ErrStaleWrite)

	var stored models.Car
	require.NoError(t, gdb.First(&stored, "id = ?", car.ID).Error)
	assert.Equal(t, 2022, stored.Year, "car write is not rolled back")
}

func TestNotesAndActivity(t *testing.T) {
	s, _, objects := newTestStore(t)
	req := &models.InspectionRequest{ClientID: "c1"}
	require.NoError(t, s.CreateRequest(ctx, req, Actor{}))
	by := Actor{ID: "e1", Name: "Sara"}

	r, err := s.AddNote(ctx, req.ID, "", models.Note{Text: "general"}, by)
	require.NoError(t, err)
	require.Len(t, r.GeneralNotes, 1)
	assert.Equal(t, "Sara", r.GeneralNotes[0].Author)

	r, err = s.AddNote(ctx, req.ID, "cat1", models.Note{Text: "scratch", ImageURL: "http://test/storage/v1/object/public/images/s.jpg"}, by)
	require.NoError(t, err)
	notes := r.NotesFor("cat1")
	require.Len(t, notes, 1)

	r, err = s.DeleteNote(ctx, req.ID, notes[0].ID, by)
	require.NoError(t, err)
	assert.Empty(t, r.NotesFor("cat1"))
	assert.Equal(t, []string{"images/s.jpg"}, objects.removed)

	_, err = s.DeleteNote(ctx, req.ID, "missing", by)
	assert.ErrorIs(t, err, ErrNotFound)

	r, err = s.SetStatus(ctx, req.ID, models.StatusComplete, by)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, r.Status)

	actions := []string{}
	for _, e := range r.ActivityLog {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{ActionCreated, ActionNoteAdded, ActionNoteAdded, ActionNoteDeleted, ActionStatusChanged}, actions)

	stored, err := s.client.Requests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, stored.ActivityLog, 5)
	assert.Equal(t, r.Version, stored.Version)
}

func TestMutateRequest_DoesNotLeakIntoCacheOnFailure(t *testing.T) {
	s, _, _ := newTestStore(t)
	req := &models.InspectionRequest{ClientID: "c1", Findings: datatypes.JSONSlice[models.Finding]{{FindingID: "f1", Value: "Good"}}}
	require.NoError(t, s.CreateRequest(ctx, req, Actor{}))
	_, err := s.MutateRequest(ctx, req.ID, func(r *models.InspectionRequest) error {
		r.Findings[0].Value = "Damaged"
		return errors.New("abort")
	})
	require.Error(t, err)
	cached, _ := s.Request(req.ID)
	assert.Equal(t, "Good", cached.Findings[0].Value)
}

func TestSettingsTemplates(t *testing.T) {
	s, _, _ := newTestStore(t)
	require.NoError(t, s.Refresh(ctx))
	_, err := s.UpdateSettings(ctx, map[string]any{"report": map[string]any{"primary_color": "#000000"}})
	require.NoError(t, err)
	_, err = s.SaveTemplate(ctx, "dark")
	require.NoError(t, err)
	_, err = s.UpdateSettings(ctx, map[string]any{"report": map[string]any{"primary_color": "#ffffff"}})
	require.NoError(t, err)

	got, err := s.ApplyTemplate(ctx, "dark")
	require.NoError(t, err)
	assert.Equal(t, "#000000", got.Report.PrimaryColor)
	assert.Len(t, got.Report.Templates, 1)

	_, err = s.ApplyTemplate(ctx, "missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	got, err = s.DeleteTemplate(ctx, "dark")
	require.NoError(t, err)
	assert.Empty(t, got.Report.Templates)
}

func TestEstimate(t *testing.T) {
	s, _, _ := newTestStore(t)
	empty := s.Estimate()
	require.NoError(t, s.AddExpense(ctx, &models.Expense{Amount: 5, ReceiptImageURL: "http://x/r.jpg"}))
	e := s.Estimate()
	assert.Greater(t, e.DatabaseBytes, empty.DatabaseBytes)
	assert.Equal(t, 1, e.Images)
	assert.EqualValues(t, averageImageBytes, e.StorageBytes)
}

func TestAccessorsReturnCopies(t *testing.T) {
	s, _, _ := newTestStore(t)
	require.NoError(t, s.AddClient(ctx, &models.Client{Name: "Ali"}))
	list := s.Clients()
	list[0].Name = "changed"
	assert.Equal(t, "Ali", s.Clients()[0].Name)
}

func TestStats(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := &models.Client{Name: "Ali"}
	require.NoError(t, s.AddClient(ctx, c))
	for _, r := range []*models.InspectionRequest{
		{ClientID: c.ID, Price: 300, BrokerCommission: 50, PaymentType: models.PaymentCash},
		{ClientID: c.ID, Price: 200, Status: models.StatusComplete},
	} {
		require.NoError(t, s.CreateRequest(ctx, r, Actor{}))
	}
	require.NoError(t, s.AddExpense(ctx, &models.Expense{Amount: 100, Date: time.Now()}))
	require.NoError(t, s.AddExpense(ctx, &models.Expense{Amount: 999, Date: time.Now().AddDate(-1, 0, 0)}))

	st := s.Stats(Period{From: time.Now().Add(-time.Hour)})
	assert.Equal(t, 2, st.Requests)
	assert.Equal(t, 1, st.ByStatus[models.StatusNew])
	assert.Equal(t, 1, st.ByStatus[models.StatusComplete])
	assert.Equal(t, 0, st.ByStatus[models.StatusInProgress])
	assert.Equal(t, 1, st.Unpaid)
	assert.Equal(t, 500.0, st.Revenue)
	assert.Equal(t, 450.0, st.Earnings)
	assert.Equal(t, 100.0, st.Expenses, "expenses outside the period are ignored")
	assert.Equal(t, 350.0, st.Net)
	require.Len(t, st.Recent, 2)
	assert.Greater(t, st.Recent[0].RequestNumber, st.Recent[1].RequestNumber)

	hidden := st.WithoutFinancials()
	assert.Zero(t, hidden.Revenue)
	assert.Zero(t, hidden.Net)
	assert.Zero(t, hidden.Recent[0].Price)
	assert.Equal(t, 2, hidden.Requests)
	assert.NotZero(t, st.Recent[0].Price, "original stats are untouched")
}

func TestPeriodContains(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	p := Period{From: now.Add(-time.Hour), To: now}
	assert.True(t, p.Contains(now.Add(-time.Minute)))
	assert.False(t, p.Contains(now), "upper bound is exclusive")
	assert.False(t, p.Contains(now.Add(-2*time.Hour)))
	assert.True(t, Period{}.Contains(now))
}
