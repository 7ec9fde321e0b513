// Package state is the application state container: it holds the last
// fetched snapshot of every collection and exposes one mutation per
// operation. Each mutation performs its remote call first and, only on
// success, mirrors the result into the cached collection. Errors are returned
// unchanged so the caller can report them.
package state

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/diewo77/inspection-workshop/internal/store"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrClientHasRequests blocks deleting a client still referenced by a request.
	ErrClientHasRequests = errors.New("client_has_requests")
	// ErrNotFound is returned when an entity is missing from the cached state.
	ErrNotFound = errors.New("not_found")
	// ErrStaleWrite is returned when a request was modified by someone else.
	ErrStaleWrite = store.ErrStaleWrite
)

// Actor identifies the employee performing a mutation, for the activity log.
type Actor struct {
	ID   string
	Name string
}

type identified interface {
	GetID() string
}

// Store is the in-memory state container.
type Store struct {
	client *store.Client
	logger *log.Logger
	now    func() time.Time

	mu              sync.RWMutex
	requests        []models.InspectionRequest
	clients         []models.Client
	cars            []models.Car
	makes           []models.CarMake
	carModels       []models.CarModel
	inspectionTypes []models.InspectionType
	categories      []models.CustomFindingCategory
	findings        []models.PredefinedFinding
	brokers         []models.Broker
	employees       []models.Employee
	expenses        []models.Expense
	settings        models.Settings
	lastRefresh     time.Time

	settingsMu sync.Mutex
	refreshing atomic.Int32
	loading    atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store backed by client. It reports IsLoading until
// the first Refresh completes.
func New(client *store.Client, opts ...Option) *Store {
	s := &Store{
		client:   client,
		logger:   log.New(os.Stderr, "[state] ", log.LstdFlags),
		now:      time.Now,
		settings: models.DefaultSettings(),
	}
	s.loading.Store(true)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client exposes the underlying data client.
func (s *Store) Client() *store.Client { return s.client }

// IsLoading is true until the first refresh has completed.
func (s *Store) IsLoading() bool { return s.loading.Load() }

// IsRefreshing is true while a refresh is in flight.
func (s *Store) IsRefreshing() bool { return s.refreshing.Load() > 0 }

// LastRefresh returns when the collections were last replaced.
func (s *Store) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}

// Refresh fetches every collection in parallel and replaces the cached
// state wholesale. Nothing is replaced when any fetch fails. Concurrent
// refreshes are not coordinated: the last one to finish wins.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshing.Add(1)
	defer func() {
		s.refreshing.Add(-1)
		s.loading.Store(false)
	}()

	var (
		requests        []models.InspectionRequest
		clients         []models.Client
		cars            []models.Car
		makes           []models.CarMake
		carModels       []models.CarModel
		inspectionTypes []models.InspectionType
		categories      []models.CustomFindingCategory
		findings        []models.PredefinedFinding
		brokers         []models.Broker
		employees       []models.Employee
		expenses        []models.Expense
		settings        models.Settings
	)
	c := s.client
	g, gctx := errgroup.WithContext(ctx)
	fetch := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			return nil
		})
	}
	fetch("requests", func() (err error) { requests, err = c.Requests.Select(gctx); return })
	fetch("clients", func() (err error) { clients, err = c.Clients.Select(gctx); return })
	fetch("cars", func() (err error) { cars, err = c.Cars.Select(gctx); return })
	fetch("car_makes", func() (err error) { makes, err = c.Makes.Select(gctx); return })
	fetch("car_models", func() (err error) { carModels, err = c.Models.Select(gctx); return })
	fetch("inspection_types", func() (err error) { inspectionTypes, err = c.InspectionTypes.Select(gctx); return })
	fetch("custom_finding_categories", func() (err error) { categories, err = c.Categories.Select(gctx); return })
	fetch("predefined_findings", func() (err error) { findings, err = c.Findings.Select(gctx); return })
	fetch("brokers", func() (err error) { brokers, err = c.Brokers.Select(gctx); return })
	fetch("employees", func() (err error) { employees, err = c.Employees.Select(gctx); return })
	fetch("expenses", func() (err error) { expenses, err = c.Expenses.Select(gctx); return })
	fetch("app_settings", func() (err error) { settings, err = s.fetchSettings(gctx); return })
	if err := g.Wait(); err != nil {
		s.logger.Printf("refresh failed: %v", err)
		return err
	}

	s.mu.Lock()
	s.requests = requests
	s.clients = clients
	s.cars = cars
	s.makes = makes
	s.carModels = carModels
	s.inspectionTypes = inspectionTypes
	s.categories = categories
	s.findings = findings
	s.brokers = brokers
	s.employees = employees
	s.expenses = expenses
	s.settings = settings
	s.lastRefresh = s.now()
	s.mu.Unlock()
	return nil
}

func (s *Store) fetchSettings(ctx context.Context) (models.Settings, error) {
	row, err := s.client.Settings.Get(ctx, models.SettingsID)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}
	return models.LoadSettings(row.Data)
}

// removeImages deletes stored objects referenced by urls. Failures are
// logged and never returned.
func (s *Store) removeImages(ctx context.Context, urls []string) {
	if s.client.Storage == nil {
		return
	}
	for _, u := range urls {
		bucket, p, ok := storage.PathFromURL(u)
		if !ok {
			continue
		}
		if err := s.client.Storage.Remove(ctx, bucket, p); err != nil {
			s.logger.Printf("remove image %s: %v", u, err)
		}
	}
}

func upsertLocal[T identified](list []T, row T) []T {
	for i := range list {
		if list[i].GetID() == row.GetID() {
			list[i] = row
			return list
		}
	}
	return append(list, row)
}

func removeLocal[T identified](list []T, id string) []T {
	return slices.DeleteFunc(list, func(x T) bool { return x.GetID() == id })
}

func findLocal[T identified](list []T, id string) (T, bool) {
	for _, x := range list {
		if x.GetID() == id {
			return x, true
		}
	}
	var zero T
	return zero, false
}

// insert performs the remote insert and mirrors the new row into list.
func insert[T identified](ctx context.Context, s *Store, tbl *store.Table[T], list *[]T, row *T) error {
	if err := tbl.Insert(ctx, row); err != nil {
		return err
	}
	s.mu.Lock()
	*list = upsertLocal(*list, *row)
	s.mu.Unlock()
	return nil
}

// update performs the remote update and mirrors row into list.
func update[T identified](ctx context.Context, s *Store, tbl *store.Table[T], list *[]T, row *T) error {
	if err := tbl.Update(ctx, row); err != nil {
		return err
	}
	s.mu.Lock()
	*list = upsertLocal(*list, *row)
	s.mu.Unlock()
	return nil
}

// remove performs the remote delete and drops id from list.
func remove[T identified](ctx context.Context, s *Store, tbl *store.Table[T], list *[]T, id string) error {
	if err := tbl.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	*list = removeLocal(*list, id)
	s.mu.Unlock()
	return nil
}

func snapshot[T any](s *Store, list *[]T) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(*list)
}

func lookup[T identified](s *Store, list *[]T, id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findLocal(*list, id)
}

// Requests returns the cached inspection requests.
func (s *Store) Requests() []models.InspectionRequest { return snapshot(s, &s.requests) }

// Clients returns the cached clients.
func (s *Store) Clients() []models.Client { return snapshot(s, &s.clients) }

// Cars returns the cached cars.
func (s *Store) Cars() []models.Car { return snapshot(s, &s.cars) }

// Makes returns the cached car makes.
func (s *Store) Makes() []models.CarMake { return snapshot(s, &s.makes) }

// Models returns the cached car models.
func (s *Store) Models() []models.CarModel { return snapshot(s, &s.carModels) }

// InspectionTypes returns the cached inspection types.
func (s *Store) InspectionTypes() []models.InspectionType { return snapshot(s, &s.inspectionTypes) }

// Categories returns the cached finding categories.
func (s *Store) Categories() []models.CustomFindingCategory { return snapshot(s, &s.categories) }

// Findings returns the cached predefined findings.
func (s *Store) Findings() []models.PredefinedFinding { return snapshot(s, &s.findings) }

// Brokers returns the cached brokers.
func (s *Store) Brokers() []models.Broker { return snapshot(s, &s.brokers) }

// Employees returns the cached employees.
func (s *Store) Employees() []models.Employee { return snapshot(s, &s.employees) }

// Expenses returns the cached expenses.
func (s *Store) Expenses() []models.Expense { return snapshot(s, &s.expenses) }

// Request returns the cached request with the given id.
func (s *Store) Request(id string) (models.InspectionRequest, bool) { return lookup(s, &s.requests, id) }

// ClientByID returns the cached client with the given id.
func (s *Store) ClientByID(id string) (models.Client, bool) { return lookup(s, &s.clients, id) }

func (s *Store) Car(id string) (models.Car, bool) { return lookup(s, &s.cars, id) }

func (s *Store) Make(id string) (models.CarMake, bool) { return lookup(s, &s.makes, id) }

func (s *Store) Model(id string) (models.CarModel, bool) { return lookup(s, &s.carModels, id) }

func (s *Store) InspectionType(id string) (models.InspectionType, bool) {
	return lookup(s, &s.inspectionTypes, id)
}

func (s *Store) Category(id string) (models.CustomFindingCategory, bool) {
	return lookup(s, &s.categories, id)
}

func (s *Store) Finding(id string) (models.PredefinedFinding, bool) {
	return lookup(s, &s.findings, id)
}

func (s *Store) Broker(id string) (models.Broker, bool) { return lookup(s, &s.brokers, id) }

func (s *Store) Employee(id string) (models.Employee, bool) { return lookup(s, &s.employees, id) }

func (s *Store) Expense(id string) (models.Expense, bool) { return lookup(s, &s.expenses, id) }
