// Package store is the thin data client over the relational database: one
// table-scoped handle per entity, each operation a single query. It carries no
// business rules, no retries and no transactions spanning calls.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not_found")
	// ErrStaleWrite is returned when a versioned update matched no row.
	ErrStaleWrite = errors.New("stale_write")
)

// Filter is an equality condition on a column.
type Filter struct {
	Column string
	Value  any
}

// Eq builds a Filter.
func Eq(column string, value any) Filter { return Filter{Column: column, Value: value} }

// Table is a handle on the rows of one entity type.
type Table[T any] struct {
	db *gorm.DB
}

// NewTable returns a table handle for T.
func NewTable[T any](db *gorm.DB) *Table[T] {
	return &Table[T]{db: db}
}

// Select returns the rows matching all filters, oldest first.
func (t *Table[T]) Select(ctx context.Context, filters ...Filter) ([]T, error) {
	var rows []T
	if err := where(t.db.WithContext(ctx), filters).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Get returns the row with the given id.
func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	var row T
	err := t.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Insert creates row and fills its generated fields.
func (t *Table[T]) Insert(ctx context.Context, row *T) error {
	return t.db.WithContext(ctx).Create(row).Error
}

// Update saves every field of row.
func (t *Table[T]) Update(ctx context.Context, row *T) error {
	return t.db.WithContext(ctx).Save(row).Error
}

// Upsert inserts row or overwrites the existing one with the same primary key.
func (t *Table[T]) Upsert(ctx context.Context, row *T) error {
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

// Delete removes the row with the given id. Deleting a missing row is not an error.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	var row T
	return t.db.WithContext(ctx).Where("id = ?", id).Delete(&row).Error
}

// DeleteWhere removes every row whose column equals value.
func (t *Table[T]) DeleteWhere(ctx context.Context, column string, value any) (int64, error) {
	return t.DeleteBy(ctx, Eq(column, value))
}

// DeleteBy removes every row matching all filters. At least one filter is required.
func (t *Table[T]) DeleteBy(ctx context.Context, filters ...Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, errors.New("delete without filter")
	}
	var row T
	res := where(t.db.WithContext(ctx), filters).Delete(&row)
	return res.RowsAffected, res.Error
}

// First returns the first row matching all filters, without ordering.
func (t *Table[T]) First(ctx context.Context, filters ...Filter) (*T, error) {
	var row T
	err := where(t.db.WithContext(ctx), filters).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func where(q *gorm.DB, filters []Filter) *gorm.DB {
	for _, f := range filters {
		q = q.Where(clause.Eq{Column: clause.Column{Name: f.Column}, Value: f.Value})
	}
	return q
}

// Count returns the number of rows.
func (t *Table[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	var row T
	err := t.db.WithContext(ctx).Model(&row).Count(&n).Error
	return n, err
}

// Client groups the table handles and the object storage.
type Client struct {
	DB *gorm.DB

	Requests        *Table[models.InspectionRequest]
	Clients         *Table[models.Client]
	Cars            *Table[models.Car]
	Makes           *Table[models.CarMake]
	Models          *Table[models.CarModel]
	InspectionTypes *Table[models.InspectionType]
	Categories      *Table[models.CustomFindingCategory]
	Findings        *Table[models.PredefinedFinding]
	Brokers         *Table[models.Broker]
	Employees       *Table[models.Employee]
	Expenses        *Table[models.Expense]
	Settings        *Table[models.AppSettings]
	ClientState     *Table[models.ClientState]

	Storage storage.Storage
}

// New builds a Client over db and the given object storage.
func New(db *gorm.DB, objects storage.Storage) *Client {
	return &Client{
		DB:              db,
		Requests:        NewTable[models.InspectionRequest](db),
		Clients:         NewTable[models.Client](db),
		Cars:            NewTable[models.Car](db),
		Makes:           NewTable[models.CarMake](db),
		Models:          NewTable[models.CarModel](db),
		InspectionTypes: NewTable[models.InspectionType](db),
		Categories:      NewTable[models.CustomFindingCategory](db),
		Findings:        NewTable[models.PredefinedFinding](db),
		Brokers:         NewTable[models.Broker](db),
		Employees:       NewTable[models.Employee](db),
		Expenses:        NewTable[models.Expense](db),
		Settings:        NewTable[models.AppSettings](db),
		ClientState:     NewTable[models.ClientState](db),
		Storage:         objects,
	}
}

// UpdateRequestVersioned saves req only if its stored version still equals
// req.Version, then bumps the version.
func (c *Client) UpdateRequestVersioned(ctx context.Context, req *models.InspectionRequest) error {
	expected := req.Version
	req.Version = expected + 1
	res := c.DB.WithContext(ctx).
		Model(&models.InspectionRequest{}).
		Where("id = ? AND version = ?", req.ID, expected).
		Select("*").
		Omit("id", "created_at").
		Updates(req)
	if res.Error != nil {
		req.Version = expected
		return fmt.Errorf("update request %s: %w", req.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		req.Version = expected
		return ErrStaleWrite
	}
	return nil
}

// MaxRequestNumber returns the highest stored request number, 0 when none.
func (c *Client) MaxRequestNumber(ctx context.Context) (int, error) {
	var n *int
	err := c.DB.WithContext(ctx).Model(&models.InspectionRequest{}).Select("MAX(request_number)").Scan(&n).Error
	if err != nil || n == nil {
		return 0, err
	}
	return *n, nil
}
