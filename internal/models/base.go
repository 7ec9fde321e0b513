// Package models holds the persisted entities of the workshop back office.
// Every row is identified by an opaque string (a random UUID assigned on insert).
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the identifier and timestamps shared by every table.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a fresh identifier when the caller did not provide one.
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// GetID returns the row identifier.
func (b Base) GetID() string { return b.ID }

// SetID replaces the row identifier.
func (b *Base) SetID(id string) { b.ID = id }

// Client is a workshop customer.
type Client struct {
	Base
	Name  string `gorm:"size:255;not null" json:"name" validate:"required"`
	Phone string `gorm:"size:50" json:"phone"`
}

// Broker is a third-party referrer earning a commission per request.
type Broker struct {
	Base
	Name              string  `gorm:"size:255;not null" json:"name" validate:"required"`
	Phone             string  `gorm:"size:50" json:"phone,omitempty"`
	DefaultCommission float64 `gorm:"not null;default:0" json:"default_commission" validate:"gte=0"`
	IsActive          bool    `gorm:"not null" json:"is_active"`
}

// Expense is a workshop expenditure, optionally with a receipt image.
type Expense struct {
	Base
	Amount          float64   `gorm:"not null" json:"amount" validate:"gt=0"`
	Date            time.Time `gorm:"not null;index" json:"date"`
	Description     string    `gorm:"size:500" json:"description"`
	Category        string    `gorm:"size:100" json:"category,omitempty"`
	ReceiptImageURL string    `gorm:"size:1000" json:"receipt_image_url,omitempty"`
	EmployeeID      string    `gorm:"size:36" json:"employee_id,omitempty"`
}

// ImageURLs returns the stored images owned by the expense.
func (e Expense) ImageURLs() []string {
	if e.ReceiptImageURL == "" {
		return nil
	}
	return []string{e.ReceiptImageURL}
}
