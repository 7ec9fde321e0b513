package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

// Role is the employee's position in the workshop.
type Role string

const (
	RoleGeneralManager Role = "general_manager"
	RoleManager        Role = "manager"
	RoleEmployee       Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleGeneralManager, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Employee is a workshop operator. The PIN only locks a shared terminal;
// it is stored as a bcrypt hash and never serialised.
type Employee struct {
	Base
	Name        string                      `gorm:"size:255;not null" json:"name" validate:"required"`
	Role        Role                        `gorm:"size:32;not null;default:'employee'" json:"role" validate:"required,oneof=general_manager manager employee"`
	PIN         string                      `gorm:"size:255;not null" json:"-"`
	IsActive    bool                        `gorm:"not null" json:"is_active"`
	Permissions datatypes.JSONSlice[string] `json:"permissions"`
	AvatarURL   string                      `gorm:"size:1000" json:"avatar_url,omitempty"`
}

// SetPIN hashes and stores pin.
func (e *Employee) SetPIN(pin string) error {
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	e.PIN = string(h)
	return nil
}

// CheckPIN compares pin against the stored hash.
func (e *Employee) CheckPIN(pin string) bool {
	if e.PIN == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(e.PIN), []byte(pin)) == nil
}

// ImageURLs returns the stored images owned by the employee.
func (e Employee) ImageURLs() []string {
	if e.AvatarURL == "" {
		return nil
	}
	return []string{e.AvatarURL}
}

// ClientState is one namespaced key of an employee's persisted view state
// (navigation history, selections, theme, settings tab).
type ClientState struct {
	Owner     string         `gorm:"primaryKey;size:36" json:"owner"`
	Key       string         `gorm:"primaryKey;size:100" json:"key"`
	Value     datatypes.JSON `json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt int64          `gorm:"autoUpdateTime" json:"updated_at"`
}
