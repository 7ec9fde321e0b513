package models

import (
	"time"

	"gorm.io/datatypes"
)

// RequestStatus represents the progress of an inspection request.
type RequestStatus string

const (
	StatusNew        RequestStatus = "new"
	StatusInProgress RequestStatus = "in_progress"
	StatusComplete   RequestStatus = "complete"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

// PaymentType is how the client settled the request.
type PaymentType string

const (
	PaymentCash     PaymentType = "cash"
	PaymentCard     PaymentType = "card"
	PaymentTransfer PaymentType = "transfer"
	PaymentUnpaid   PaymentType = "unpaid"
)

// FirstRequestNumber is assigned when no request exists yet.
const FirstRequestNumber = 1001

// Finding is one inspected attribute recorded on a request.
type Finding struct {
	CategoryID string `json:"category_id"`
	FindingID  string `json:"finding_id"`
	Value      string `json:"value"`
}

// Note is a free-text remark, optionally carrying an image.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url,omitempty"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasImage reports whether the note carries an image.
func (n Note) HasImage() bool { return n.ImageURL != "" }

// CarSnapshot freezes the vehicle description at request creation time.
type CarSnapshot struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

// Attachment is a file linked to a request.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// ActivityEntry records who did what on a request.
type ActivityEntry struct {
	At           time.Time `json:"at"`
	EmployeeID   string    `json:"employee_id,omitempty"`
	EmployeeName string    `json:"employee_name,omitempty"`
	Action       string    `json:"action"`
	Details      string    `json:"details,omitempty"`
}

// InspectionRequest is one inspection job for a client/car pair.
type InspectionRequest struct {
	Base

	// RequestNumber is sequential but not unique: it is computed from the
	// highest number known to the writer.
	RequestNumber int `gorm:"index;not null" json:"request_number"`

	// References
	ClientID         string  `gorm:"size:36;index;not null" json:"client_id" validate:"required"`
	CarID            string  `gorm:"size:36;index" json:"car_id"`
	InspectionTypeID string  `gorm:"size:36" json:"inspection_type_id"`
	BrokerID         *string `gorm:"size:36;index" json:"broker_id,omitempty"`
	BrokerCommission float64 `gorm:"not null;default:0" json:"broker_commission" validate:"gte=0"`

	// Billing
	Status      RequestStatus `gorm:"size:20;not null;default:'new'" json:"status" validate:"omitempty,oneof=new in_progress complete"`
	Price       float64       `gorm:"not null;default:0" json:"price" validate:"gte=0"`
	PaymentType PaymentType   `gorm:"size:20;default:'unpaid'" json:"payment_type" validate:"omitempty,oneof=cash card transfer unpaid"`

	// Inspection content
	Findings      datatypes.JSONSlice[Finding]          `json:"findings"`
	GeneralNotes  datatypes.JSONSlice[Note]             `json:"general_notes"`
	CategoryNotes datatypes.JSONType[map[string][]Note] `json:"category_notes"`
	CarSnapshot   datatypes.JSONType[*CarSnapshot]      `json:"car_snapshot"`
	Attachments   datatypes.JSONSlice[Attachment]       `json:"attachments"`
	ActivityLog   datatypes.JSONSlice[ActivityEntry]    `json:"activity_log"`
	StampURL      string                                `gorm:"size:1000" json:"stamp_url,omitempty"`

	// Creator
	EmployeeID   string `gorm:"size:36" json:"employee_id,omitempty"`
	EmployeeName string `gorm:"size:255" json:"employee_name,omitempty"`

	// Version guards concurrent updates.
	Version int `gorm:"not null;default:1" json:"version"`
}

// Snapshot returns the frozen car description, if any.
func (r InspectionRequest) Snapshot() (CarSnapshot, bool) {
	s := r.CarSnapshot.Data()
	if s == nil {
		return CarSnapshot{}, false
	}
	return *s, true
}

// SetSnapshot freezes the car description on the request.
func (r *InspectionRequest) SetSnapshot(s CarSnapshot) {
	r.CarSnapshot = datatypes.NewJSONType(&s)
}

// NotesFor returns the notes attached to a category.
func (r InspectionRequest) NotesFor(categoryID string) []Note {
	return r.CategoryNotes.Data()[categoryID]
}

// ImageURLs returns every stored image owned by the request.
func (r InspectionRequest) ImageURLs() []string {
	var urls []string
	for _, n := range r.GeneralNotes {
		if n.HasImage() {
			urls = append(urls, n.ImageURL)
		}
	}
	for _, notes := range r.CategoryNotes.Data() {
		for _, n := range notes {
			if n.HasImage() {
				urls = append(urls, n.ImageURL)
			}
		}
	}
	for _, a := range r.Attachments {
		if a.URL != "" {
			urls = append(urls, a.URL)
		}
	}
	if r.StampURL != "" {
		urls = append(urls, r.StampURL)
	}
	return urls
}

// Earnings is the price minus the broker commission.
func (r InspectionRequest) Earnings() float64 {
	return r.Price - r.BrokerCommission
}

// TableName keeps the table name used by the hosted store.
func (InspectionRequest) TableName() string { return "requests" }
