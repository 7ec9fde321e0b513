package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/google/uuid"
)

// Activity log actions.
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionStatusChanged = "status_changed"
	ActionNoteAdded     = "note_added"
	ActionNoteDeleted   = "note_deleted"
	ActionFindings      = "findings_updated"
	ActionAttachment    = "attachment_added"
)

// NextRequestNumber returns the highest cached request number plus one, or
// models.FirstRequestNumber when no request is cached. It is computed from the
// local snapshot only, so two writers can obtain the same number.
func (s *Store) NextRequestNumber() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return nextRequestNumber(s.requests)
}

func nextRequestNumber(requests []models.InspectionRequest) int {
	if len(requests) == 0 {
		return models.FirstRequestNumber
	}
	highest := 0
	for _, r := range requests {
		if r.RequestNumber > highest {
			highest = r.RequestNumber
		}
	}
	return highest + 1
}

// CarSnapshotFor describes a cached car using the English make/model names.
func (s *Store) CarSnapshotFor(carID string) (models.CarSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	car, ok := findLocal(s.cars, carID)
	if !ok {
		return models.CarSnapshot{}, false
	}
	snap := models.CarSnapshot{Year: car.Year}
	if mk, ok := findLocal(s.makes, car.MakeID); ok {
		snap.Make = models.DisplayName("en", mk.NameAr, mk.NameEn)
	}
	if md, ok := findLocal(s.carModels, car.ModelID); ok {
		snap.Model = models.DisplayName("en", md.NameAr, md.NameEn)
	}
	return snap, true
}

// CreateRequest numbers req, freezes its car description, records the
// creation in its activity log and inserts it.
func (s *Store) CreateRequest(ctx context.Context, req *models.InspectionRequest, by Actor) error {
	req.RequestNumber = s.NextRequestNumber()
	if req.Status == "" {
		req.Status = models.StatusNew
	}
	if req.PaymentType == "" {
		req.PaymentType = models.PaymentUnpaid
	}
	if _, ok := req.Snapshot(); !ok && req.CarID != "" {
		if snap, ok := s.CarSnapshotFor(req.CarID); ok {
			req.SetSnapshot(snap)
		}
	}
	if req.EmployeeID == "" {
		req.EmployeeID, req.EmployeeName = by.ID, by.Name
	}
	req.Version = 1
	req.ActivityLog = append(req.ActivityLog, s.entry(by, ActionCreated, fmt.Sprintf("#%d", req.RequestNumber)))
	return insert(ctx, s, s.client.Requests, &s.requests, req)
}

// UpdateRequest saves req if nobody else changed it since it was read
// (req.Version must equal the stored version), otherwise ErrStaleWrite.
func (s *Store) UpdateRequest(ctx context.Context, req *models.InspectionRequest) error {
	if err := s.client.UpdateRequestVersioned(ctx, req); err != nil {
		return err
	}
	s.mu.Lock()
	s.requests = upsertLocal(s.requests, *req)
	s.mu.Unlock()
	return nil
}

// UpdateRequestWithCar writes car then req as two independent calls. When
// the second call fails the car update is kept.
func (s *Store) UpdateRequestWithCar(ctx context.Context, req *models.InspectionRequest, car *models.Car) error {
	if err := s.UpdateCar(ctx, car); err != nil {
		return fmt.Errorf("update car: %w", err)
	}
	if err := s.UpdateRequest(ctx, req); err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return nil
}

// DeleteRequest removes the request's images then the request.
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	if req, ok := s.Request(id); ok {
		s.removeImages(ctx, req.ImageURLs())
	}
	return remove(ctx, s, s.client.Requests, &s.requests, id)
}

// RequestForEdit returns a copy of the cached request that can be modified
// and passed to UpdateRequest without touching the cache.
func (s *Store) RequestForEdit(id string) (models.InspectionRequest, bool) {
	req, ok := s.Request(id)
	if !ok {
		return req, false
	}
	return cloneRequest(req), true
}

// Activity builds an activity entry stamped with the store clock.
func (s *Store) Activity(by Actor, action, details string) models.ActivityEntry {
	return s.entry(by, action, details)
}

// MutateRequest applies fn to a copy of the cached request and saves it.
func (s *Store) MutateRequest(ctx context.Context, id string, fn func(*models.InspectionRequest) error) (models.InspectionRequest, error) {
	req, ok := s.Request(id)
	if !ok {
		return req, ErrNotFound
	}
	req = cloneRequest(req)
	if err := fn(&req); err != nil {
		return req, err
	}
	if err := s.UpdateRequest(ctx, &req); err != nil {
		return req, err
	}
	return req, nil
}

// AppendActivity adds an entry to the request's activity log.
func (s *Store) AppendActivity(ctx context.Context, id string, by Actor, action, details string) error {
	_, err := s.MutateRequest(ctx, id, func(r *models.InspectionRequest) error {
		r.ActivityLog = append(r.ActivityLog, s.entry(by, action, details))
		return nil
	})
	return err
}

// SetStatus changes the request status.
func (s *Store) SetStatus(ctx context.Context, id string, status models.RequestStatus, by Actor) (models.InspectionRequest, error) {
	if !status.Valid() {
		return models.InspectionRequest{}, fmt.Errorf("invalid status %q", status)
	}
	return s.MutateRequest(ctx, id, func(r *models.InspectionRequest) error {
		if r.Status == status {
			return nil
		}
		r.ActivityLog = append(r.ActivityLog, s.entry(by, ActionStatusChanged, string(r.Status)+" -> "+string(status)))
		r.Status = status
		return nil
	})
}

// SetFindings replaces the recorded findings.
func (s *Store) SetFindings(ctx context.Context, id string, findings []models.Finding, by Actor) (models.InspectionRequest, error) {
	return s.MutateRequest(ctx, id, func(r *models.InspectionRequest) error {
		r.Findings = findings
		r.ActivityLog = append(r.ActivityLog, s.entry(by, ActionFindings, fmt.Sprintf("%d", len(findings))))
		return nil
	})
}

// AddNote appends a note to the request, in the general notes when
// categoryID is empty, otherwise under that category.
func (s *Store) AddNote(ctx context.Context, id, categoryID string, note models.Note, by Actor) (models.InspectionRequest, error) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = s.now()
	}
	if note.Author == "" {
		note.Author = by.Name
	}
	return s.MutateRequest(ctx, id, func(r *models.InspectionRequest) error {
		if categoryID == "" {
			r.GeneralNotes = append(r.GeneralNotes, note)
		} else {
			notes := r.CategoryNotes.Data()
			if notes == nil {
				notes = map[string][]models.Note{}
			}
			notes[categoryID] = append(notes[categoryID], note)
			r.CategoryNotes = newCategoryNotes(notes)
		}
		r.ActivityLog = append(r.ActivityLog, s.entry(by, ActionNoteAdded, truncate(note.Text, 80)))
		return nil
	})
}

// DeleteNote removes a note (and its image, best-effort) from the request.
func (s *Store) DeleteNote(ctx context.Context, id, noteID string, by Actor) (models.InspectionRequest, error) {
	var removed *models.Note
	req, err := s.MutateRequest(ctx, id, func(r *models.InspectionRequest) error {
		for i, n := range r.GeneralNotes {
			if n.ID == noteID {
				removed = &n
				r.GeneralNotes = append(r.GeneralNotes[:i:i], r.GeneralNotes[i+1:]...)
				break
			}
		}
		if removed == nil {
			notes := r.CategoryNotes.Data()
			for cat, list := range notes {
				for i, n := range list {
					if n.ID == noteID {
						removed = &n
						notes[cat] = append(list[:i:i], list[i+1:]...)
						break
					}
				}
			}
			if removed != nil {
				r.CategoryNotes = newCategoryNotes(notes)
			}
		}
		if removed == nil {
			return ErrNotFound
		}
		r.ActivityLog = append(r.ActivityLog, s.entry(by, ActionNoteDeleted, truncate(removed.Text, 80)))
		return nil
	})
	if err == nil && removed.HasImage() {
		s.removeImages(ctx, []string{removed.ImageURL})
	}
	return req, err
}

// AddAttachment links an uploaded file to the request.
func (s *Store) AddAttachment(ctx context.Context, id string, a models.Attachment, by Actor) (models.InspectionRequest, error) {
	return s.MutateRequest(ctx, id, func(r *models.InspectionRequest) error {
		r.Attachments = append(r.Attachments, a)
		r.ActivityLog = append(r.ActivityLog, s.entry(by, ActionAttachment, a.Name))
		return nil
	})
}

func (s *Store) entry(by Actor, action, details string) models.ActivityEntry {
	return models.ActivityEntry{
		At:           s.now(),
		EmployeeID:   by.ID,
		EmployeeName: by.Name,
		Action:       action,
		Details:      details,
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
