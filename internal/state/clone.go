package state

import (
	"maps"
	"slices"

	"github.com/diewo77/inspection-workshop/internal/models"
	"gorm.io/datatypes"
)

func newCategoryNotes(m map[string][]models.Note) datatypes.JSONType[map[string][]models.Note] {
	return datatypes.NewJSONType(m)
}

// cloneRequest copies the JSON collections of r so that mutating the copy
// leaves the cached value untouched.
func cloneRequest(r models.InspectionRequest) models.InspectionRequest {
	r.Findings = slices.Clone(r.Findings)
	r.GeneralNotes = slices.Clone(r.GeneralNotes)
	r.Attachments = slices.Clone(r.Attachments)
	r.ActivityLog = slices.Clone(r.ActivityLog)
	if notes := r.CategoryNotes.Data(); notes != nil {
		cp := maps.Clone(notes)
		for k, v := range cp {
			cp[k] = slices.Clone(v)
		}
		r.CategoryNotes = newCategoryNotes(cp)
	}
	if snap, ok := r.Snapshot(); ok {
		r.SetSnapshot(snap)
	}
	if r.BrokerID != nil {
		id := *r.BrokerID
		r.BrokerID = &id
	}
	return r
}
