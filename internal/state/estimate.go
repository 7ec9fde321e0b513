package state

import (
	"encoding/json"
)

// averageImageBytes is the assumed size of one stored image.
const averageImageBytes = 150 * 1024

// Estimate is a display-only approximation of the space used.
type Estimate struct {
	DatabaseBytes int64 `json:"database_bytes"`
	StorageBytes  int64 `json:"storage_bytes"`
	Images        int   `json:"images"`
}

// Estimate sums the JSON encoded size of every cached collection and counts
// the stored images they reference.
func (s *Store) Estimate() Estimate {
	var e Estimate
	add := func(v any) {
		raw, err := json.Marshal(v)
		if err == nil {
			e.DatabaseBytes += int64(len(raw))
		}
	}
	requests := s.Requests()
	add(requests)
	add(s.Clients())
	add(s.Cars())
	add(s.Makes())
	add(s.Models())
	add(s.InspectionTypes())
	add(s.Categories())
	findings := s.Findings()
	add(findings)
	add(s.Brokers())
	employees := s.Employees()
	add(employees)
	expenses := s.Expenses()
	add(expenses)
	add(s.Settings())

	for _, r := range requests {
		e.Images += len(r.ImageURLs())
	}
	for _, f := range findings {
		e.Images += len(f.ImageURLs())
	}
	for _, x := range employees {
		e.Images += len(x.ImageURLs())
	}
	for _, x := range expenses {
		e.Images += len(x.ImageURLs())
	}
	e.StorageBytes = int64(e.Images) * averageImageBytes
	return e
}
