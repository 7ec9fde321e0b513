package state

import (
	"slices"
	"time"

	"github.com/diewo77/inspection-workshop/internal/models"
)

// recentLimit is how many requests Stats lists as recent.
const recentLimit = 5

// Stats summarises the cached requests and expenses of a period.
type Stats struct {
	Requests    int                          `json:"requests"`
	ByStatus    map[models.RequestStatus]int `json:"by_status"`
	Unpaid      int                          `json:"unpaid"`
	Clients     int                          `json:"clients"`
	Revenue     float64                      `json:"revenue"`
	Commissions float64                      `json:"commissions"`
	Earnings    float64                      `json:"earnings"`
	Expenses    float64                      `json:"expenses"`
	Net         float64                      `json:"net"`
	Recent      []models.InspectionRequest   `json:"recent"`
}

// Period bounds Stats. A zero bound is open.
type Period struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls in [From, To).
func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}

// Stats computes the dashboard figures from the cached state.
func (s *Store) Stats(p Period) Stats {
	st := Stats{ByStatus: map[models.RequestStatus]int{
		models.StatusNew: 0, models.StatusInProgress: 0, models.StatusComplete: 0,
	}}
	var in []models.InspectionRequest
	for _, r := range s.Requests() {
		if !p.Contains(r.CreatedAt) {
			continue
		}
		in = append(in, r)
		st.ByStatus[r.Status]++
		if r.PaymentType == models.PaymentUnpaid {
			st.Unpaid++
		}
		st.Revenue += r.Price
		st.Commissions += r.BrokerCommission
	}
	st.Requests = len(in)
	st.Earnings = st.Revenue - st.Commissions
	for _, e := range s.Expenses() {
		if p.Contains(e.Date) {
			st.Expenses += e.Amount
		}
	}
	st.Net = st.Earnings - st.Expenses
	st.Clients = len(s.Clients())

	slices.SortFunc(in, func(a, b models.InspectionRequest) int {
		return b.RequestNumber - a.RequestNumber
	})
	if len(in) > recentLimit {
		in = in[:recentLimit]
	}
	st.Recent = in
	return st
}

// WithoutFinancials clears the money figures for viewers lacking the
// financial capability.
func (st Stats) WithoutFinancials() Stats {
	st.Revenue, st.Commissions, st.Earnings, st.Expenses, st.Net = 0, 0, 0, 0, 0
	recent := make([]models.InspectionRequest, len(st.Recent))
	for i, r := range st.Recent {
		r.Price, r.BrokerCommission = 0, 0
		recent[i] = r
	}
	st.Recent = recent
	return st
}
