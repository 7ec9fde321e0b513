package state

import (
	"context"

	"github.com/diewo77/inspection-workshop/internal/models"
)

func (s *Store) AddClient(ctx context.Context, c *models.Client) error {
	return insert(ctx, s, s.client.Clients, &s.clients, c)
}

func (s *Store) UpdateClient(ctx context.Context, c *models.Client) error {
	return update(ctx, s, s.client.Clients, &s.clients, c)
}

// DeleteClient fails with ErrClientHasRequests while any cached request
// references the client. Nothing is deleted in that case.
func (s *Store) DeleteClient(ctx context.Context, id string) error {
	if s.ClientHasRequests(id) {
		return ErrClientHasRequests
	}
	return remove(ctx, s, s.client.Clients, &s.clients, id)
}

// ClientHasRequests reports whether a cached request references the client.
func (s *Store) ClientHasRequests(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.ClientID == id {
			return true
		}
	}
	return false
}

func (s *Store) AddBroker(ctx context.Context, b *models.Broker) error {
	return insert(ctx, s, s.client.Brokers, &s.brokers, b)
}

func (s *Store) UpdateBroker(ctx context.Context, b *models.Broker) error {
	return update(ctx, s, s.client.Brokers, &s.brokers, b)
}

func (s *Store) DeleteBroker(ctx context.Context, id string) error {
	return remove(ctx, s, s.client.Brokers, &s.brokers, id)
}

func (s *Store) AddEmployee(ctx context.Context, e *models.Employee) error {
	return insert(ctx, s, s.client.Employees, &s.employees, e)
}

func (s *Store) UpdateEmployee(ctx context.Context, e *models.Employee) error {
	return update(ctx, s, s.client.Employees, &s.employees, e)
}

func (s *Store) DeleteEmployee(ctx context.Context, id string) error {
	if e, ok := s.Employee(id); ok {
		s.removeImages(ctx, e.ImageURLs())
	}
	return remove(ctx, s, s.client.Employees, &s.employees, id)
}

func (s *Store) AddExpense(ctx context.Context, e *models.Expense) error {
	return insert(ctx, s, s.client.Expenses, &s.expenses, e)
}

func (s *Store) UpdateExpense(ctx context.Context, e *models.Expense) error {
	return update(ctx, s, s.client.Expenses, &s.expenses, e)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	if e, ok := s.Expense(id); ok {
		s.removeImages(ctx, e.ImageURLs())
	}
	return remove(ctx, s, s.client.Expenses, &s.expenses, id)
}
