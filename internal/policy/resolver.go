package policy

import (
	"context"
	"errors"

	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/store"
)

// RoleFor maps an employee to its gate role. The general manager holds
// every permission; other roles hold exactly their stored list.
func RoleFor(e models.Employee) gate.Role {
	if e.Role == models.RoleGeneralManager {
		return gate.GeneralManager{}
	}
	perms := make([]gate.Permission, 0, len(e.Permissions))
	for _, p := range e.Permissions {
		perms = append(perms, gate.Permission(p))
	}
	return gate.Scoped{Role: string(e.Role), Permissions: perms}
}

// SubjectFor builds the gate subject of an employee.
func SubjectFor(e models.Employee) *gate.Subject {
	return &gate.Subject{ID: e.ID, Name: e.Name, Role: RoleFor(e)}
}

// EmployeeResolver fetches employees from the database.
// Inactive or missing employees resolve to a nil subject.
type EmployeeResolver struct {
	Employees *store.Table[models.Employee]
}

// NewEmployeeResolver creates a database-backed resolver.
func NewEmployeeResolver(employees *store.Table[models.Employee]) *EmployeeResolver {
	return &EmployeeResolver{Employees: employees}
}

// Resolve implements gate.Resolver.
func (r *EmployeeResolver) Resolve(ctx context.Context, id string) (*gate.Subject, error) {
	e, err := r.Employees.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, nil
	}
	return SubjectFor(*e), nil
}
