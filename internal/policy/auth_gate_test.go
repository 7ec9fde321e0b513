package policy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/internal/db"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/store"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupGate(t *testing.T) (*AuthGate, *store.Table[models.Employee]) {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Migrate(d); err != nil {
		t.Fatal(err)
	}
	employees := store.NewTable[models.Employee](d)
	return NewAuthGate(employees, time.Minute), employees
}

func TestRoleFor(t *testing.T) {
	gm := RoleFor(models.Employee{Role: models.RoleGeneralManager})
	if _, ok := gm.(gate.GeneralManager); !ok {
		t.Fatalf("general manager role = %T", gm)
	}
	scoped := RoleFor(models.Employee{Role: models.RoleEmployee, Permissions: datatypes.JSONSlice[string]{"requests:view"}})
	s := &gate.Subject{Role: scoped}
	if !gate.Can(s, gate.ViewRequests) || gate.Can(s, gate.ManageSettings) {
		t.Fatal("scoped role does not follow its list")
	}
}

func TestRequirePermission(t *testing.T) {
	ag, employees := setupGate(t)
	ctx := context.Background()
	clerk := &models.Employee{Name: "Clerk", Role: models.RoleEmployee, IsActive: true,
		Permissions: datatypes.JSONSlice[string]{string(gate.ViewRequests)}}
	boss := &models.Employee{Name: "Boss", Role: models.RoleGeneralManager, IsActive: true}
	gone := &models.Employee{Name: "Gone", Role: models.RoleGeneralManager, IsActive: true}
	for _, e := range []*models.Employee{clerk, boss, gone} {
		if err := employees.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	// is_active has a database default of true, so it must be switched off after insert.
	gone.IsActive = false
	if err := employees.Update(ctx, gone); err != nil {
		t.Fatal(err)
	}

	var seen *gate.Subject
	h := ag.RequirePermission(gate.ManageSettings)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ag.Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"missing employee", "nope", http.StatusUnauthorized},
		{"inactive employee", gone.ID, http.StatusUnauthorized},
		{"scoped without permission", clerk.ID, http.StatusForbidden},
		{"general manager", boss.ID, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
			if tt.id != "" {
				req = req.WithContext(auth.WithEmployeeID(req.Context(), tt.id))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
	if seen == nil || seen.ID != boss.ID {
		t.Fatalf("subject not propagated: %+v", seen)
	}
}

func TestInvalidateEmployee(t *testing.T) {
	ag, employees := setupGate(t)
	ctx := context.Background()
	e := &models.Employee{Name: "Clerk", Role: models.RoleEmployee, IsActive: true}
	if err := employees.Insert(ctx, e); err != nil {
		t.Fatal(err)
	}
	if ag.Can(auth.WithEmployeeID(ctx, e.ID), gate.ManageClients) {
		t.Fatal("unexpected permission")
	}
	e.Permissions = datatypes.JSONSlice[string]{string(gate.ManageClients)}
	if err := employees.Update(ctx, e); err != nil {
		t.Fatal(err)
	}
	ag.InvalidateEmployee(e.ID)
	if !ag.Can(auth.WithEmployeeID(ctx, e.ID), gate.ManageClients) {
		t.Fatal("permission change not visible after invalidation")
	}
	if !ag.Verify(ctx, e.ID) || ag.Verify(ctx, "missing") {
		t.Fatal("Verify mismatch")
	}
}
