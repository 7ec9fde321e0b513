package handlers

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/validation"
	"gorm.io/datatypes"
)

// ClientHandler serves /api/clients.
type ClientHandler struct {
	resource[models.Client, *models.Client]
}

func NewClientHandler(d Deps) *ClientHandler {
	return &ClientHandler{resource[models.Client, *models.Client]{
		Deps:   d,
		kind:   "client",
		all:    d.State.Clients,
		get:    d.State.ClientByID,
		add:    d.State.AddClient,
		update: d.State.UpdateClient,
		remove: d.State.DeleteClient,
		match: func(c models.Client, q string) bool {
			return contains(c.Name, q) || contains(c.Phone, q)
		},
	}}
}

// Requests lists the requests of one client, newest first.
func (h *ClientHandler) Requests(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.State.ClientByID(id); !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	out := []models.InspectionRequest{}
	for _, req := range h.State.Requests() {
		if req.ClientID == id {
			out = append(out, req)
		}
	}
	slices.SortFunc(out, func(a, b models.InspectionRequest) int { return b.RequestNumber - a.RequestNumber })
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// BrokerHandler serves /api/brokers.
type BrokerHandler struct {
	resource[models.Broker, *models.Broker]
}

func NewBrokerHandler(d Deps) *BrokerHandler {
	return &BrokerHandler{resource[models.Broker, *models.Broker]{
		Deps:   d,
		kind:   "broker",
		all:    d.State.Brokers,
		get:    d.State.Broker,
		add:    d.State.AddBroker,
		update: d.State.UpdateBroker,
		remove: d.State.DeleteBroker,
		blank:  func() models.Broker { return models.Broker{IsActive: true} },
		match: func(b models.Broker, q string) bool {
			return contains(b.Name, q) || contains(b.Phone, q)
		},
	}}
}

// ExpenseHandler serves /api/expenses.
type ExpenseHandler struct {
	resource[models.Expense, *models.Expense]
}

func NewExpenseHandler(d Deps) *ExpenseHandler {
	h := &ExpenseHandler{resource[models.Expense, *models.Expense]{
		Deps:   d,
		kind:   "expense",
		get:    d.State.Expense,
		add:    d.State.AddExpense,
		update: d.State.UpdateExpense,
		remove: d.State.DeleteExpense,
		match: func(e models.Expense, q string) bool {
			return contains(e.Description, q) || contains(e.Category, q)
		},
		check: func(e *models.Expense, _ validation.Violations) {
			if e.Date.IsZero() {
				e.Date = time.Now()
			}
		},
	}}
	h.all = func() []models.Expense {
		list := d.State.Expenses()
		slices.SortFunc(list, func(a, b models.Expense) int { return b.Date.Compare(a.Date) })
		return list
	}
	return h
}

// EmployeeHandler serves /api/employees. PINs are write-only.
type EmployeeHandler struct {
	Deps
}

func NewEmployeeHandler(d Deps) *EmployeeHandler { return &EmployeeHandler{Deps: d} }

type employeeInput struct {
	Name        *string      `json:"name"`
	Role        *models.Role `json:"role"`
	PIN         *string      `json:"pin"`
	IsActive    *bool        `json:"is_active"`
	Permissions []string     `json:"permissions"`
	AvatarURL   *string      `json:"avatar_url"`
}

// MinPINLength and MaxPINLength bound employee PINs.
const (
	MinPINLength = 4
	MaxPINLength = 8
)

func checkPIN(pin string, v validation.Violations) {
	if len(pin) < MinPINLength || len(pin) > MaxPINLength {
		v["pin"] = "invalid_pin"
		return
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			v["pin"] = "invalid_pin"
			return
		}
	}
}

// apply copies the input onto e and returns the violations.
func (in employeeInput) apply(e *models.Employee, creating bool) validation.Violations {
	v := validation.Violations{}
	if in.Name != nil {
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.Role != nil {
		e.Role = *in.Role
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	if in.AvatarURL != nil {
		e.AvatarURL = *in.AvatarURL
	}
	if in.Permissions != nil {
		perms := make(datatypes.JSONSlice[string], 0, len(in.Permissions))
		for _, p := range in.Permissions {
			if !gate.Known(gate.Permission(p)) {
				v["permissions"] = "invalid_choice"
				continue
			}
			perms = append(perms, p)
		}
		e.Permissions = perms
	}
	switch {
	case in.PIN != nil:
		checkPIN(*in.PIN, v)
		if v["pin"] == "" {
			if err := e.SetPIN(*in.PIN); err != nil {
				v["pin"] = "invalid_pin"
			}
		}
	case creating:
		v["pin"] = "required"
	}
	return v.Merge(validation.Struct(e))
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.State.Employees()
	if list == nil {
		list = []models.Employee{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, ok := h.State.Employee(r.PathValue("id"))
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in employeeInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	e := models.Employee{Role: models.RoleEmployee, IsActive: true}
	if v := in.apply(&e, true); !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.State.AddEmployee(r.Context(), &e); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.ok(w, r, http.StatusCreated, "created", e)
}

func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, ok := h.State.Employee(id)
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	var in employeeInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	if v := in.apply(&e, false); !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.State.UpdateEmployee(r.Context(), &e); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.Gate.InvalidateEmployee(id)
	h.ok(w, r, http.StatusOK, "saved", e)
}

func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.State.Employee(id); !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	if !h.confirmed(w, r, DeleteAction("employee", id)) {
		return
	}
	if err := h.State.DeleteEmployee(r.Context(), id); err != nil {
		h.fail(w, r, err, "delete_failed")
		return
	}
	h.Gate.InvalidateEmployee(id)
	h.ok(w, r, http.StatusOK, "deleted", map[string]string{"id": id})
}
