package handlers

import (
	"net/http"
	"strings"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/i18n"
	"github.com/diewo77/inspection-workshop/internal/models"
	"github.com/diewo77/inspection-workshop/internal/policy"
	"github.com/diewo77/inspection-workshop/validation"
	"github.com/diewo77/inspection-workshop/view"
)

// SessionHandler signs employees in and out of the shared terminal.
type SessionHandler struct {
	Deps
	Sessions *auth.Sessions
}

func NewSessionHandler(d Deps, s *auth.Sessions) *SessionHandler {
	return &SessionHandler{Deps: d, Sessions: s}
}

// LoginPage renders the PIN pad, or redirects a signed-in employee.
func (h *SessionHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.EmployeeIDFromContext(r.Context()); ok && h.subject(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := map[string]any{
		"Employees": h.activeEmployees(),
		"NeedSetup": len(h.State.Employees()) == 0,
	}
	if err := view.Render(w, r, "login.html", data); err != nil {
		h.logf("render login: %v", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}

type employeeOption struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (h *SessionHandler) activeEmployees() []employeeOption {
	out := []employeeOption{}
	for _, e := range h.State.Employees() {
		if e.IsActive {
			out = append(out, employeeOption{ID: e.ID, Name: e.Name, AvatarURL: e.AvatarURL})
		}
	}
	return out
}

// Employees lists who may sign in. It is public: the terminal shows it
// before anyone is signed in.
func (h *SessionHandler) Employees(w http.ResponseWriter, r *http.Request) {
	list := h.activeEmployees()
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":       list,
		"needs_setup": len(h.State.Employees()) == 0,
	})
}

type loginInput struct {
	EmployeeID string `json:"employee_id"`
	PIN        string `json:"pin"`
}

func (h *SessionHandler) reject(w http.ResponseWriter, r *http.Request, status int, code string) {
	httpx.JSONErrorMessage(w, status, code, i18n.T(Lang(r), code), nil)
}

// Login checks the PIN and opens a session.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "invalid_pin")
		return
	}
	e, ok := h.State.Employee(in.EmployeeID)
	if !ok || !e.CheckPIN(in.PIN) {
		h.reject(w, r, http.StatusUnauthorized, "invalid_pin")
		return
	}
	if !e.IsActive {
		h.reject(w, r, http.StatusForbidden, "inactive_employee")
		return
	}
	token, err := h.Sessions.CreateSession(w, e.ID, e.Name)
	if err != nil {
		h.fail(w, r, err, "invalid_pin")
		return
	}
	h.Gate.InvalidateEmployee(e.ID)
	h.meFor(w, http.StatusOK, policy.SubjectFor(e), token)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

type meView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Role        string      `json:"role"`
	Permissions []string    `json:"permissions"`
	Pages       []gate.Page `json:"pages"`
	Home        gate.Page   `json:"home"`
	Token       string      `json:"token,omitempty"`
}

func (h *SessionHandler) meFor(w http.ResponseWriter, status int, s *gate.Subject, token string) {
	out := meView{ID: s.ID, Name: s.Name, Role: s.Role.Name(), Token: token, Permissions: []string{}, Pages: []gate.Page{}}
	for _, p := range gate.Catalog {
		if gate.Can(s, p) {
			out.Permissions = append(out.Permissions, string(p))
		}
	}
	for _, p := range gate.PageOrder {
		if gate.CanOpen(s, p) {
			out.Pages = append(out.Pages, p)
		}
	}
	out.Home, _ = gate.FirstAllowedPage(s)
	httpx.JSON(w, status, out)
}

// Me describes the signed-in employee and what they may open.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := h.subject(r)
	if s == nil {
		h.reject(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.meFor(w, http.StatusOK, s, "")
}

type setupInput struct {
	Name string `json:"name"`
	PIN  string `json:"pin"`
}

// Setup creates the general manager of a fresh installation and signs them in.
func (h *SessionHandler) Setup(w http.ResponseWriter, r *http.Request) {
	if len(h.State.Employees()) > 0 {
		h.reject(w, r, http.StatusConflict, "setup_done")
		return
	}
	var in setupInput
	if err := httpx.Decode(r, &in); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	e := models.Employee{Name: strings.TrimSpace(in.Name), Role: models.RoleGeneralManager, IsActive: true}
	v := validation.Violations{}
	checkPIN(in.PIN, v)
	if v["pin"] == "" {
		if err := e.SetPIN(in.PIN); err != nil {
			v["pin"] = "invalid_pin"
		}
	}
	if v = v.Merge(validation.Struct(&e)); !v.Empty() {
		h.invalid(w, r, v)
		return
	}
	if err := h.State.AddEmployee(r.Context(), &e); err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	token, err := h.Sessions.CreateSession(w, e.ID, e.Name)
	if err != nil {
		h.fail(w, r, err, "save_failed")
		return
	}
	h.meFor(w, http.StatusCreated, policy.SubjectFor(e), token)
}

// Home renders the back office shell for the signed-in employee.
func (h *SessionHandler) Home(w http.ResponseWriter, r *http.Request) {
	s := h.subject(r)
	if s == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	pages := []gate.Page{}
	for _, p := range gate.PageOrder {
		if gate.CanOpen(s, p) {
			pages = append(pages, p)
		}
	}
	home, _ := gate.FirstAllowedPage(s)
	data := map[string]any{"Name": s.Name, "Pages": pages, "Home": home}
	if err := view.Render(w, r, "app.html", data); err != nil {
		h.logf("render home: %v", err)
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
