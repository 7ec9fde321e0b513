package main

import (
	"net/http"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/i18n"
	"github.com/diewo77/inspection-workshop/internal/ai"
	"github.com/diewo77/inspection-workshop/internal/config"
	"github.com/diewo77/inspection-workshop/internal/handlers"
	"github.com/diewo77/inspection-workshop/internal/nav"
	"github.com/diewo77/inspection-workshop/internal/policy"
	"github.com/diewo77/inspection-workshop/internal/poller"
	"github.com/diewo77/inspection-workshop/internal/prefs"
	"github.com/diewo77/inspection-workshop/internal/storage"
	"github.com/diewo77/inspection-workshop/view"
)

// Services are the long-lived collaborators the routes are built from.
type Services struct {
	Config   *config.Config
	Deps     handlers.Deps
	Sessions *auth.Sessions
	Files    *storage.FileStore
	Poller   *poller.Poller
	Nav      *nav.Navigator
	Prefs    *prefs.Store
	AI       *ai.Client
}

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	svc      *Services
	gate     *policy.AuthGate
	sessions *auth.Sessions
}

// NewApp creates a new application with all routes configured.
func NewApp(svc *Services) *App {
	app := &App{
		mux:      http.NewServeMux(),
		svc:      svc,
		gate:     svc.Deps.Gate,
		sessions: svc.Sessions,
	}
	// Expose minimal permission resolvers to the view layer so templates can show/hide UI based on permissions
	view.SetLangResolver(handlers.Lang)
	view.SetCanResolver(func(r *http.Request, capability string) bool {
		return app.gate.Can(r.Context(), gate.Permission(capability))
	})
	view.SetIsAdminResolver(func(r *http.Request) bool {
		return gate.IsGeneralManager(app.gate.Subject(r.Context()))
	})
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Apply global middleware: auth context + preferences (language, theme)
	handler := a.sessions.Middleware(withPreferences(a.mux))
	handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	d := a.svc.Deps

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	sh := handlers.NewSessionHandler(d, a.sessions)

	a.mux.HandleFunc("GET /login", sh.LoginPage)
	a.mux.HandleFunc("GET /api/login/employees", sh.Employees)
	a.mux.HandleFunc("POST /api/login", sh.Login)
	a.mux.HandleFunc("POST /api/setup", sh.Setup)
	a.mux.HandleFunc("POST /api/logout", sh.Logout)
	a.mux.Handle("GET "+storage.PublicPrefix, a.svc.Files.Handler())

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (require a signed-in, active employee)
	// ─────────────────────────────────────────────────────────────────────────
	sys := handlers.NewSystemHandler(d, a.svc.Poller, a.svc.Nav, a.svc.Prefs, a.svc.AI)
	up := handlers.NewUploadHandler(d)

	a.mux.Handle("GET /{$}", a.requireAuth(http.HandlerFunc(sh.Home)))
	a.mux.Handle("GET /dashboard", a.requireAuth(http.HandlerFunc(sh.Home)))
	a.mux.Handle("GET /api/me", a.signedIn(sh.Me))
	a.mux.Handle("POST /api/refresh", a.signedIn(sys.Refresh))
	a.mux.Handle("GET /api/status", a.signedIn(sys.Status))
	a.mux.Handle("GET /api/estimate", a.signedIn(sys.Estimate))
	a.mux.Handle("GET /api/nav", a.signedIn(sys.Nav))
	a.mux.Handle("POST /api/nav", a.signedIn(sys.Navigate))
	a.mux.Handle("POST /api/nav/back", a.signedIn(sys.Back))
	a.mux.Handle("GET /api/prefs", a.signedIn(sys.Prefs))
	a.mux.Handle("GET /api/prefs/{key}", a.signedIn(sys.GetPref))
	a.mux.Handle("PUT /api/prefs/{key}", a.signedIn(sys.SetPref))
	a.mux.Handle("DELETE /api/prefs/{key}", a.signedIn(sys.DeletePref))
	a.mux.Handle("GET /api/notifications", a.signedIn(sys.Notifications))
	a.mux.Handle("DELETE /api/notifications/{id}", a.signedIn(sys.Dismiss))
	a.mux.Handle("POST /api/confirmations", a.signedIn(sys.Confirm))
	a.mux.Handle("POST /api/uploads/{bucket}", a.signedIn(up.Upload))
	a.mux.Handle("DELETE /api/uploads", a.signedIn(up.Remove))

	a.mux.Handle("GET /api/dashboard", a.allow(gate.ViewDashboard, sys.Dashboard))

	// ─────────────────────────────────────────────────────────────────────────
	// Requests
	// ─────────────────────────────────────────────────────────────────────────
	rh := handlers.NewRequestHandler(d)

	a.mux.Handle("GET /api/requests", a.allow(gate.ViewRequests, rh.List))
	a.mux.Handle("GET /api/requests/next-number", a.allow(gate.CreateRequests, rh.NextNumber))
	a.mux.Handle("POST /api/requests", a.allow(gate.CreateRequests, rh.Create))
	a.mux.Handle("GET /api/requests/{id}", a.allow(gate.ViewRequests, rh.Get))
	a.mux.Handle("PATCH /api/requests/{id}", a.allow(gate.ManageRequests, rh.Update))
	a.mux.Handle("DELETE /api/requests/{id}", a.allow(gate.DeleteRequests, rh.Delete))
	a.mux.Handle("PUT /api/requests/{id}/status", a.allow(gate.ManageRequests, rh.SetStatus))
	a.mux.Handle("PUT /api/requests/{id}/findings", a.allow(gate.ManageRequests, rh.SetFindings))
	a.mux.Handle("POST /api/requests/{id}/notes", a.allow(gate.ManageRequests, rh.AddNote))
	a.mux.Handle("DELETE /api/requests/{id}/notes/{noteID}", a.allow(gate.ManageRequests, rh.DeleteNote))
	a.mux.Handle("POST /api/requests/{id}/attachments", a.allow(gate.ManageRequests, rh.AddAttachment))
	a.mux.Handle("GET /api/requests/{id}/activity", a.allow(gate.ViewRequests, rh.Activity))

	// Reports and exports
	rp := handlers.NewReportHandler(d, a.svc.Config.Server.BaseURL, a.svc.Config.App.ReportFont)

	a.mux.Handle("GET /api/requests/{id}/report.pdf", a.allow(gate.PrintReports, rp.PDF))
	a.mux.Handle("GET /requests/{id}/report",
		a.requireAuth(a.requirePermission(gate.PrintReports)(http.HandlerFunc(rp.Preview))))
	a.mux.Handle("GET /api/export/requests.xlsx", a.allow(gate.ViewFinancials, rp.ExportRequests))
	a.mux.Handle("GET /api/export/expenses.xlsx", a.allow(gate.ManageExpenses, rp.ExportExpenses))

	// ─────────────────────────────────────────────────────────────────────────
	// Clients, cars and brokers
	// ─────────────────────────────────────────────────────────────────────────
	ch := handlers.NewClientHandler(d)
	bh := handlers.NewBrokerHandler(d)
	cat := handlers.NewCatalogHandler(d)

	a.mux.Handle("GET /api/clients", a.allow(gate.ViewRequests, ch.List))
	a.mux.Handle("POST /api/clients", a.allow(gate.CreateRequests, ch.Create))
	a.mux.Handle("GET /api/clients/{id}", a.allow(gate.ViewRequests, ch.Get))
	a.mux.Handle("PATCH /api/clients/{id}", a.allow(gate.ManageClients, ch.Update))
	a.mux.Handle("DELETE /api/clients/{id}", a.allow(gate.ManageClients, ch.Delete))
	a.mux.Handle("GET /api/clients/{id}/requests", a.allow(gate.ViewRequests, ch.Requests))

	a.mux.Handle("GET /api/cars", a.allow(gate.ViewRequests, cat.ListCars))
	a.mux.Handle("POST /api/cars", a.allow(gate.CreateRequests, cat.CreateCar))
	a.mux.Handle("GET /api/cars/{id}", a.allow(gate.ViewRequests, cat.GetCar))
	a.mux.Handle("PATCH /api/cars/{id}", a.allow(gate.ManageClients, cat.UpdateCar))
	a.mux.Handle("DELETE /api/cars/{id}", a.allow(gate.ManageClients, cat.DeleteCar))

	a.mux.Handle("GET /api/brokers", a.allow(gate.ViewRequests, bh.List))
	a.mux.Handle("POST /api/brokers", a.allow(gate.ManageBrokers, bh.Create))
	a.mux.Handle("GET /api/brokers/{id}", a.allow(gate.ViewRequests, bh.Get))
	a.mux.Handle("PATCH /api/brokers/{id}", a.allow(gate.ManageBrokers, bh.Update))
	a.mux.Handle("DELETE /api/brokers/{id}", a.allow(gate.ManageBrokers, bh.Delete))

	// ─────────────────────────────────────────────────────────────────────────
	// Catalog
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /api/makes", a.allow(gate.ViewRequests, cat.Makes.List))
	a.mux.Handle("POST /api/makes/find-or-create", a.allow(gate.CreateRequests, cat.FindOrCreateMake))
	a.mux.Handle("POST /api/makes", a.allow(gate.ManageSettings, cat.Makes.Create))
	a.mux.Handle("PATCH /api/makes/{id}", a.allow(gate.ManageSettings, cat.Makes.Update))
	a.mux.Handle("DELETE /api/makes/{id}", a.allow(gate.ManageSettings, cat.Makes.Delete))

	a.mux.Handle("GET /api/models", a.allow(gate.ViewRequests, cat.Models.List))
	a.mux.Handle("POST /api/models/find-or-create", a.allow(gate.CreateRequests, cat.FindOrCreateModel))
	a.mux.Handle("POST /api/models", a.allow(gate.ManageSettings, cat.Models.Create))
	a.mux.Handle("PATCH /api/models/{id}", a.allow(gate.ManageSettings, cat.Models.Update))
	a.mux.Handle("DELETE /api/models/{id}", a.allow(gate.ManageSettings, cat.Models.Delete))

	a.mux.Handle("GET /api/inspection-types", a.allow(gate.ViewRequests, cat.InspectionTypes.List))
	a.mux.Handle("GET /api/inspection-types/{id}", a.allow(gate.ViewRequests, cat.InspectionTypes.Get))
	a.mux.Handle("POST /api/inspection-types", a.allow(gate.ManageSettings, cat.InspectionTypes.Create))
	a.mux.Handle("PATCH /api/inspection-types/{id}", a.allow(gate.ManageSettings, cat.InspectionTypes.Update))
	a.mux.Handle("DELETE /api/inspection-types/{id}", a.allow(gate.ManageSettings, cat.InspectionTypes.Delete))

	a.mux.Handle("GET /api/categories", a.allow(gate.ViewRequests, cat.Categories.List))
	a.mux.Handle("POST /api/categories", a.allow(gate.ManageSettings, cat.Categories.Create))
	a.mux.Handle("PATCH /api/categories/{id}", a.allow(gate.ManageSettings, cat.Categories.Update))
	a.mux.Handle("DELETE /api/categories/{id}", a.allow(gate.ManageSettings, cat.Categories.Delete))

	a.mux.Handle("GET /api/findings", a.allow(gate.ViewRequests, cat.Findings.List))
	a.mux.Handle("POST /api/findings", a.allow(gate.ManageSettings, cat.Findings.Create))
	a.mux.Handle("PATCH /api/findings/{id}", a.allow(gate.ManageSettings, cat.Findings.Update))
	a.mux.Handle("DELETE /api/findings/{id}", a.allow(gate.ManageSettings, cat.Findings.Delete))

	// ─────────────────────────────────────────────────────────────────────────
	// Expenses and employees
	// ─────────────────────────────────────────────────────────────────────────
	eh := handlers.NewExpenseHandler(d)
	emp := handlers.NewEmployeeHandler(d)

	a.mux.Handle("GET /api/expenses", a.allow(gate.ManageExpenses, eh.List))
	a.mux.Handle("POST /api/expenses", a.allow(gate.ManageExpenses, eh.Create))
	a.mux.Handle("GET /api/expenses/{id}", a.allow(gate.ManageExpenses, eh.Get))
	a.mux.Handle("PATCH /api/expenses/{id}", a.allow(gate.ManageExpenses, eh.Update))
	a.mux.Handle("DELETE /api/expenses/{id}", a.allow(gate.ManageExpenses, eh.Delete))

	a.mux.Handle("GET /api/employees", a.allow(gate.ManageEmployees, emp.List))
	a.mux.Handle("POST /api/employees", a.allow(gate.ManageEmployees, emp.Create))
	a.mux.Handle("GET /api/employees/{id}", a.allow(gate.ManageEmployees, emp.Get))
	a.mux.Handle("PATCH /api/employees/{id}", a.allow(gate.ManageEmployees, emp.Update))
	a.mux.Handle("DELETE /api/employees/{id}", a.allow(gate.ManageEmployees, emp.Delete))

	// ─────────────────────────────────────────────────────────────────────────
	// Settings and AI
	// ─────────────────────────────────────────────────────────────────────────
	st := handlers.NewSettingsHandler(d, a.svc.AI)
	aih := handlers.NewAIHandler(d, a.svc.AI)

	a.mux.Handle("GET /api/settings", a.signedIn(st.Get))
	a.mux.Handle("PATCH /api/settings", a.allow(gate.ManageSettings, st.Patch))
	a.mux.Handle("PUT /api/settings", a.allow(gate.ManageSettings, st.Replace))
	a.mux.Handle("POST /api/settings/templates", a.allow(gate.ManageSettings, st.SaveTemplate))
	a.mux.Handle("POST /api/settings/templates/{name}/apply", a.allow(gate.ManageSettings, st.ApplyTemplate))
	a.mux.Handle("DELETE /api/settings/templates/{name}", a.allow(gate.ManageSettings, st.DeleteTemplate))
	a.mux.Handle("GET /api/settings/themes", a.signedIn(st.Themes))
	a.mux.Handle("POST /api/settings/themes/{name}/apply", a.allow(gate.ManageSettings, st.ApplyTheme))
	a.mux.Handle("POST /api/settings/themes/suggest", a.allow(gate.ManageSettings, st.SuggestTheme))

	a.mux.Handle("POST /api/ai/plate", a.allow(gate.UseAI, aih.Plate))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

// requireAuth wraps a handler to require a valid session.
func (a *App) requireAuth(next http.Handler) http.Handler {
	return a.sessions.RequireAuth(next)
}

// requirePermission wraps a handler to require a capability.
func (a *App) requirePermission(capability gate.Permission) func(http.Handler) http.Handler {
	return a.gate.RequirePermission(capability)
}

// allow is requireAuth + requirePermission around a handler func.
func (a *App) allow(capability gate.Permission, fn http.HandlerFunc) http.Handler {
	return a.requireAuth(a.requirePermission(capability)(fn))
}

// signedIn only requires an active employee.
func (a *App) signedIn(fn http.HandlerFunc) http.Handler {
	return a.requireAuth(a.gate.RequireSubject(fn))
}

// withPreferences injects language and theme preferences from cookies/query.
func withPreferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// Get language preference (from cookie or query)
		lang := ""
		if c, err := r.Cookie("lang"); err == nil && c.Value != "" {
			lang = c.Value
		}
		if q := r.URL.Query().Get("lang"); q != "" {
			lang = i18n.Normalize(q)
			http.SetCookie(w, &http.Cookie{
				Name:     "lang",
				Value:    lang,
				Path:     "/",
				MaxAge:   86400 * 365,
				HttpOnly: true,
			})
		}
		if lang == "" {
			lang = i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		}
		ctx = i18n.WithLang(ctx, lang)

		if c, err := r.Cookie("theme"); err == nil && (c.Value == "dark" || c.Value == "light") {
			ctx = view.WithTheme(ctx, c.Value)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
