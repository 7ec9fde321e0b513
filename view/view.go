// Package view renders the server-side pages: the PIN pad and the shell
// hosting the back office. Templates are embedded; with DEV=1 they are
// re-read from disk on every request.
package view

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/diewo77/inspection-workshop/auth"
	"github.com/diewo77/inspection-workshop/i18n"
)

//go:embed templates/*.html
var embedded embed.FS

// devDir is where templates are read from in DEV mode.
const devDir = "view/templates"

// Context key for theme
type themeKey struct{}

// WithTheme returns a new context with the given theme.
func WithTheme(ctx context.Context, theme string) context.Context {
	return context.WithValue(ctx, themeKey{}, theme)
}

// ThemeFromContext retrieves the theme from context, defaulting to "light".
func ThemeFromContext(ctx context.Context) string {
	if theme, ok := ctx.Value(themeKey{}).(string); ok && theme != "" {
		return theme
	}
	return "light"
}

var (
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}

	langResolver  = func(_ *http.Request) string { return i18n.DefaultLang }
	themeResolver = func(r *http.Request) string { return ThemeFromContext(r.Context()) }
	// permission resolvers can be set by the host app to allow templates to check auth
	canResolver     func(*http.Request, string) bool
	isAdminResolver func(*http.Request) bool
)

// SetLangResolver allows the host app to provide a custom language resolver (e.g., reading from context).
func SetLangResolver(f func(*http.Request) string) {
	if f != nil {
		langResolver = f
	}
}

// SetThemeResolver allows the host app to provide a custom theme resolver.
func SetThemeResolver(f func(*http.Request) string) {
	if f != nil {
		themeResolver = f
	}
}

// SetCanResolver sets the callback behind the "can" template func. It
// receives a capability such as "requests:create".
func SetCanResolver(f func(*http.Request, string) bool) {
	if f != nil {
		canResolver = f
	}
}

// SetIsAdminResolver sets the callback telling whether the signed-in
// employee is the general manager.
func SetIsAdminResolver(f func(*http.Request) bool) {
	if f != nil {
		isAdminResolver = f
	}
}

// Funcs returns the standard func map including i18n and simple helpers.
func Funcs(r *http.Request) template.FuncMap {
	lang := langResolver(r)
	theme := themeResolver(r)
	return template.FuncMap{
		"t":    func(code string) string { return i18n.T(lang, code) },
		"lang": func() string { return lang },
		"dir": func() string {
			if lang == "ar" {
				return "rtl"
			}
			return "ltr"
		},
		"can": func(capability string) bool {
			if canResolver == nil {
				return false
			}
			return canResolver(r, capability)
		},
		"isAdmin": func() bool {
			if isAdminResolver == nil {
				return false
			}
			return isAdminResolver(r)
		},
		"theme": func() string { return theme },
		"year":  func() int { return time.Now().Year() },
		// dict creates a map from key-value pairs for passing to sub-templates.
		// Usage: {{ template "partial" (dict "Key1" val1 "Key2" val2) }}
		"dict": func(values ...any) map[string]any {
			if len(values)%2 != 0 {
				return nil
			}
			m := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				m[key] = values[i+1]
			}
			return m
		},
	}
}

// ResetForTests clears the template cache.
func ResetForTests() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
}

func source(dev bool) fs.FS {
	if dev {
		if fi, err := os.Stat(devDir); err == nil && fi.IsDir() {
			return os.DirFS(devDir)
		}
	}
	sub, _ := fs.Sub(embedded, "templates")
	return sub
}

// parse builds the template set of page. Pages holding a full document
// are not wrapped in layout.html.
func parse(src fs.FS, name string, funcs template.FuncMap) (*template.Template, error) {
	content, err := fs.ReadFile(src, name)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(bytes.ToLower(content), []byte("<!doctype")) {
		return template.New(name).Funcs(funcs).ParseFS(src, name)
	}
	return template.New("layout.html").Funcs(funcs).ParseFS(src, "layout.html", name)
}

// Render executes a page template with shared funcs.
// name should be the filename (e.g., "login.html").
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	// Ensure data map exists and inject common defaults to avoid template errors.
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Year"]; !exists {
		data["Year"] = time.Now().Year()
	}
	if _, exists := data["IsLoggedIn"]; !exists {
		_, loggedIn := auth.EmployeeIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}
	devMode := os.Getenv("DEV") == "1"
	funcs := Funcs(r)

	var t *template.Template
	if !devMode {
		tplCache.RLock()
		t = tplCache.m[name]
		tplCache.RUnlock()
	}
	if t == nil {
		parsed, err := parse(source(devMode), name, funcs)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		t = parsed
		if !devMode {
			tplCache.Lock()
			tplCache.m[name] = t
			tplCache.Unlock()
		}
	}
	// Funcs are per request: rebind them on a clone of the cached set.
	t, err := t.Clone()
	if err != nil {
		return err
	}
	t.Funcs(funcs)

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}
