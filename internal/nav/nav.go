// Package nav keeps each employee's page history: a bounded stack of page
// identifiers persisted between sessions.
package nav

import (
	"context"
	"sync"

	"github.com/diewo77/inspection-workshop/gate"
	"github.com/diewo77/inspection-workshop/internal/prefs"
)

// MaxDepth bounds the history stack.
const MaxDepth = 20

// History is a bounded stack of pages. The zero value is empty and uses MaxDepth.
type History struct {
	Pages []gate.Page `json:"pages"`
	max   int
}

// NewHistory returns a history starting on page, bounded to max entries.
func NewHistory(max int, pages ...gate.Page) *History {
	if max <= 0 {
		max = MaxDepth
	}
	h := &History{max: max}
	for _, p := range pages {
		h.Navigate(p)
	}
	return h
}

func (h *History) limit() int {
	if h.max <= 0 {
		return MaxDepth
	}
	return h.max
}

// Navigate pushes page unless it is already on top, dropping the oldest
// entries when the stack exceeds its bound.
func (h *History) Navigate(page gate.Page) {
	if n := len(h.Pages); n > 0 && h.Pages[n-1] == page {
		return
	}
	h.Pages = append(h.Pages, page)
	if over := len(h.Pages) - h.limit(); over > 0 {
		h.Pages = append([]gate.Page(nil), h.Pages[over:]...)
	}
}

// Back pops the top page and returns the new current one. At depth 1 or
// less it does nothing.
func (h *History) Back() gate.Page {
	if len(h.Pages) > 1 {
		h.Pages = h.Pages[:len(h.Pages)-1]
	}
	return h.Current()
}

// Current returns the top page, or the dashboard when the history is empty.
func (h *History) Current() gate.Page {
	if len(h.Pages) == 0 {
		return gate.PageDashboard
	}
	return h.Pages[len(h.Pages)-1]
}

// Len returns the stack depth.
func (h *History) Len() int { return len(h.Pages) }

// Resolve returns the page subject should see: the current page when allowed,
// otherwise the first page of the menu the subject may open (which is then
// pushed). ok is false when the subject can open nothing.
func (h *History) Resolve(s *gate.Subject) (gate.Page, bool) {
	cur := h.Current()
	if gate.CanOpen(s, cur) {
		return cur, true
	}
	first, ok := gate.FirstAllowedPage(s)
	if !ok {
		return "", false
	}
	h.Navigate(first)
	return first, true
}

// Navigator loads and saves histories through the preference store.
type Navigator struct {
	prefs *prefs.Store
	depth int
	mu    sync.Mutex
}

// NewNavigator returns a Navigator persisting histories in p.
func NewNavigator(p *prefs.Store, depth int) *Navigator {
	if depth <= 0 {
		depth = MaxDepth
	}
	return &Navigator{prefs: p, depth: depth}
}

// Load returns the stored history of owner, empty when none was saved.
func (n *Navigator) Load(ctx context.Context, owner string) (*History, error) {
	var pages []gate.Page
	if _, err := n.prefs.Get(ctx, owner, prefs.KeyNavHistory, &pages); err != nil {
		return nil, err
	}
	h := NewHistory(n.depth)
	for _, p := range pages {
		if p.Valid() {
			h.Navigate(p)
		}
	}
	return h, nil
}

func (n *Navigator) save(ctx context.Context, owner string, h *History) error {
	return n.prefs.Set(ctx, owner, prefs.KeyNavHistory, h.Pages)
}

// Navigate records a visit to page for owner and returns the updated history.
func (n *Navigator) Navigate(ctx context.Context, owner string, page gate.Page) (*History, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	h, err := n.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	h.Navigate(page)
	return h, n.save(ctx, owner, h)
}

// Back pops the history of owner.
func (n *Navigator) Back(ctx context.Context, owner string) (*History, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	h, err := n.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	h.Back()
	return h, n.save(ctx, owner, h)
}

// Resolve returns the page s should land on, redirecting when the current
// page became disallowed.
func (n *Navigator) Resolve(ctx context.Context, s *gate.Subject) (gate.Page, error) {
	if s == nil {
		return "", gate.ErrUnauthorized
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	h, err := n.Load(ctx, s.ID)
	if err != nil {
		return "", err
	}
	before := h.Len()
	cur := h.Current()
	page, ok := h.Resolve(s)
	if !ok {
		return "", gate.ErrForbidden
	}
	if page != cur || h.Len() != before {
		if err := n.save(ctx, s.ID, h); err != nil {
			return "", err
		}
	}
	return page, nil
}
