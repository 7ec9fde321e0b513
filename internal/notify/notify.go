// Package notify holds the ephemeral per-employee notifications raised by
// mutations and the confirmation tokens guarding destructive operations.
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind is the severity of a notification.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
	Warning Kind = "warning"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Notification is a toast shown to one employee.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

var (
	// ErrConfirmationRequired is returned when a destructive action has no valid token.
	ErrConfirmationRequired = errors.New("confirm_required")
)

type confirmation struct {
	owner   string
	action  string
	expires time.Time
}

// Center stores notifications and confirmation tokens in memory.
type Center struct {
	ttl        time.Duration
	confirmTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	items    map[string][]Notification
	confirms map[string]confirmation
}

// Option configures a Center.
type Option func(*Center)

// WithTTL sets the notification lifetime.
func WithTTL(d time.Duration) Option {
	return func(c *Center) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithConfirmTTL sets the confirmation token lifetime.
func WithConfirmTTL(d time.Duration) Option {
	return func(c *Center) {
		if d > 0 {
			c.confirmTTL = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

// NewCenter returns an empty Center.
func NewCenter(opts ...Option) *Center {
	c := &Center{
		ttl:        DefaultTTL,
		confirmTTL: time.Minute,
		now:        time.Now,
		items:      map[string][]Notification{},
		confirms:   map[string]confirmation{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Push raises a notification for owner.
func (c *Center) Push(owner string, kind Kind, message string) Notification {
	now := c.now()
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[owner] = append(c.prune(owner, now), n)
	return n
}

// prune drops expired notifications of owner. Caller holds mu.
func (c *Center) prune(owner string, now time.Time) []Notification {
	list := c.items[owner]
	live := list[:0]
	for _, n := range list {
		if now.Before(n.ExpiresAt) {
			live = append(live, n)
		}
	}
	if len(live) == 0 {
		delete(c.items, owner)
		return nil
	}
	c.items[owner] = live
	return live
}

// Active returns the unexpired notifications of owner, oldest first.
func (c *Center) Active(owner string) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := c.prune(owner, c.now())
	out := make([]Notification, len(live))
	copy(out, live)
	return out
}

// Dismiss removes one notification. It reports whether it existed.
func (c *Center) Dismiss(owner, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.items[owner]
	for i, n := range list {
		if n.ID == id {
			c.items[owner] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Confirm issues a single-use token allowing owner to perform action.
func (c *Center) Confirm(owner, action string) (string, time.Time) {
	now := c.now()
	token := uuid.NewString()
	exp := now.Add(c.confirmTTL)
	c.mu.Lock()
	defer c.mu.Unlock()
	for t, cf := range c.confirms {
		if !now.Before(cf.expires) {
			delete(c.confirms, t)
		}
	}
	c.confirms[token] = confirmation{owner: owner, action: action, expires: exp}
	return token, exp
}

// Consume checks and burns a token. It fails with ErrConfirmationRequired when
// the token is unknown, expired, or issued to another owner or action.
func (c *Center) Consume(owner, action, token string) error {
	if token == "" {
		return ErrConfirmationRequired
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cf, ok := c.confirms[token]
	if !ok {
		return ErrConfirmationRequired
	}
	if !c.now().Before(cf.expires) {
		delete(c.confirms, token)
		return ErrConfirmationRequired
	}
	if cf.owner != owner || cf.action != action {
		return ErrConfirmationRequired
	}
	delete(c.confirms, token)
	return nil
}
