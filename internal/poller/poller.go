// Package poller keeps the state container fresh while employees look at it.
// Opening a page from the fresh-data set triggers one refresh; the requests
// page additionally refreshes on a fixed interval until the viewer moves on.
package poller

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/diewo77/inspection-workshop/gate"
	"github.com/robfig/cron/v3"
)

// DefaultInterval is the refresh period of polled pages.
const DefaultInterval = 10 * time.Second

// FreshPages are the pages that refresh once when opened.
var FreshPages = map[gate.Page]bool{
	gate.PageDashboard: true,
	gate.PageRequests:  true,
	gate.PageClients:   true,
	gate.PageBrokers:   true,
	gate.PageExpenses:  true,
}

// PolledPages refresh periodically while open.
var PolledPages = map[gate.Page]bool{
	gate.PageRequests: true,
}

// Refresher re-fetches the application state.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Poller schedules refreshes per viewer.
type Poller struct {
	refresher Refresher
	cron      *cron.Cron
	interval  time.Duration
	timeout   time.Duration
	logger    *log.Logger

	mu      sync.Mutex
	watches map[string]*watch
}

type watch struct {
	page  gate.Page
	entry cron.EntryID
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the refresh period of polled pages (rounded up to a second).
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// New returns a stopped Poller.
func New(r Refresher, opts ...Option) *Poller {
	p := &Poller{
		refresher: r,
		interval:  DefaultInterval,
		timeout:   30 * time.Second,
		logger:    log.New(io.Discard, "", 0),
		watches:   make(map[string]*watch),
	}
	for _, o := range opts {
		o(p)
	}
	p.cron = cron.New(cron.WithLogger(cron.PrintfLogger(p.logger)))
	return p
}

// Start runs the scheduler in its own goroutine.
func (p *Poller) Start() { p.cron.Start() }

// Stop removes every watch and waits for running jobs to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	for viewer, w := range p.watches {
		if w.entry != 0 {
			p.cron.Remove(w.entry)
		}
		delete(p.watches, viewer)
	}
	p.mu.Unlock()
	<-p.cron.Stop().Done()
}

// Watch records that viewer is now looking at page. Any previous watch of
// the same viewer is cancelled first. The returned function cancels this
// watch; it is a no-op once the viewer moved to another page. Cancelling
// does not abort a refresh already in flight.
func (p *Poller) Watch(viewer string, page gate.Page) (cancel func()) {
	p.mu.Lock()
	p.unwatchLocked(viewer)
	w := &watch{page: page}
	if PolledPages[page] {
		id, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), p.refresh)
		if err != nil {
			p.logger.Printf("schedule refresh for %s: %v", viewer, err)
		} else {
			w.entry = id
		}
	}
	p.watches[viewer] = w
	p.mu.Unlock()

	if FreshPages[page] {
		go p.refresh()
	}

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.watches[viewer] == w {
			p.unwatchLocked(viewer)
		}
	}
}

// Unwatch cancels the viewer's watch, if any.
func (p *Poller) Unwatch(viewer string) {
	p.mu.Lock()
	p.unwatchLocked(viewer)
	p.mu.Unlock()
}

// Watching returns the page the viewer is watching.
func (p *Poller) Watching(viewer string) (gate.Page, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.watches[viewer]
	if !ok {
		return "", false
	}
	return w.page, true
}

// Scheduled returns the number of periodic jobs.
func (p *Poller) Scheduled() int { return len(p.cron.Entries()) }

func (p *Poller) unwatchLocked(viewer string) {
	w, ok := p.watches[viewer]
	if !ok {
		return
	}
	if w.entry != 0 {
		p.cron.Remove(w.entry)
	}
	delete(p.watches, viewer)
}

func (p *Poller) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.refresher.Refresh(ctx); err != nil {
		p.logger.Printf("refresh: %v", err)
	}
}
