package tinkerpen

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCopiedReset is how long the copied indicator stays on.
const DefaultCopiedReset = 2 * time.Second

// EventType distinguishes controller notifications.
type EventType string

const (
	// EventDocument is sent when the assembled document was recomputed.
	EventDocument EventType = "document"
	// EventState is sent for every other visible change (tab, flags, buffers
	// edited while auto-refresh is off).
	EventState EventType = "state"
)

// Event is delivered to subscribers after a change.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Fragments
	AutoRefresh bool   `json:"autoRefresh"`
	ActiveTab   Kind   `json:"activeTab"`
	Copied      bool   `json:"copied"`
	Document    string `json:"document"`
	// Stale is true when the buffers changed since the document was last
	// assembled.
	Stale bool `json:"stale"`
	// Version increases with every change; a higher version is newer state.
	Version uint64 `json:"version"`
}

// Controller owns the fragment buffers of one preview session and decides
// when the preview document is reassembled.
type Controller struct {
	mu sync.Mutex

	fragments     Fragments
	assembledFrom Fragments
	document      string
	autoRefresh   bool
	activeTab     Kind

	copied      bool
	copiedGen   uint64
	copiedReset time.Duration
	copiedTimer *time.Timer

	version   uint64
	listeners map[int]func(Event)
	nextID    int

	// emitMu serializes delivery. Events that lost the race to a newer
	// version are dropped.
	emitMu       sync.Mutex
	delivered    uint64
	deliveredDoc string
}

// Option configures a Controller.
type Option func(*Controller)

// WithAutoRefresh sets the initial auto-refresh flag (default true).
func WithAutoRefresh(on bool) Option {
	return func(c *Controller) { c.autoRefresh = on }
}

// WithCopiedReset sets how long the copied indicator stays on.
func WithCopiedReset(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.copiedReset = d
		}
	}
}

// WithFragments seeds the buffers.
func WithFragments(f Fragments) Option {
	return func(c *Controller) { c.fragments = f }
}

// NewController creates a controller with empty buffers, auto-refresh on and
// the html tab active.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		autoRefresh: true,
		activeTab:   KindHTML,
		copiedReset: DefaultCopiedReset,
		listeners:   make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.assembleLocked()
	c.deliveredDoc = c.document
	return c
}

// Subscribe registers fn for change events and returns a function that
// removes it. fn runs on the goroutine that made the change, after the
// controller lock is released, and sees versions in increasing order. fn must
// not change the controller.
func (c *Controller) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// SetFragment replaces one buffer. With auto-refresh on the document is
// reassembled immediately.
func (c *Controller) SetFragment(kind Kind, text string) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return err
	}

	c.mu.Lock()
	c.fragments = c.fragments.With(kind, text)
	evt := c.afterEditLocked()
	c.mu.Unlock()

	c.emit(evt)
	return nil
}

// SetFragments replaces all three buffers at once.
func (c *Controller) SetFragments(f Fragments) {
	c.mu.Lock()
	c.fragments = f
	evt := c.afterEditLocked()
	c.mu.Unlock()

	c.emit(evt)
}

// FormatHTML reformats the html buffer in place and returns the result.
func (c *Controller) FormatHTML() string {
	c.mu.Lock()
	formatted := ReformatHTML(c.fragments.HTML)
	c.fragments.HTML = formatted
	evt := c.afterEditLocked()
	c.mu.Unlock()

	c.emit(evt)
	return formatted
}

// Fragment returns the current content of one buffer.
func (c *Controller) Fragment(kind Kind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fragments.Get(kind)
}

// Fragments returns the current buffers.
func (c *Controller) Fragments() Fragments {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fragments
}

// Document returns the last assembled document, which may be stale while
// auto-refresh is off.
func (c *Controller) Document() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.document
}

// AutoRefresh reports whether edits reassemble the document immediately.
func (c *Controller) AutoRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoRefresh
}

// SetAutoRefresh toggles auto-refresh. Turning it back on reassembles the
// document so the preview catches up with edits made while it was off.
func (c *Controller) SetAutoRefresh(on bool) {
	c.mu.Lock()
	wasOn := c.autoRefresh
	c.autoRefresh = on

	evtType := EventState
	if on && !wasOn {
		c.assembleLocked()
		evtType = EventDocument
	}
	evt := c.eventLocked(evtType)
	c.mu.Unlock()

	c.emit(evt)
}

// Refresh reassembles the document from the current buffers regardless of
// the auto-refresh flag.
func (c *Controller) Refresh() string {
	c.mu.Lock()
	c.assembleLocked()
	evt := c.eventLocked(EventDocument)
	doc := c.document
	c.mu.Unlock()

	c.emit(evt)
	return doc
}

// ActiveTab returns the visible fragment tab.
func (c *Controller) ActiveTab() Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeTab
}

// SelectTab changes the visible fragment tab. It never touches the document.
func (c *Controller) SelectTab(kind Kind) error {
	if _, err := ParseKind(string(kind)); err != nil {
		return fmt.Errorf("select tab: %w", err)
	}

	c.mu.Lock()
	c.activeTab = kind
	evt := c.eventLocked(EventState)
	c.mu.Unlock()

	c.emit(evt)
	return nil
}

// MarkCopied turns the copied indicator on. It switches itself off after the
// reset delay; a newer MarkCopied restarts the delay.
func (c *Controller) MarkCopied() {
	c.mu.Lock()
	c.copied = true
	c.copiedGen++
	gen := c.copiedGen
	if c.copiedTimer != nil {
		c.copiedTimer.Stop()
	}
	c.copiedTimer = time.AfterFunc(c.copiedReset, func() {
		c.mu.Lock()
		if c.copiedGen != gen {
			c.mu.Unlock()
			return
		}
		c.copied = false
		evt := c.eventLocked(EventState)
		c.mu.Unlock()

		c.emit(evt)
	})
	evt := c.eventLocked(EventState)
	c.mu.Unlock()

	c.emit(evt)
}

// Copied reports whether the copied indicator is on.
func (c *Controller) Copied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copied
}

// Snapshot returns a consistent copy of the whole state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close stops the copied timer and drops all subscribers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.copiedTimer != nil {
		c.copiedTimer.Stop()
		c.copiedTimer = nil
	}
	c.copiedGen++
	c.listeners = make(map[int]func(Event))
}

func (c *Controller) afterEditLocked() Event {
	if c.autoRefresh {
		c.assembleLocked()
		return c.eventLocked(EventDocument)
	}
	return c.eventLocked(EventState)
}

// eventLocked records a change and describes it.
func (c *Controller) eventLocked(t EventType) Event {
	c.version++
	return Event{Type: t, Snapshot: c.snapshotLocked()}
}

func (c *Controller) assembleLocked() {
	c.document = AssembleInline(c.fragments)
	c.assembledFrom = c.fragments
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Fragments:   c.fragments,
		AutoRefresh: c.autoRefresh,
		ActiveTab:   c.activeTab,
		Copied:      c.copied,
		Document:    c.document,
		Stale:       c.assembledFrom != c.fragments,
		Version:     c.version,
	}
}

// emit delivers evt unless a newer version already went out. A state event
// whose document differs from the last delivered one is upgraded to a
// document event, so a dropped document event is never lost.
func (c *Controller) emit(evt Event) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	if evt.Snapshot.Version <= c.delivered {
		return
	}
	c.delivered = evt.Snapshot.Version
	if evt.Type == EventState && evt.Snapshot.Document != c.deliveredDoc {
		evt.Type = EventDocument
	}
	c.deliveredDoc = evt.Snapshot.Document

	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}
