// Package surface abstracts the OS windowing primitives needed by a desktop
// overlay: a borderless, topmost, per-pixel-transparent window that can be
// repositioned, hidden and made click-through without being recreated.
//
// One backend per OS is selected at build time (X11, Win32, Cocoa). All calls
// on a Handle must happen on the goroutine that created it; the backends keep
// no state of their own between calls, everything durable lives in the
// OS-owned window object.
package surface

import (
	"errors"
	"fmt"
)

// ErrPlatformInit is wrapped by Create when the OS cannot provide an overlay
// window at all (no compositor, no ARGB visual, window creation denied).
var ErrPlatformInit = errors.New("platform init failed")

// Rect is a window rectangle in logical pixels, origin top-left of the
// virtual desktop.
type Rect struct {
	X, Y          int
	Width, Height int
}

func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// Intersects reports whether r and o share at least one pixel.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// MonitorInfo describes one attached display. Monitor topology can change at
// runtime, so callers must re-query instead of caching these.
type MonitorInfo struct {
	ID      string
	Bounds  Rect
	Scale   float64
	Primary bool
}

// Config is the subset of the overlay configuration the windowing layer needs.
type Config struct {
	Rect              Rect
	Monitor           string // monitor ID or "primary"
	ClickThrough      bool
	Opaque            bool // opaque-for-debug background mode
	RequireCompositor bool
	Title             string
}

// Handle is an opaque reference to an OS-owned window. It is created and
// interpreted only by the Surface that produced it; the compositor bridge
// receives it as a pass-through token.
type Handle interface {
	// Destroyed reports whether the underlying OS window has been released.
	Destroyed() bool
}

// Event is an OS event mapped to a platform-neutral representation. The
// concrete types below are the full set a backend may produce.
type Event interface {
	isEvent()
}

// Expose signals that the window contents need to be repainted.
type Expose struct{}

// Moved reports a new window origin in logical pixels.
type Moved struct {
	Rect Rect
}

// Resized reports a new window size and the DPI scale it applies at.
type Resized struct {
	Rect  Rect
	Scale float64
}

// DisplayChange signals that monitor topology, resolution or DPI changed and
// cached geometry must be re-derived.
type DisplayChange struct{}

// VisibilityChange reports the window being mapped or unmapped by the OS.
type VisibilityChange struct {
	Visible bool
}

// CloseRequested reports that the OS or user asked the window to close.
type CloseRequested struct{}

func (Expose) isEvent()           {}
func (Moved) isEvent()            {}
func (Resized) isEvent()          {}
func (DisplayChange) isEvent()    {}
func (VisibilityChange) isEvent() {}
func (CloseRequested) isEvent()   {}

// Surface is the per-platform windowing capability set. Implementations are
// stateless between calls and must tolerate Destroy being called twice.
type Surface interface {
	// Create allocates a topmost, borderless, per-pixel-transparent window.
	// The returned window is not yet visible; call SetVisible to map it.
	Create(cfg Config) (Handle, error)

	// SetVisible maps or unmaps the window without destroying it. Mapping
	// must not steal keyboard focus from the active application.
	SetVisible(h Handle, visible bool) error

	// SetClickThrough routes mouse input past the window (or back to it).
	// A failing OS call is recoverable; callers log and continue.
	SetClickThrough(h Handle, enabled bool) error

	// SetGeometry repositions and resizes the window, clamping the rect to
	// the primary monitor when it would land outside every display.
	SetGeometry(h Handle, r Rect) error

	// PollEvents drains pending OS events without blocking.
	PollEvents(h Handle) []Event

	// Monitors enumerates the current display layout. Results are a
	// point-in-time snapshot and must not be cached by callers.
	Monitors() ([]MonitorInfo, error)

	// Destroy releases the OS window. Idempotent.
	Destroy(h Handle)
}

// New returns the Surface backend for the platform this binary was built for.
func New() Surface { return newPlatformSurface() }
