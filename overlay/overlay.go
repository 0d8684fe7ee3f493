// Package overlay ties the windowing backend, the compositor bridge and the
// render loop together behind a small controller API. Applications open an
// overlay once, hand Run a draw callback and steer visibility, click-through
// and position from any goroutine.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"glasspane/compositor"
	"glasspane/config"
	"glasspane/render"
	"glasspane/surface"
)

// ErrPlatformInit mirrors the windowing layer's fatal creation error so
// callers can match it without importing the surface package.
var ErrPlatformInit = surface.ErrPlatformInit

// ErrUnsupportedPixelFormat mirrors the compositor bridge's fatal negotiation
// error.
var ErrUnsupportedPixelFormat = compositor.ErrUnsupportedPixelFormat

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("overlay closed")

// ObservationKind classifies the recoverable conditions reported to a Sink.
type ObservationKind int

const (
	ObsPresentFailed ObservationKind = iota
	ObsClickThroughDenied
	ObsDrawFault
)

func (k ObservationKind) String() string {
	switch k {
	case ObsPresentFailed:
		return "present failed"
	case ObsClickThroughDenied:
		return "click-through denied"
	case ObsDrawFault:
		return "draw fault"
	default:
		return "unknown"
	}
}

// Observation is one recoverable runtime condition. The overlay keeps running
// after every observation; sinks exist for logging and diagnostics only.
type Observation struct {
	Kind ObservationKind
	Err  error
}

// Sink receives observations. Implementations must not block; they are called
// from the render thread.
type Sink func(Observation)

// Option customizes Open. The defaults use the real platform backends.
type Option func(*options)

type options struct {
	surf   surface.Surface
	bridge compositor.Bridge
	sink   Sink
}

// WithSurface substitutes the windowing backend. Intended for tests.
func WithSurface(s surface.Surface) Option {
	return func(o *options) { o.surf = s }
}

// WithBridge substitutes the compositor bridge. Intended for tests.
func WithBridge(b compositor.Bridge) Option {
	return func(o *options) { o.bridge = b }
}

// WithSink registers an observation sink.
func WithSink(s Sink) Option {
	return func(o *options) { o.sink = s }
}

// Overlay is an open overlay window plus its frame driver. All methods are
// safe for concurrent use.
type Overlay struct {
	surf   surface.Surface
	bridge compositor.Bridge
	handle surface.Handle
	loop   *render.Loop
	format compositor.PixelFormat

	mu     sync.Mutex
	ran    bool
	closed bool
}

// Open creates the overlay window hidden and negotiates the pixel format with
// the compositor. It fails fast: a missing compositor or unusable pixel
// format is a construction error, never a degraded window.
func Open(cfg *config.Config, opts ...Option) (*Overlay, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{sink: func(Observation) {}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.surf == nil {
		o.surf = surface.New()
	}
	if o.bridge == nil {
		o.bridge = compositor.New()
	}

	monitors, err := o.surf.Monitors()
	if err != nil {
		return nil, fmt.Errorf("enumerate monitors: %w", err)
	}
	mon, ok := surface.FindMonitor(monitors, cfg.Monitor)
	if !ok {
		return nil, fmt.Errorf("%w: no displays attached", surface.ErrPlatformInit)
	}

	// Position is relative to the chosen monitor's origin, then clamped so
	// the window never opens entirely offscreen.
	rect := surface.Rect{
		X:      mon.Bounds.X + cfg.X,
		Y:      mon.Bounds.Y + cfg.Y,
		Width:  cfg.Width,
		Height: cfg.Height,
	}
	rect = surface.ClampToMonitors(rect, monitors)

	opaque := cfg.Background == config.BackgroundOpaqueDebug
	handle, err := o.surf.Create(surface.Config{
		Rect:              rect,
		Monitor:           cfg.Monitor,
		ClickThrough:      cfg.ClickThrough,
		Opaque:            opaque,
		RequireCompositor: cfg.RequireCompositor,
		Title:             cfg.Title,
	})
	if err != nil {
		return nil, err
	}

	format, err := o.bridge.Negotiate(handle)
	if err != nil {
		o.surf.Destroy(handle)
		return nil, err
	}
	log.Printf("overlay: window %s on monitor %q, format %d-bit alpha=%v order=%v",
		rect, mon.ID, format.Bits, format.Alpha, format.Order)

	sink := o.sink
	loop := render.New(o.surf, handle, o.bridge, render.Options{
		FPS:    cfg.FPS,
		Rect:   rect,
		Scale:  mon.Scale,
		Opaque: opaque,
		Report: func(f render.Fault) {
			sink(Observation{Kind: faultToObservation(f.Kind), Err: f.Err})
		},
	})

	return &Overlay{
		surf:   o.surf,
		bridge: o.bridge,
		handle: handle,
		loop:   loop,
		format: format,
	}, nil
}

func faultToObservation(k render.FaultKind) ObservationKind {
	switch k {
	case render.FaultPresent:
		return ObsPresentFailed
	case render.FaultClickThrough:
		return ObsClickThroughDenied
	default:
		return ObsDrawFault
	}
}

// PixelFormat reports the format negotiated with the compositor at Open.
func (ov *Overlay) PixelFormat() compositor.PixelFormat { return ov.format }

// Run drives the render loop until Close, context cancellation or an OS close
// request. It blocks and must be called from the goroutine that should own
// the window thread, at most once.
func (ov *Overlay) Run(ctx context.Context, draw render.DrawFunc) error {
	ov.mu.Lock()
	if ov.closed {
		ov.mu.Unlock()
		return ErrClosed
	}
	if ov.ran {
		ov.mu.Unlock()
		return errors.New("overlay: Run called twice")
	}
	ov.ran = true
	ov.mu.Unlock()

	err := ov.loop.Run(ctx, draw)

	ov.mu.Lock()
	ov.closed = true
	ov.mu.Unlock()
	return err
}

// Show maps the overlay without stealing focus.
func (ov *Overlay) Show() error {
	if ov.isClosed() {
		return ErrClosed
	}
	ov.loop.Show()
	return nil
}

// Hide unmaps the overlay. The render loop idles while hidden.
func (ov *Overlay) Hide() error {
	if ov.isClosed() {
		return ErrClosed
	}
	ov.loop.Hide()
	return nil
}

// SetClickThrough toggles mouse passthrough. Redundant calls are harmless.
func (ov *Overlay) SetClickThrough(enabled bool) error {
	if ov.isClosed() {
		return ErrClosed
	}
	ov.loop.SetClickThrough(enabled)
	return nil
}

// MoveTo repositions the overlay in logical pixels.
func (ov *Overlay) MoveTo(r surface.Rect) error {
	if ov.isClosed() {
		return ErrClosed
	}
	ov.loop.MoveTo(r)
	return nil
}

// Frames reports how many frames have been presented.
func (ov *Overlay) Frames() uint64 { return ov.loop.Frames() }

// Close shuts the overlay down and releases the window. Idempotent; all
// subsequent operations return ErrClosed.
func (ov *Overlay) Close() error {
	ov.mu.Lock()
	alreadyClosed := ov.closed
	ran := ov.ran
	ov.closed = true
	ov.mu.Unlock()
	if alreadyClosed {
		return ErrClosed
	}

	ov.loop.Stop()
	if !ran {
		// The loop never owned the handle; release it here.
		ov.surf.Destroy(ov.handle)
	}
	return nil
}

func (ov *Overlay) isClosed() bool {
	ov.mu.Lock()
	defer ov.mu.Unlock()
	return ov.closed
}
