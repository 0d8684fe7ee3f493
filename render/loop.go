package render

import (
	"context"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"glasspane/surface"
)

// hiddenWake bounds how long the loop sleeps between event polls while the
// overlay is hidden. No drawing or presenting happens on these wakes.
const hiddenWake = 250 * time.Millisecond

// DrawFunc paints one frame into fb. dt is the time elapsed since the
// previous invocation (zero on the first frame). The callback runs on the
// loop's OS thread and must not block on I/O.
type DrawFunc func(fb *FrameBuffer, dt time.Duration)

// Presenter is the slice of the compositor bridge the loop needs.
type Presenter interface {
	// Present transfers fb to the screen. It either blits the whole frame
	// or leaves the previous one visible; a partial frame is never shown.
	Present(h surface.Handle, fb *FrameBuffer) error

	// WaitVBlank blocks until the display's vertical blank when the
	// platform exposes one and reports whether it did.
	WaitVBlank() bool
}

// FaultKind classifies recoverable failures surfaced through the report
// callback instead of being returned to the caller.
type FaultKind int

const (
	FaultPresent FaultKind = iota
	FaultClickThrough
	FaultDraw
)

func (k FaultKind) String() string {
	switch k {
	case FaultPresent:
		return "present failed"
	case FaultClickThrough:
		return "click-through denied"
	case FaultDraw:
		return "draw callback fault"
	default:
		return "unknown fault"
	}
}

// Fault is one recoverable failure observed by the loop.
type Fault struct {
	Kind FaultKind
	Err  error
}

// Options configure a Loop at construction.
type Options struct {
	// FPS is the fixed target frame rate; 0 means vsync (native vblank
	// where available, 60 Hz pacing otherwise).
	FPS int

	// Rect is the window geometry in logical pixels at creation.
	Rect surface.Rect

	// Scale is the DPI scale of the monitor the window starts on.
	Scale float64

	// Opaque selects the opaque-for-debug background mode: buffers are
	// cleared to opaque black instead of transparent between frames.
	Opaque bool

	// Report receives recoverable faults. May be nil.
	Report func(Fault)
}

type command interface{ isCommand() }

type cmdShow struct{}
type cmdHide struct{}
type cmdClickThrough struct{ enabled bool }
type cmdMove struct{ rect surface.Rect }

func (cmdShow) isCommand()         {}
func (cmdHide) isCommand()         {}
func (cmdClickThrough) isCommand() {}
func (cmdMove) isCommand()         {}

// Loop is the single-threaded frame driver. All surface and presenter calls
// happen on the goroutine that enters Run, which locks itself to an OS
// thread; other goroutines talk to the loop only through posted commands.
type Loop struct {
	surf    surface.Surface
	handle  surface.Handle
	present Presenter
	opts    Options

	inbox chan command
	stop  chan struct{}
	once  sync.Once

	rect     surface.Rect
	scale    float64
	visible  bool
	fb       *FrameBuffer
	scratch  *FrameBuffer
	lastDraw time.Time

	frames     atomic.Uint64
	iterations atomic.Uint64
}

// New creates a loop for an already-created surface handle.
func New(surf surface.Surface, handle surface.Handle, present Presenter, opts Options) *Loop {
	if opts.Scale <= 0 {
		opts.Scale = 1.0
	}
	return &Loop{
		surf:    surf,
		handle:  handle,
		present: present,
		opts:    opts,
		inbox:   make(chan command, 64),
		stop:    make(chan struct{}),
		rect:    opts.Rect,
		scale:   opts.Scale,
	}
}

// Show requests the overlay to become visible. Safe from any goroutine.
func (l *Loop) Show() { l.post(cmdShow{}) }

// Hide requests the overlay to unmap. Safe from any goroutine.
func (l *Loop) Hide() { l.post(cmdHide{}) }

// SetClickThrough requests an input passthrough change. Safe from any goroutine.
func (l *Loop) SetClickThrough(enabled bool) { l.post(cmdClickThrough{enabled: enabled}) }

// MoveTo requests a geometry change in logical pixels. Safe from any goroutine.
func (l *Loop) MoveTo(r surface.Rect) { l.post(cmdMove{rect: r}) }

// Stop signals shutdown. Idempotent; the loop exits after at most one
// in-flight present completes.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Frames returns the number of frames presented so far.
func (l *Loop) Frames() uint64 { return l.frames.Load() }

// Iterations returns the number of loop wake-ups, including hidden ones.
func (l *Loop) Iterations() uint64 { return l.iterations.Load() }

func (l *Loop) post(c command) {
	select {
	case l.inbox <- c:
	default:
		log.Printf("render: command inbox full, dropping %T", c)
	}
}

func (l *Loop) report(kind FaultKind, err error) {
	log.Printf("render: %s: %v", kind, err)
	if l.opts.Report != nil {
		l.opts.Report(Fault{Kind: kind, Err: err})
	}
}

// Run drives the loop until Stop is called, the context is cancelled or the
// OS requests close. The surface handle is destroyed exactly once on the way
// out. Run must be called at most once.
func (l *Loop) Run(ctx context.Context, draw DrawFunc) error {
	// Windowing calls on every supported platform must stay on one thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer l.surf.Destroy(l.handle)

	l.allocBuffers()

	vsync := l.opts.FPS <= 0
	interval := fallbackInterval
	if !vsync {
		interval = time.Second / time.Duration(l.opts.FPS)
	}
	pace := newPacer(interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		default:
		}
		l.iterations.Add(1)

		l.drainInbox()
		l.applyEvents(l.surf.PollEvents(l.handle))

		select {
		case <-l.stop:
			return nil
		default:
		}

		if !l.visible {
			l.idle(ctx)
			continue
		}

		now := time.Now()
		var dt time.Duration
		if !l.lastDraw.IsZero() {
			dt = now.Sub(l.lastDraw)
		}
		l.lastDraw = now

		l.drawFrame(draw, dt)
		if err := l.present.Present(l.handle, l.fb); err != nil {
			l.report(FaultPresent, err)
		}
		l.frames.Add(1)

		if vsync && l.present.WaitVBlank() {
			continue
		}
		pace.wait(l.stop)
	}
}

// idle parks the loop while hidden: no drawing, no presenting, no spinning.
// A posted command or the wake interval resumes event processing.
func (l *Loop) idle(ctx context.Context) {
	t := time.NewTimer(hiddenWake)
	defer t.Stop()
	select {
	case c := <-l.inbox:
		l.apply(c)
	case <-t.C:
	case <-ctx.Done():
	case <-l.stop:
	}
}

func (l *Loop) drainInbox() {
	for {
		select {
		case c := <-l.inbox:
			l.apply(c)
		default:
			return
		}
	}
}

func (l *Loop) apply(c command) {
	switch c := c.(type) {
	case cmdShow:
		if err := l.surf.SetVisible(l.handle, true); err != nil {
			log.Printf("render: show: %v", err)
			return
		}
		l.visible = true
		l.lastDraw = time.Time{}
	case cmdHide:
		if err := l.surf.SetVisible(l.handle, false); err != nil {
			log.Printf("render: hide: %v", err)
			return
		}
		l.visible = false
	case cmdClickThrough:
		if err := l.surf.SetClickThrough(l.handle, c.enabled); err != nil {
			l.report(FaultClickThrough, err)
		}
	case cmdMove:
		if err := l.surf.SetGeometry(l.handle, c.rect); err != nil {
			log.Printf("render: move: %v", err)
			return
		}
		if c.rect.Width != l.rect.Width || c.rect.Height != l.rect.Height {
			l.rect = c.rect
			l.allocBuffers()
		} else {
			l.rect = c.rect
		}
	}
}

func (l *Loop) applyEvents(events []surface.Event) {
	for _, ev := range events {
		switch ev := ev.(type) {
		case surface.Resized:
			l.rect = ev.Rect
			if ev.Scale > 0 {
				l.scale = ev.Scale
			}
			l.allocBuffers()
		case surface.Moved:
			l.rect = ev.Rect
		case surface.DisplayChange:
			l.onDisplayChange()
		case surface.VisibilityChange:
			l.visible = ev.Visible
			if ev.Visible {
				l.lastDraw = time.Time{}
			}
		case surface.CloseRequested:
			l.Stop()
		case surface.Expose:
			// Next present repaints; nothing to invalidate here.
		}
	}
}

// onDisplayChange re-derives the DPI scale from whichever monitor now holds
// the window and reallocates buffers when the scale or the clamped size
// changed.
func (l *Loop) onDisplayChange() {
	monitors, err := l.surf.Monitors()
	if err != nil {
		log.Printf("render: monitor query after display change: %v", err)
		return
	}
	scale := l.scale
	for _, m := range monitors {
		if l.rect.Intersects(m.Bounds) {
			scale = m.Scale
			break
		}
	}
	clamped := surface.ClampToMonitors(l.rect, monitors)
	sizeChanged := clamped.Width != l.rect.Width || clamped.Height != l.rect.Height
	if clamped != l.rect {
		if err := l.surf.SetGeometry(l.handle, clamped); err != nil {
			log.Printf("render: reclamp after display change: %v", err)
		}
		l.rect = clamped
	}
	if scale != l.scale || sizeChanged {
		l.scale = scale
		l.allocBuffers()
	}
}

// drawFrame runs the draw callback on the scratch buffer and promotes it to
// the front buffer only on success, so a faulting callback leaves the
// previous frame intact for presenting.
func (l *Loop) drawFrame(draw DrawFunc, dt time.Duration) {
	if l.opts.Opaque {
		l.scratch.Fill(opaqueDebugBackground)
	} else {
		l.scratch.Clear()
	}
	if err := l.callDraw(draw, l.scratch, dt); err != nil {
		l.report(FaultDraw, err)
		return
	}
	l.fb, l.scratch = l.scratch, l.fb
}

func (l *Loop) callDraw(draw DrawFunc, fb *FrameBuffer, dt time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("draw callback panic: %v", r)
		}
	}()
	draw(fb, dt)
	return nil
}

// allocBuffers replaces both pixel buffers at the current geometry and DPI
// scale. Buffers are reallocated, never resized, to avoid stale content from
// a previous geometry bleeding into a frame.
func (l *Loop) allocBuffers() {
	w := int(math.Round(float64(l.rect.Width) * l.scale))
	h := int(math.Round(float64(l.rect.Height) * l.scale))
	l.fb = NewFrameBuffer(w, h, l.scale)
	l.scratch = NewFrameBuffer(w, h, l.scale)
	if l.opts.Opaque {
		l.fb.Fill(opaqueDebugBackground)
		l.scratch.Fill(opaqueDebugBackground)
	}
}
