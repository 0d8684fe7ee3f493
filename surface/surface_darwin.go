//go:build darwin

package surface

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"
)

// CGPoint, CGSize and CGRect mirror the CoreGraphics layouts for msgSend
// calls that pass or return geometry by value.
type CGPoint struct{ X, Y float64 }
type CGSize struct{ Width, Height float64 }
type CGRect struct {
	Origin CGPoint
	Size   CGSize
}

const (
	nsBackingStoreBuffered        = 2
	nsWindowStyleMaskBorderless   = 0
	nsScreenSaverWindowLevel      = 1000
	nsWindowCollectionBehaviorAll = (1 << 0) | (1 << 4) // canJoinAllSpaces | stationary
	nsEventMaskAny                = ^uint64(0)
	nsActivationPolicyAccessory   = 1
)

var (
	cocoaOnce sync.Once
	cocoaErr  error

	msgSendInitRect func(objc.ID, objc.SEL, CGRect, uint64, uint64, bool) objc.ID
	msgSendSetFrame func(objc.ID, objc.SEL, CGRect, bool)
	msgSendGetRect  func(objc.ID, objc.SEL) CGRect
	msgSendGetF64   func(objc.ID, objc.SEL) float64
	msgSendStr      func(objc.ID, objc.SEL, string) objc.ID
	msgSendNext     func(objc.ID, objc.SEL, uint64, objc.ID, objc.ID, bool) objc.ID

	selFrame               = objc.RegisterName("frame")
	selScreens             = objc.RegisterName("screens")
	selCount               = objc.RegisterName("count")
	selObjectAtIndex       = objc.RegisterName("objectAtIndex:")
	selBackingScaleFactor  = objc.RegisterName("backingScaleFactor")
	selSetFrameDisplay     = objc.RegisterName("setFrame:display:")
	selOrderFrontRegardles = objc.RegisterName("orderFrontRegardless")
	selOrderOut            = objc.RegisterName("orderOut:")
)

func initCocoa() error {
	cocoaOnce.Do(func() {
		objcLib, err := purego.Dlopen("/usr/lib/libobjc.A.dylib", purego.RTLD_GLOBAL|purego.RTLD_NOW)
		if err != nil {
			cocoaErr = err
			return
		}
		if _, err := purego.Dlopen("/System/Library/Frameworks/AppKit.framework/AppKit", purego.RTLD_GLOBAL|purego.RTLD_NOW); err != nil {
			cocoaErr = err
			return
		}
		purego.RegisterLibFunc(&msgSendInitRect, objcLib, "objc_msgSend")
		purego.RegisterLibFunc(&msgSendSetFrame, objcLib, "objc_msgSend")
		purego.RegisterLibFunc(&msgSendGetRect, objcLib, "objc_msgSend")
		purego.RegisterLibFunc(&msgSendGetF64, objcLib, "objc_msgSend")
		purego.RegisterLibFunc(&msgSendStr, objcLib, "objc_msgSend")
		purego.RegisterLibFunc(&msgSendNext, objcLib, "objc_msgSend")

		app := objc.ID(objc.GetClass("NSApplication")).Send(objc.RegisterName("sharedApplication"))
		app.Send(objc.RegisterName("setActivationPolicy:"), nsActivationPolicyAccessory)
		app.Send(objc.RegisterName("finishLaunching"))
	})
	return cocoaErr
}

// CocoaWindow is the macOS window handle. Fields are exported for the
// compositor bridge only.
type CocoaWindow struct {
	Window objc.ID
	View   objc.ID
	Layer  objc.ID
	Scale  float64

	rect       Rect
	screensSig string
	destroyed  bool
}

func (h *CocoaWindow) Destroyed() bool { return h.destroyed }

type cocoaSurface struct{}

func newPlatformSurface() Surface { return cocoaSurface{} }

func (s cocoaSurface) Create(cfg Config) (Handle, error) {
	if err := initCocoa(); err != nil {
		return nil, fmt.Errorf("%w: load AppKit: %v", ErrPlatformInit, err)
	}

	monitors, _ := s.Monitors()
	rect := ClampToMonitors(cfg.Rect, monitors)

	alloc := objc.ID(objc.GetClass("NSWindow")).Send(objc.RegisterName("alloc"))
	window := msgSendInitRect(alloc,
		objc.RegisterName("initWithContentRect:styleMask:backing:defer:"),
		flipRect(rect), nsWindowStyleMaskBorderless, nsBackingStoreBuffered, false)
	if window == 0 {
		return nil, fmt.Errorf("%w: NSWindow init failed", ErrPlatformInit)
	}

	clearColor := objc.ID(objc.GetClass("NSColor")).Send(objc.RegisterName("clearColor"))
	window.Send(objc.RegisterName("setOpaque:"), cfg.Opaque)
	window.Send(objc.RegisterName("setBackgroundColor:"), clearColor)
	window.Send(objc.RegisterName("setHasShadow:"), false)
	window.Send(objc.RegisterName("setLevel:"), nsScreenSaverWindowLevel)
	window.Send(objc.RegisterName("setCollectionBehavior:"), nsWindowCollectionBehaviorAll)
	window.Send(objc.RegisterName("setIgnoresMouseEvents:"), cfg.ClickThrough)
	window.Send(objc.RegisterName("setReleasedWhenClosed:"), false)
	if cfg.Title != "" {
		title := msgSendStr(objc.ID(objc.GetClass("NSString")),
			objc.RegisterName("stringWithUTF8String:"), cfg.Title)
		window.Send(objc.RegisterName("setTitle:"), title)
	}

	view := window.Send(objc.RegisterName("contentView"))
	view.Send(objc.RegisterName("setWantsLayer:"), true)
	layer := view.Send(objc.RegisterName("layer"))

	h := &CocoaWindow{
		Window: window,
		View:   view,
		Layer:  layer,
		Scale:  msgSendGetF64(window, selBackingScaleFactor),
		rect:   rect,
	}
	if h.Scale == 0 {
		h.Scale = 1.0
	}
	h.screensSig = screensSignature()
	return h, nil
}

func (cocoaSurface) SetVisible(h Handle, visible bool) error {
	w := h.(*CocoaWindow)
	if w.destroyed {
		return nil
	}
	if visible {
		// orderFrontRegardless shows the window without making the app or
		// the window key, so focus stays where it is.
		w.Window.Send(selOrderFrontRegardles)
	} else {
		w.Window.Send(selOrderOut, 0)
	}
	return nil
}

func (cocoaSurface) SetClickThrough(h Handle, enabled bool) error {
	w := h.(*CocoaWindow)
	if w.destroyed {
		return nil
	}
	w.Window.Send(objc.RegisterName("setIgnoresMouseEvents:"), enabled)
	return nil
}

func (s cocoaSurface) SetGeometry(h Handle, r Rect) error {
	w := h.(*CocoaWindow)
	if w.destroyed {
		return nil
	}
	monitors, err := s.Monitors()
	if err == nil {
		r = ClampToMonitors(r, monitors)
	}
	msgSendSetFrame(w.Window, selSetFrameDisplay, flipRect(r), true)
	w.rect = r
	return nil
}

func (cocoaSurface) PollEvents(h Handle) []Event {
	w := h.(*CocoaWindow)
	if w.destroyed {
		return nil
	}
	var out []Event

	// Drain the application event queue; an overlay window receives no
	// input of its own but the queue must not back up.
	app := objc.ID(objc.GetClass("NSApplication")).Send(objc.RegisterName("sharedApplication"))
	sendEvent := objc.RegisterName("sendEvent:")
	next := objc.RegisterName("nextEventMatchingMask:untilDate:inMode:dequeue:")
	mode := msgSendStr(objc.ID(objc.GetClass("NSString")),
		objc.RegisterName("stringWithUTF8String:"), "kCFRunLoopDefaultMode")
	for {
		ev := msgSendNext(app, next, nsEventMaskAny, 0, mode, true)
		if ev == 0 {
			break
		}
		app.Send(sendEvent, ev)
	}

	// Frame moves/resizes are observed rather than delivered.
	r := unflipRect(msgSendGetRect(w.Window, selFrame))
	if r.Width != w.rect.Width || r.Height != w.rect.Height {
		out = append(out, Resized{Rect: r, Scale: w.Scale})
		w.rect = r
	} else if r.X != w.rect.X || r.Y != w.rect.Y {
		out = append(out, Moved{Rect: r})
		w.rect = r
	}

	if sig := screensSignature(); sig != w.screensSig {
		w.screensSig = sig
		if scale := msgSendGetF64(w.Window, selBackingScaleFactor); scale > 0 {
			w.Scale = scale
		}
		out = append(out, DisplayChange{})
	}
	return out
}

func (cocoaSurface) Monitors() ([]MonitorInfo, error) {
	if err := initCocoa(); err != nil {
		return nil, err
	}
	// kbinani enumerates via CoreGraphics in the same display order as
	// NSScreen.screens; backingScaleFactor comes from the matching NSScreen.
	screens := objc.ID(objc.GetClass("NSScreen")).Send(selScreens)
	count := int(screens.Send(selCount))
	return enumerateMonitors(func(i int) float64 {
		if i >= count {
			return 1.0
		}
		screen := screens.Send(selObjectAtIndex, i)
		if scale := msgSendGetF64(screen, selBackingScaleFactor); scale > 0 {
			return scale
		}
		return 1.0
	})
}

func (cocoaSurface) Destroy(h Handle) {
	w := h.(*CocoaWindow)
	if w.destroyed {
		return
	}
	w.destroyed = true
	w.Window.Send(selOrderOut, 0)
	w.Window.Send(objc.RegisterName("close"))
	w.Window.Send(objc.RegisterName("release"))
	w.Window = 0
}

// primaryScreenHeight is needed to convert between the top-left coordinate
// space used everywhere else and Cocoa's bottom-left space.
func primaryScreenHeight() float64 {
	screens := objc.ID(objc.GetClass("NSScreen")).Send(selScreens)
	if int(screens.Send(selCount)) == 0 {
		return 0
	}
	frame := msgSendGetRect(screens.Send(selObjectAtIndex, 0), selFrame)
	return frame.Size.Height
}

func flipRect(r Rect) CGRect {
	h := primaryScreenHeight()
	return CGRect{
		Origin: CGPoint{X: float64(r.X), Y: h - float64(r.Y) - float64(r.Height)},
		Size:   CGSize{Width: float64(r.Width), Height: float64(r.Height)},
	}
}

func unflipRect(r CGRect) Rect {
	h := primaryScreenHeight()
	return Rect{
		X:      int(r.Origin.X),
		Y:      int(h - r.Origin.Y - r.Size.Height),
		Width:  int(r.Size.Width),
		Height: int(r.Size.Height),
	}
}

func screensSignature() string {
	screens := objc.ID(objc.GetClass("NSScreen")).Send(selScreens)
	count := int(screens.Send(selCount))
	sig := fmt.Sprintf("%d:", count)
	for i := 0; i < count; i++ {
		f := msgSendGetRect(screens.Send(selObjectAtIndex, i), selFrame)
		sig += fmt.Sprintf("%.0fx%.0f+%.0f+%.0f;", f.Size.Width, f.Size.Height, f.Origin.X, f.Origin.Y)
	}
	return sig
}
