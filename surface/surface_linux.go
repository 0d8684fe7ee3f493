//go:build linux

package surface

import (
	"fmt"
	"log"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xprop"
)

// X11Window is the X11 window handle. Fields are exported for the compositor
// bridge only; no other package may touch them.
type X11Window struct {
	XU     *xgbutil.XUtil
	Conn   *xgb.Conn
	Win    xproto.Window
	Screen *xproto.ScreenInfo
	Depth  byte

	rect        Rect
	wmProtocols xproto.Atom
	wmDelete    xproto.Atom
	shapeOK     bool
	randrOK     bool
	destroyed   bool
}

func (h *X11Window) Destroyed() bool { return h.destroyed }

type x11Surface struct{}

func newPlatformSurface() Surface { return x11Surface{} }

func (x11Surface) Create(cfg Config) (Handle, error) {
	xu, err := xgbutil.NewConnDisplay("")
	if err != nil {
		return nil, fmt.Errorf("%w: cannot connect to X display: %v", ErrPlatformInit, err)
	}
	conn := xu.Conn()
	screen := xu.Screen()
	root := screen.Root

	active, err := compositorActive(conn, xu.Conn().DefaultScreen)
	if err != nil {
		log.Printf("surface: compositor check failed: %v", err)
	}
	if !active && cfg.RequireCompositor && !cfg.Opaque {
		conn.Close()
		return nil, fmt.Errorf("%w: no compositing manager on this screen", ErrPlatformInit)
	}

	depth, visual, ok := findARGBVisual(screen)
	if !ok {
		if !cfg.Opaque {
			conn.Close()
			return nil, fmt.Errorf("%w: no 32-bit TrueColor visual available", ErrPlatformInit)
		}
		// Opaque debug mode can live with the root visual.
		depth = screen.RootDepth
		visual = screen.RootVisual
	}

	cmap, err := xproto.NewColormapId(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: colormap id: %v", ErrPlatformInit, err)
	}
	if err := xproto.CreateColormapChecked(conn, xproto.ColormapAllocNone, cmap, root, visual).Check(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: create colormap: %v", ErrPlatformInit, err)
	}

	monitors, _ := enumerateMonitors(nil)
	rect := ClampToMonitors(cfg.Rect, monitors)

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: window id: %v", ErrPlatformInit, err)
	}
	// BorderPixel and Colormap are mandatory when the window depth differs
	// from the parent, otherwise CreateWindow fails with BadMatch.
	err = xproto.CreateWindowChecked(conn, depth, wid, root,
		int16(rect.X), int16(rect.Y), uint16(rect.Width), uint16(rect.Height), 0,
		xproto.WindowClassInputOutput, visual,
		xproto.CwBackPixel|xproto.CwBorderPixel|xproto.CwEventMask|xproto.CwColormap,
		[]uint32{
			0, // back pixel: fully transparent black
			0, // border pixel
			xproto.EventMaskExposure | xproto.EventMaskStructureNotify | xproto.EventMaskVisibilityChange,
			uint32(cmap),
		}).Check()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: create window: %v", ErrPlatformInit, err)
	}

	h := &X11Window{
		XU:     xu,
		Conn:   conn,
		Win:    wid,
		Screen: screen,
		Depth:  depth,
		rect:   rect,
	}

	// Undecorated, always on top, out of the taskbar and pager.
	if err := motif.WmHintsSet(xu, wid, &motif.Hints{
		Flags:      motif.HintDecorations,
		Decoration: motif.DecorationNone,
	}); err != nil {
		log.Printf("surface: motif hints: %v", err)
	}
	if err := ewmh.WmWindowTypeSet(xu, wid, []string{"_NET_WM_WINDOW_TYPE_UTILITY"}); err != nil {
		log.Printf("surface: window type: %v", err)
	}
	if err := ewmh.WmStateSet(xu, wid, []string{
		"_NET_WM_STATE_ABOVE",
		"_NET_WM_STATE_SKIP_TASKBAR",
		"_NET_WM_STATE_SKIP_PAGER",
	}); err != nil {
		log.Printf("surface: wm state: %v", err)
	}
	if cfg.Title != "" {
		_ = ewmh.WmNameSet(xu, wid, cfg.Title)
	}
	// Input:false keeps the WM from ever giving us keyboard focus.
	if err := icccm.WmHintsSet(xu, wid, &icccm.Hints{Flags: icccm.HintInput, Input: 0}); err != nil {
		log.Printf("surface: icccm hints: %v", err)
	}
	if a, err := xprop.Atm(xu, "WM_PROTOCOLS"); err == nil {
		h.wmProtocols = a
	}
	if a, err := xprop.Atm(xu, "WM_DELETE_WINDOW"); err == nil {
		h.wmDelete = a
		_ = icccm.WmProtocolsSet(xu, wid, []string{"WM_DELETE_WINDOW"})
	}

	if err := shape.Init(conn); err != nil {
		log.Printf("surface: SHAPE extension unavailable: %v", err)
	} else {
		h.shapeOK = true
	}
	if err := randr.Init(conn); err == nil {
		if err := randr.SelectInputChecked(conn, root, randr.NotifyMaskScreenChange).Check(); err == nil {
			h.randrOK = true
		}
	}

	if cfg.ClickThrough {
		if err := (x11Surface{}).SetClickThrough(h, true); err != nil {
			log.Printf("surface: initial click-through: %v", err)
		}
	}
	return h, nil
}

func (x11Surface) SetVisible(h Handle, visible bool) error {
	w := h.(*X11Window)
	if w.destroyed {
		return nil
	}
	if visible {
		if err := xproto.MapWindowChecked(w.Conn, w.Win).Check(); err != nil {
			return fmt.Errorf("map window: %w", err)
		}
		// Re-assert stacking; some WMs reset it on map.
		xproto.ConfigureWindow(w.Conn, w.Win, xproto.ConfigWindowStackMode,
			[]uint32{xproto.StackModeAbove})
		return nil
	}
	if err := xproto.UnmapWindowChecked(w.Conn, w.Win).Check(); err != nil {
		return fmt.Errorf("unmap window: %w", err)
	}
	return nil
}

func (x11Surface) SetClickThrough(h Handle, enabled bool) error {
	w := h.(*X11Window)
	if w.destroyed {
		return nil
	}
	if !w.shapeOK {
		return fmt.Errorf("SHAPE extension not available")
	}
	if enabled {
		// Empty input region: every pointer event lands on whatever is below.
		err := shape.RectanglesChecked(w.Conn, shape.SoSet, shape.SkInput, 0,
			w.Win, 0, 0, nil).Check()
		if err != nil {
			return fmt.Errorf("clear input shape: %w", err)
		}
		return nil
	}
	// Pixmap None restores the default full-window input region.
	err := shape.MaskChecked(w.Conn, shape.SoSet, shape.SkInput,
		w.Win, 0, 0, xproto.PixmapNone).Check()
	if err != nil {
		return fmt.Errorf("reset input shape: %w", err)
	}
	return nil
}

func (s x11Surface) SetGeometry(h Handle, r Rect) error {
	w := h.(*X11Window)
	if w.destroyed {
		return nil
	}
	monitors, err := s.Monitors()
	if err == nil {
		r = ClampToMonitors(r, monitors)
	}
	err = xproto.ConfigureWindowChecked(w.Conn, w.Win,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{
			uint32(int16(r.X)) & 0xffff,
			uint32(int16(r.Y)) & 0xffff,
			uint32(r.Width),
			uint32(r.Height),
		}).Check()
	if err != nil {
		return fmt.Errorf("configure window: %w", err)
	}
	w.rect = r
	return nil
}

func (x11Surface) PollEvents(h Handle) []Event {
	w := h.(*X11Window)
	if w.destroyed {
		return nil
	}
	var out []Event
	for {
		ev, xerr := w.Conn.PollForEvent()
		if xerr != nil {
			log.Printf("surface: X error: %v", xerr)
			continue
		}
		if ev == nil {
			return out
		}
		switch e := ev.(type) {
		case xproto.ExposeEvent:
			if e.Count == 0 {
				out = append(out, Expose{})
			}
		case xproto.ConfigureNotifyEvent:
			if e.Window != w.Win {
				continue
			}
			r := Rect{X: int(e.X), Y: int(e.Y), Width: int(e.Width), Height: int(e.Height)}
			if r.Width != w.rect.Width || r.Height != w.rect.Height {
				out = append(out, Resized{Rect: r, Scale: 1.0})
			} else if r.X != w.rect.X || r.Y != w.rect.Y {
				out = append(out, Moved{Rect: r})
			}
			w.rect = r
		case xproto.MapNotifyEvent:
			out = append(out, VisibilityChange{Visible: true})
		case xproto.UnmapNotifyEvent:
			out = append(out, VisibilityChange{Visible: false})
		case xproto.ClientMessageEvent:
			if xproto.Atom(e.Type) == w.wmProtocols && len(e.Data.Data32) > 0 &&
				xproto.Atom(e.Data.Data32[0]) == w.wmDelete {
				out = append(out, CloseRequested{})
			}
		case xproto.DestroyNotifyEvent:
			if e.Window == w.Win {
				out = append(out, CloseRequested{})
			}
		case randr.ScreenChangeNotifyEvent:
			out = append(out, DisplayChange{})
		}
	}
}

func (x11Surface) Monitors() ([]MonitorInfo, error) {
	// X11 reports geometry in device pixels; HiDPI scaling is the toolkit's
	// business, so the scale factor is 1.
	return enumerateMonitors(nil)
}

func (x11Surface) Destroy(h Handle) {
	w := h.(*X11Window)
	if w.destroyed {
		return
	}
	w.destroyed = true
	xproto.DestroyWindow(w.Conn, w.Win)
	w.Conn.Close()
}

// compositorActive checks ownership of the _NET_WM_CM_Sn manager selection,
// which a running compositing manager is required to hold.
func compositorActive(conn *xgb.Conn, screenNum int) (bool, error) {
	name := fmt.Sprintf("_NET_WM_CM_S%d", screenNum)
	atomReply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return false, err
	}
	owner, err := xproto.GetSelectionOwner(conn, atomReply.Atom).Reply()
	if err != nil {
		return false, err
	}
	return owner.Owner != xproto.WindowNone, nil
}

// findARGBVisual scans the screen's depth list for a 32-bit TrueColor visual.
func findARGBVisual(screen *xproto.ScreenInfo) (byte, xproto.Visualid, bool) {
	for _, d := range screen.AllowedDepths {
		if d.Depth != 32 {
			continue
		}
		for _, v := range d.Visuals {
			if v.Class == xproto.VisualClassTrueColor {
				return d.Depth, v.VisualId, true
			}
		}
	}
	return 0, 0, false
}
