//go:build windows

package surface

import (
	"fmt"
	"log"
	"math"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

// Win32Window is the Win32 window handle. Fields are exported for the
// compositor bridge only.
type Win32Window struct {
	HWND  win.HWND
	Scale float64

	rect      Rect
	destroyed bool
}

func (h *Win32Window) Destroyed() bool { return h.destroyed }

const (
	overlayClassName = "GlasspaneOverlay"

	wsExTransparent = 0x00000020
	wsExNoActivate  = 0x08000000

	wmDpiChanged = 0x02E0
)

var (
	user32DLL           = syscall.NewLazyDLL("user32.dll")
	procGetDpiForWindow = user32DLL.NewProc("GetDpiForWindow")
)

var (
	classOnce sync.Once
	classErr  error

	// wndProc runs on the render-loop thread via DispatchMessage; the queue
	// map is still guarded because Destroy can race a late message burst.
	pendingMu sync.Mutex
	pending   = map[win.HWND][]Event{}
	tracked   = map[win.HWND]*Win32Window{}
)

type win32Surface struct{}

func newPlatformSurface() Surface { return win32Surface{} }

func registerOverlayClass() error {
	classOnce.Do(func() {
		className, _ := syscall.UTF16PtrFromString(overlayClassName)
		wndClass := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(overlayWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HbrBackground: 0, // no background brush; the layered bitmap is the content
			LpszClassName: className,
		}
		if atom := win.RegisterClassEx(&wndClass); atom == 0 {
			classErr = fmt.Errorf("RegisterClassEx failed")
		}
	})
	return classErr
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	push := func(ev Event) {
		pendingMu.Lock()
		pending[hwnd] = append(pending[hwnd], ev)
		pendingMu.Unlock()
	}
	switch msg {
	case win.WM_DISPLAYCHANGE:
		push(DisplayChange{})
		return 0
	case wmDpiChanged:
		pendingMu.Lock()
		if w, ok := tracked[hwnd]; ok {
			w.Scale = float64(uint16(wParam)) / 96.0
		}
		pendingMu.Unlock()
		push(DisplayChange{})
		return 0
	case win.WM_MOVE, win.WM_SIZE:
		pendingMu.Lock()
		w, ok := tracked[hwnd]
		pendingMu.Unlock()
		if ok {
			r := unscaleRect(queryWindowRect(hwnd), w.Scale)
			if r.Width != w.rect.Width || r.Height != w.rect.Height {
				push(Resized{Rect: r, Scale: w.Scale})
			} else if r.X != w.rect.X || r.Y != w.rect.Y {
				push(Moved{Rect: r})
			}
			w.rect = r
		}
		return 0
	case win.WM_SHOWWINDOW:
		push(VisibilityChange{Visible: wParam != 0})
		return 0
	case win.WM_CLOSE:
		push(CloseRequested{})
		return 0 // do not let DefWindowProc destroy the window
	case win.WM_PAINT:
		// Layered windows paint through UpdateLayeredWindow; just validate.
		win.ValidateRect(hwnd, nil)
		push(Expose{})
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func (s win32Surface) Create(cfg Config) (Handle, error) {
	if err := registerOverlayClass(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlatformInit, err)
	}

	monitors, _ := s.Monitors()
	scale := 1.0
	if m, ok := FindMonitor(monitors, cfg.Monitor); ok {
		scale = m.Scale
	}
	// Win32 speaks device pixels and GetDisplayBounds reports device pixels,
	// so the logical rect is converted before clamping or creating anything.
	device := scaleRect(cfg.Rect, scale)
	device = ClampToMonitors(device, monitors)

	exStyle := uint32(win.WS_EX_LAYERED | win.WS_EX_TOPMOST | win.WS_EX_TOOLWINDOW | wsExNoActivate)
	if cfg.ClickThrough {
		exStyle |= wsExTransparent
	}
	className, _ := syscall.UTF16PtrFromString(overlayClassName)
	title, _ := syscall.UTF16PtrFromString(cfg.Title)
	hwnd := win.CreateWindowEx(
		exStyle,
		className,
		title,
		win.WS_POPUP,
		int32(device.X), int32(device.Y), int32(device.Width), int32(device.Height),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return nil, fmt.Errorf("%w: CreateWindowEx failed", ErrPlatformInit)
	}

	h := &Win32Window{HWND: hwnd, Scale: scale, rect: unscaleRect(device, scale)}
	if dpi := windowDPI(hwnd); dpi > 0 {
		h.Scale = float64(dpi) / 96.0
	}
	pendingMu.Lock()
	tracked[hwnd] = h
	pendingMu.Unlock()
	return h, nil
}

func (win32Surface) SetVisible(h Handle, visible bool) error {
	w := h.(*Win32Window)
	if w.destroyed {
		return nil
	}
	if visible {
		// SW_SHOWNOACTIVATE keeps keyboard focus with the current app.
		win.ShowWindow(w.HWND, win.SW_SHOWNOACTIVATE)
		win.SetWindowPos(w.HWND, win.HWND_TOPMOST, 0, 0, 0, 0,
			win.SWP_NOMOVE|win.SWP_NOSIZE|win.SWP_NOACTIVATE)
	} else {
		win.ShowWindow(w.HWND, win.SW_HIDE)
	}
	return nil
}

func (win32Surface) SetClickThrough(h Handle, enabled bool) error {
	w := h.(*Win32Window)
	if w.destroyed {
		return nil
	}
	style := win.GetWindowLong(w.HWND, win.GWL_EXSTYLE)
	if style == 0 {
		return fmt.Errorf("GetWindowLong failed")
	}
	if enabled {
		style |= wsExTransparent
	} else {
		style &^= wsExTransparent
	}
	if win.SetWindowLong(w.HWND, win.GWL_EXSTYLE, style) == 0 {
		return fmt.Errorf("SetWindowLong failed")
	}
	return nil
}

func (s win32Surface) SetGeometry(h Handle, r Rect) error {
	w := h.(*Win32Window)
	if w.destroyed {
		return nil
	}
	device := scaleRect(r, w.Scale)
	monitors, err := s.Monitors()
	if err == nil {
		device = ClampToMonitors(device, monitors)
	}
	if !win.SetWindowPos(w.HWND, win.HWND_TOPMOST,
		int32(device.X), int32(device.Y), int32(device.Width), int32(device.Height),
		win.SWP_NOACTIVATE) {
		return fmt.Errorf("SetWindowPos failed")
	}
	w.rect = unscaleRect(device, w.Scale)
	return nil
}

func (win32Surface) PollEvents(h Handle) []Event {
	w := h.(*Win32Window)
	if w.destroyed {
		return nil
	}
	// Pump the thread message queue; overlayWndProc translates anything of
	// interest into the pending slice for this hwnd.
	var msg win.MSG
	for win.PeekMessage(&msg, 0, 0, 0, win.PM_REMOVE) {
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	pendingMu.Lock()
	out := pending[w.HWND]
	delete(pending, w.HWND)
	pendingMu.Unlock()
	return out
}

func (win32Surface) Monitors() ([]MonitorInfo, error) {
	return enumerateMonitors(func(int) float64 {
		// Per-monitor DPI needs a window on that monitor; the system DPI is
		// the best pre-creation answer.
		hdc := win.GetDC(0)
		if hdc == 0 {
			return 1.0
		}
		defer win.ReleaseDC(0, hdc)
		dpi := win.GetDeviceCaps(hdc, win.LOGPIXELSX)
		if dpi <= 0 {
			return 1.0
		}
		return float64(dpi) / 96.0
	})
}

func (win32Surface) Destroy(h Handle) {
	w := h.(*Win32Window)
	if w.destroyed {
		return
	}
	w.destroyed = true
	pendingMu.Lock()
	delete(pending, w.HWND)
	delete(tracked, w.HWND)
	pendingMu.Unlock()
	if !win.DestroyWindow(w.HWND) {
		log.Printf("surface: DestroyWindow failed for %v", w.HWND)
	}
}

func windowDPI(hwnd win.HWND) int {
	if err := procGetDpiForWindow.Find(); err != nil {
		return 0
	}
	dpi, _, _ := procGetDpiForWindow.Call(uintptr(hwnd))
	return int(dpi)
}

// scaleRect converts a logical-pixel rect to device pixels.
func scaleRect(r Rect, scale float64) Rect {
	if scale <= 0 || scale == 1.0 {
		return r
	}
	return Rect{
		X:      int(math.Round(float64(r.X) * scale)),
		Y:      int(math.Round(float64(r.Y) * scale)),
		Width:  int(math.Round(float64(r.Width) * scale)),
		Height: int(math.Round(float64(r.Height) * scale)),
	}
}

// unscaleRect converts a device-pixel rect back to logical pixels.
func unscaleRect(r Rect, scale float64) Rect {
	if scale <= 0 || scale == 1.0 {
		return r
	}
	return Rect{
		X:      int(math.Round(float64(r.X) / scale)),
		Y:      int(math.Round(float64(r.Y) / scale)),
		Width:  int(math.Round(float64(r.Width) / scale)),
		Height: int(math.Round(float64(r.Height) / scale)),
	}
}

func queryWindowRect(hwnd win.HWND) Rect {
	var r win.RECT
	if !win.GetWindowRect(hwnd, &r) {
		return Rect{}
	}
	return Rect{
		X:      int(r.Left),
		Y:      int(r.Top),
		Width:  int(r.Right - r.Left),
		Height: int(r.Bottom - r.Top),
	}
}
