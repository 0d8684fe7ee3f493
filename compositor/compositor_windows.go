//go:build windows

package compositor

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"glasspane/render"
	"glasspane/surface"
)

const ulwAlpha = 0x00000002

var (
	user32DLL                = syscall.NewLazyDLL("user32.dll")
	procUpdateLayeredWindow  = user32DLL.NewProc("UpdateLayeredWindow")
	dwmapiDLL                = syscall.NewLazyDLL("dwmapi.dll")
	procDwmFlush             = dwmapiDLL.NewProc("DwmFlush")
	procDwmIsCompositionEnbl = dwmapiDLL.NewProc("DwmIsCompositionEnabled")
)

// win32Bridge presents through UpdateLayeredWindow, which swaps the whole
// window surface atomically from a premultiplied BGRA DIB.
type win32Bridge struct {
	memDC win.HDC
	bmp   win.HBITMAP
	old   win.HGDIOBJ
	bits  unsafe.Pointer
	w, h  int
}

func newPlatformBridge() Bridge { return &win32Bridge{} }

func (b *win32Bridge) Negotiate(h surface.Handle) (PixelFormat, error) {
	if _, ok := h.(*surface.Win32Window); !ok {
		return PixelFormat{}, fmt.Errorf("%w: not a Win32 window handle", ErrUnsupportedPixelFormat)
	}
	// DWM composition is always on from Windows 8; the check matters only on
	// legacy desktops with it switched off.
	if err := procDwmIsCompositionEnbl.Find(); err == nil {
		var enabled int32
		procDwmIsCompositionEnbl.Call(uintptr(unsafe.Pointer(&enabled)))
		if enabled == 0 {
			return PixelFormat{}, fmt.Errorf("%w: DWM composition disabled", ErrUnsupportedPixelFormat)
		}
	}
	return PixelFormat{Bits: 32, Alpha: true, Premultiplied: true, Order: OrderBGRA}, nil
}

func (b *win32Bridge) Present(h surface.Handle, fb *render.FrameBuffer) error {
	w, ok := h.(*surface.Win32Window)
	if !ok || w.Destroyed() {
		return nil
	}
	width, height := fb.Size()
	if width == 0 || height == 0 {
		return nil
	}
	if err := b.ensureDIB(width, height); err != nil {
		return err
	}

	// The DIB is top-down BGRA; rewrite the premultiplied RGBA rows into it.
	dst := unsafe.Slice((*byte)(b.bits), width*height*4)
	rgbaToBGRA(dst, fb.Pix)

	size := win.SIZE{CX: int32(width), CY: int32(height)}
	ptSrc := win.POINT{}
	blend := win.BLENDFUNCTION{
		BlendOp:             win.AC_SRC_OVER,
		SourceConstantAlpha: 255,
		AlphaFormat:         win.AC_SRC_ALPHA,
	}
	ret, _, _ := procUpdateLayeredWindow.Call(
		uintptr(w.HWND),
		0, // screen DC
		0, // keep current position
		uintptr(unsafe.Pointer(&size)),
		uintptr(b.memDC),
		uintptr(unsafe.Pointer(&ptSrc)),
		0,
		uintptr(unsafe.Pointer(&blend)),
		ulwAlpha,
	)
	if ret == 0 {
		return fmt.Errorf("UpdateLayeredWindow failed")
	}
	return nil
}

// WaitVBlank blocks on DwmFlush, which returns after the next composition
// pass — the closest thing layered windows have to a vsync wait.
func (b *win32Bridge) WaitVBlank() bool {
	if err := procDwmFlush.Find(); err != nil {
		return false
	}
	ret, _, _ := procDwmFlush.Call()
	return ret == 0 // S_OK
}

func (b *win32Bridge) ensureDIB(width, height int) error {
	if b.bmp != 0 && b.w == width && b.h == height {
		return nil
	}
	b.releaseDIB()

	b.memDC = win.CreateCompatibleDC(0)
	if b.memDC == 0 {
		return fmt.Errorf("CreateCompatibleDC failed")
	}
	bih := win.BITMAPINFOHEADER{
		BiSize:     uint32(unsafe.Sizeof(win.BITMAPINFOHEADER{})),
		BiWidth:    int32(width),
		BiHeight:   -int32(height), // top-down
		BiPlanes:   1,
		BiBitCount: 32,
	}
	b.bmp = win.CreateDIBSection(b.memDC, &bih, win.DIB_RGB_COLORS, &b.bits, 0, 0)
	if b.bmp == 0 {
		win.DeleteDC(b.memDC)
		b.memDC = 0
		return fmt.Errorf("CreateDIBSection failed")
	}
	b.old = win.SelectObject(b.memDC, win.HGDIOBJ(b.bmp))
	b.w = width
	b.h = height
	return nil
}

func (b *win32Bridge) releaseDIB() {
	if b.memDC != 0 {
		if b.old != 0 {
			win.SelectObject(b.memDC, b.old)
			b.old = 0
		}
		win.DeleteDC(b.memDC)
		b.memDC = 0
	}
	if b.bmp != 0 {
		win.DeleteObject(win.HGDIOBJ(b.bmp))
		b.bmp = 0
	}
	b.bits = nil
	b.w, b.h = 0, 0
}
