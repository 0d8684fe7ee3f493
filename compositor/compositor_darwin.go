//go:build darwin

package compositor

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"

	"glasspane/render"
	"glasspane/surface"
)

const kCGImageAlphaPremultipliedLast = 1

var (
	cgOnce sync.Once
	cgErr  error

	cgColorSpaceCreateDeviceRGB func() uintptr
	cgDataProviderCreateData    func(info, data uintptr, size uint64, release uintptr) uintptr
	cgImageCreate               func(width, height, bitsPerComponent, bitsPerPixel, bytesPerRow uint64,
		space uintptr, bitmapInfo uint32, provider uintptr, decode uintptr,
		shouldInterpolate bool, intent uint32) uintptr
	cgImageRelease        func(uintptr)
	cgDataProviderRelease func(uintptr)

	msgSendSetFloat func(objc.ID, objc.SEL, float64)
)

func initCoreGraphics() error {
	cgOnce.Do(func() {
		cg, err := purego.Dlopen("/System/Library/Frameworks/CoreGraphics.framework/CoreGraphics", purego.RTLD_GLOBAL|purego.RTLD_NOW)
		if err != nil {
			cgErr = err
			return
		}
		if _, err := purego.Dlopen("/System/Library/Frameworks/QuartzCore.framework/QuartzCore", purego.RTLD_GLOBAL|purego.RTLD_NOW); err != nil {
			cgErr = err
			return
		}
		purego.RegisterLibFunc(&cgColorSpaceCreateDeviceRGB, cg, "CGColorSpaceCreateDeviceRGB")
		purego.RegisterLibFunc(&cgDataProviderCreateData, cg, "CGDataProviderCreateWithData")
		purego.RegisterLibFunc(&cgImageCreate, cg, "CGImageCreate")
		purego.RegisterLibFunc(&cgImageRelease, cg, "CGImageRelease")
		purego.RegisterLibFunc(&cgDataProviderRelease, cg, "CGDataProviderRelease")
		objcLib, err := purego.Dlopen("/usr/lib/libobjc.A.dylib", purego.RTLD_GLOBAL|purego.RTLD_NOW)
		if err != nil {
			cgErr = err
			return
		}
		purego.RegisterLibFunc(&msgSendSetFloat, objcLib, "objc_msgSend")
	})
	return cgErr
}

// cocoaBridge presents by wrapping the frame in a CGImage and assigning it as
// the content of the window's backing CALayer. CoreGraphics consumes
// premultiplied RGBA directly, so no channel swizzle is needed.
type cocoaBridge struct {
	colorSpace uintptr

	// Two alternating pixel copies: the CGImage on screen references one of
	// them zero-copy, so it must stay untouched until the next frame has
	// replaced it on the layer.
	bufs [2][]byte
	cur  int
}

func newPlatformBridge() Bridge { return &cocoaBridge{} }

func (b *cocoaBridge) Negotiate(h surface.Handle) (PixelFormat, error) {
	if _, ok := h.(*surface.CocoaWindow); !ok {
		return PixelFormat{}, fmt.Errorf("%w: not a Cocoa window handle", ErrUnsupportedPixelFormat)
	}
	if err := initCoreGraphics(); err != nil {
		return PixelFormat{}, fmt.Errorf("%w: load CoreGraphics: %v", ErrUnsupportedPixelFormat, err)
	}
	b.colorSpace = cgColorSpaceCreateDeviceRGB()
	if b.colorSpace == 0 {
		return PixelFormat{}, fmt.Errorf("%w: no device RGB color space", ErrUnsupportedPixelFormat)
	}
	return PixelFormat{Bits: 32, Alpha: true, Premultiplied: true, Order: OrderRGBA}, nil
}

func (b *cocoaBridge) Present(h surface.Handle, fb *render.FrameBuffer) error {
	w, ok := h.(*surface.CocoaWindow)
	if !ok || w.Destroyed() {
		return nil
	}
	width, height := fb.Size()
	if width == 0 || height == 0 {
		return nil
	}

	buf := b.bufs[b.cur]
	if len(buf) != len(fb.Pix) {
		buf = make([]byte, len(fb.Pix))
		b.bufs[b.cur] = buf
	}
	copy(buf, fb.Pix)
	b.cur = 1 - b.cur

	provider := cgDataProviderCreateData(0, uintptr(unsafe.Pointer(&buf[0])), uint64(len(buf)), 0)
	if provider == 0 {
		return fmt.Errorf("CGDataProviderCreateWithData failed")
	}
	img := cgImageCreate(uint64(width), uint64(height), 8, 32, uint64(width*4),
		b.colorSpace, kCGImageAlphaPremultipliedLast, provider, 0, false, 0)
	if img == 0 {
		cgDataProviderRelease(provider)
		return fmt.Errorf("CGImageCreate failed")
	}

	// Swap the layer contents inside a transaction with implicit animation
	// off, otherwise CoreAnimation cross-fades every frame.
	transaction := objc.ID(objc.GetClass("CATransaction"))
	transaction.Send(objc.RegisterName("begin"))
	transaction.Send(objc.RegisterName("setDisableActions:"), true)
	msgSendSetFloat(w.Layer, objc.RegisterName("setContentsScale:"), w.Scale)
	w.Layer.Send(objc.RegisterName("setContents:"), objc.ID(img))
	transaction.Send(objc.RegisterName("commit"))

	// The layer retains the image; drop our references.
	cgImageRelease(img)
	cgDataProviderRelease(provider)
	return nil
}

// WaitVBlank reports false; pacing falls back to the loop's interval timer.
// A CVDisplayLink would be the native primitive but needs a callback thread
// that conflicts with the single-threaded loop contract.
func (b *cocoaBridge) WaitVBlank() bool { return false }
