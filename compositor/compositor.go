// Package compositor negotiates pixel formats with the OS compositor and
// transfers finished frames to the screen. All alpha handling lives here so
// the premultiplied-vs-straight contract is enforced in exactly one place:
// buffers arrive premultiplied (Go's image.RGBA convention) and leave in
// whatever layout the platform's fast path wants, without double
// premultiplication or gamma shifts.
package compositor

import (
	"errors"

	"glasspane/render"
	"glasspane/surface"
)

// ErrUnsupportedPixelFormat is returned by Negotiate when the OS cannot give
// the window a 32-bit ARGB surface. Fatal for that window.
var ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")

// ByteOrder names the channel layout the platform present path consumes.
type ByteOrder int

const (
	// OrderBGRA is the little-endian ARGB32 layout X11 and Win32 use.
	OrderBGRA ByteOrder = iota
	// OrderRGBA is the layout CoreGraphics consumes directly.
	OrderRGBA
)

// PixelFormat describes the negotiated surface format.
type PixelFormat struct {
	Bits          int
	Alpha         bool
	Premultiplied bool
	Order         ByteOrder
}

// Bridge is the per-platform present path. Implementations are not safe for
// concurrent use; the render loop is their only caller.
type Bridge interface {
	// Negotiate verifies (and on X11, finalizes) the window's pixel format
	// before the first present.
	Negotiate(h surface.Handle) (PixelFormat, error)

	// Present transfers the frame to the screen, fully or not at all.
	Present(h surface.Handle, fb *render.FrameBuffer) error

	// WaitVBlank blocks until vertical blank where the platform has a
	// primitive for it, reporting whether it blocked.
	WaitVBlank() bool
}

// New returns the Bridge for the platform this binary was built for.
func New() Bridge { return newPlatformBridge() }

// rgbaToBGRA rewrites premultiplied RGBA pixels into premultiplied BGRA.
// dst and src must be the same length, a multiple of 4.
func rgbaToBGRA(dst, src []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
}
