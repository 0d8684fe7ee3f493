//go:build linux

package compositor

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"glasspane/render"
	"glasspane/surface"
)

// x11Bridge presents by uploading the frame to a server-side pixmap and
// copying it onto the window in one request. The two-step dance keeps chunked
// uploads of large frames from ever being visible half-done.
type x11Bridge struct {
	gc     xproto.Gcontext
	pixmap xproto.Pixmap
	pixW   int
	pixH   int
	bgra   []byte
}

func newPlatformBridge() Bridge { return &x11Bridge{} }

func (b *x11Bridge) Negotiate(h surface.Handle) (PixelFormat, error) {
	w, ok := h.(*surface.X11Window)
	if !ok {
		return PixelFormat{}, fmt.Errorf("%w: not an X11 window handle", ErrUnsupportedPixelFormat)
	}
	gc, err := xproto.NewGcontextId(w.Conn)
	if err != nil {
		return PixelFormat{}, fmt.Errorf("gc id: %w", err)
	}
	// GraphicsExposures off: CopyArea must not generate expose chatter.
	err = xproto.CreateGCChecked(w.Conn, gc, xproto.Drawable(w.Win),
		xproto.GcGraphicsExposures, []uint32{0}).Check()
	if err != nil {
		return PixelFormat{}, fmt.Errorf("create gc: %w", err)
	}
	b.gc = gc

	switch w.Depth {
	case 32:
		return PixelFormat{Bits: 32, Alpha: true, Premultiplied: true, Order: OrderBGRA}, nil
	case 24:
		// Opaque debug fallback picked at window creation.
		return PixelFormat{Bits: 24, Alpha: false, Premultiplied: false, Order: OrderBGRA}, nil
	default:
		return PixelFormat{}, fmt.Errorf("%w: depth %d", ErrUnsupportedPixelFormat, w.Depth)
	}
}

func (b *x11Bridge) Present(h surface.Handle, fb *render.FrameBuffer) error {
	w, ok := h.(*surface.X11Window)
	if !ok || w.Destroyed() {
		return nil
	}
	width, height := fb.Size()
	if width == 0 || height == 0 {
		return nil
	}
	if err := b.ensurePixmap(w, width, height); err != nil {
		return err
	}

	if len(b.bgra) != len(fb.Pix) {
		b.bgra = make([]byte, len(fb.Pix))
	}
	// ZPixmap depth-32 on a little-endian server is premultiplied BGRA.
	rgbaToBGRA(b.bgra, fb.Pix)

	stride := width * 4
	maxBytes := int(xproto.Setup(w.Conn).MaximumRequestLength)*4 - 28
	rowsPerPut := maxBytes / stride
	if rowsPerPut < 1 {
		rowsPerPut = 1
	}
	for y := 0; y < height; y += rowsPerPut {
		rows := rowsPerPut
		if y+rows > height {
			rows = height - y
		}
		xproto.PutImage(w.Conn, xproto.ImageFormatZPixmap,
			xproto.Drawable(b.pixmap), b.gc,
			uint16(width), uint16(rows), 0, int16(y),
			0, w.Depth, b.bgra[y*stride:(y+rows)*stride])
	}

	// Single CopyArea: the window content flips whole-frame or not at all.
	err := xproto.CopyAreaChecked(w.Conn, xproto.Drawable(b.pixmap),
		xproto.Drawable(w.Win), b.gc, 0, 0, 0, 0,
		uint16(width), uint16(height)).Check()
	if err != nil {
		return fmt.Errorf("copy area: %w", err)
	}
	return nil
}

// WaitVBlank reports false: core X11 has no vblank wait, so the render loop
// paces "vsync" mode on its fallback interval.
func (b *x11Bridge) WaitVBlank() bool { return false }

func (b *x11Bridge) ensurePixmap(w *surface.X11Window, width, height int) error {
	if b.pixmap != 0 && b.pixW == width && b.pixH == height {
		return nil
	}
	if b.pixmap != 0 {
		xproto.FreePixmap(w.Conn, b.pixmap)
		b.pixmap = 0
	}
	pix, err := xproto.NewPixmapId(w.Conn)
	if err != nil {
		return fmt.Errorf("pixmap id: %w", err)
	}
	err = xproto.CreatePixmapChecked(w.Conn, w.Depth, pix,
		xproto.Drawable(w.Win), uint16(width), uint16(height)).Check()
	if err != nil {
		return fmt.Errorf("create pixmap: %w", err)
	}
	b.pixmap = pix
	b.pixW = width
	b.pixH = height
	return nil
}
