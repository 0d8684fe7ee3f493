// Package render drives the overlay's frame loop: it owns the pixel buffers,
// applies window events, invokes the external draw callback and hands the
// finished frame to the compositor bridge at a steady pace.
package render

import (
	"image"
	"image/color"
	"image/draw"
)

// opaqueDebugBackground is the clear color for the opaque-for-debug
// background mode, where blending bugs are easier to spot than on glass.
var opaqueDebugBackground = color.RGBA{A: 0xff}

// FrameBuffer is the pixel buffer the draw callback paints into. It is sized
// in physical pixels and uses Go's image.RGBA layout, which is premultiplied
// alpha — exactly what the OS compositing fast paths expect.
//
// A FrameBuffer is never resized in place; any geometry or DPI change makes
// the loop allocate a fresh one.
type FrameBuffer struct {
	*image.RGBA

	// Scale is the DPI scale the buffer was allocated at. Logical size is
	// physical size divided by Scale.
	Scale float64
}

// NewFrameBuffer allocates a transparent buffer of w x h physical pixels.
func NewFrameBuffer(w, h int, scale float64) *FrameBuffer {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if scale <= 0 {
		scale = 1.0
	}
	return &FrameBuffer{
		RGBA:  image.NewRGBA(image.Rect(0, 0, w, h)),
		Scale: scale,
	}
}

// Size returns the buffer dimensions in physical pixels.
func (fb *FrameBuffer) Size() (w, h int) {
	b := fb.Bounds()
	return b.Dx(), b.Dy()
}

// Clear fills the buffer with fully transparent black.
func (fb *FrameBuffer) Clear() {
	fb.Fill(color.RGBA{})
}

// Fill floods the buffer with one color.
func (fb *FrameBuffer) Fill(c color.Color) {
	draw.Draw(fb.RGBA, fb.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// CopyFrom replaces the buffer contents with those of src. Both buffers must
// have the same dimensions.
func (fb *FrameBuffer) CopyFrom(src *FrameBuffer) {
	copy(fb.Pix, src.Pix)
}
