//go:build !linux && !windows && !darwin

package compositor

import (
	"fmt"

	"glasspane/render"
	"glasspane/surface"
)

type stubBridge struct{}

func newPlatformBridge() Bridge { return stubBridge{} }

func (stubBridge) Negotiate(surface.Handle) (PixelFormat, error) {
	return PixelFormat{}, fmt.Errorf("%w: no compositor bridge for this platform", ErrUnsupportedPixelFormat)
}

func (stubBridge) Present(surface.Handle, *render.FrameBuffer) error { return nil }
func (stubBridge) WaitVBlank() bool                                  { return false }
