//go:build !linux && !windows && !darwin

package surface

import "fmt"

type stubSurface struct{}

func newPlatformSurface() Surface { return stubSurface{} }

func (stubSurface) Create(Config) (Handle, error) {
	return nil, fmt.Errorf("%w: no overlay backend for this platform", ErrPlatformInit)
}

func (stubSurface) SetVisible(Handle, bool) error      { return nil }
func (stubSurface) SetClickThrough(Handle, bool) error { return nil }
func (stubSurface) SetGeometry(Handle, Rect) error     { return nil }
func (stubSurface) PollEvents(Handle) []Event          { return nil }
func (stubSurface) Monitors() ([]MonitorInfo, error)   { return enumerateMonitors(nil) }
func (stubSurface) Destroy(Handle)                     {}
