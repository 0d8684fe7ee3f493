package surface

import (
	"fmt"

	"github.com/kbinani/screenshot"
)

// enumerateMonitors lists display bounds through the cross-platform screenshot
// package and attaches the backend-supplied DPI scale per display. Display 0
// is the primary on every platform kbinani/screenshot supports.
func enumerateMonitors(scaleFor func(display int) float64) ([]MonitorInfo, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	monitors := make([]MonitorInfo, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		scale := 1.0
		if scaleFor != nil {
			scale = scaleFor(i)
		}
		monitors = append(monitors, MonitorInfo{
			ID: fmt.Sprintf("display-%d", i),
			Bounds: Rect{
				X:      b.Min.X,
				Y:      b.Min.Y,
				Width:  b.Dx(),
				Height: b.Dy(),
			},
			Scale:   scale,
			Primary: i == 0,
		})
	}
	return monitors, nil
}

// PrimaryMonitor returns the primary display from a monitor snapshot, or a
// zero MonitorInfo and false when the snapshot is empty.
func PrimaryMonitor(monitors []MonitorInfo) (MonitorInfo, bool) {
	for _, m := range monitors {
		if m.Primary {
			return m, true
		}
	}
	if len(monitors) > 0 {
		return monitors[0], true
	}
	return MonitorInfo{}, false
}

// FindMonitor resolves a configured monitor identifier ("primary" or an ID
// from MonitorInfo) against a snapshot. Unknown IDs fall back to primary so a
// stale config never produces an invisible overlay.
func FindMonitor(monitors []MonitorInfo, id string) (MonitorInfo, bool) {
	if id != "" && id != "primary" {
		for _, m := range monitors {
			if m.ID == id {
				return m, true
			}
		}
	}
	return PrimaryMonitor(monitors)
}

// ClampToMonitors moves r the minimum distance needed to intersect at least
// one monitor. A rect that already touches a display is returned unchanged;
// a rect outside every display is pulled fully inside the primary monitor.
// The size is never reduced below 1x1 and never zeroed.
func ClampToMonitors(r Rect, monitors []MonitorInfo) Rect {
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	for _, m := range monitors {
		if r.Intersects(m.Bounds) {
			return r
		}
	}
	primary, ok := PrimaryMonitor(monitors)
	if !ok {
		return r
	}
	b := primary.Bounds
	if r.Width > b.Width {
		r.Width = b.Width
	}
	if r.Height > b.Height {
		r.Height = b.Height
	}
	if r.X < b.X {
		r.X = b.X
	} else if r.X+r.Width > b.X+b.Width {
		r.X = b.X + b.Width - r.Width
	}
	if r.Y < b.Y {
		r.Y = b.Y
	} else if r.Y+r.Height > b.Y+b.Height {
		r.Y = b.Y + b.Height - r.Height
	}
	return r
}
