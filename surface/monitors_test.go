package surface

import "testing"

func twoMonitors() []MonitorInfo {
	return []MonitorInfo{
		{ID: "display-0", Bounds: Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, Scale: 1.0, Primary: true},
		{ID: "display-1", Bounds: Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}, Scale: 1.0},
	}
}

func TestClampKeepsIntersectingRect(t *testing.T) {
	r := Rect{X: 1800, Y: 100, Width: 400, Height: 300}
	got := ClampToMonitors(r, twoMonitors())
	if got != r {
		t.Errorf("expected rect spanning two monitors to be unchanged, got %v", got)
	}
}

func TestClampPullsOffscreenRectOntoPrimary(t *testing.T) {
	got := ClampToMonitors(Rect{X: 9000, Y: 9000, Width: 400, Height: 300}, twoMonitors())
	if got.Empty() {
		t.Fatalf("clamp produced empty rect: %v", got)
	}
	primary := twoMonitors()[0].Bounds
	if !got.Intersects(primary) {
		t.Errorf("clamped rect %v does not intersect primary %v", got, primary)
	}
	if got.Width != 400 || got.Height != 300 {
		t.Errorf("clamp resized a rect that fits: %v", got)
	}
}

func TestClampNegativeOriginOntoPrimary(t *testing.T) {
	got := ClampToMonitors(Rect{X: -5000, Y: -5000, Width: 800, Height: 600}, twoMonitors())
	if got.X != 0 || got.Y != 0 {
		t.Errorf("expected origin clamped to 0,0, got %v", got)
	}
}

func TestClampOversizedRectShrinksToPrimary(t *testing.T) {
	got := ClampToMonitors(Rect{X: 99999, Y: 0, Width: 10000, Height: 10000}, twoMonitors())
	primary := twoMonitors()[0].Bounds
	if got.Width != primary.Width || got.Height != primary.Height {
		t.Errorf("expected oversize rect shrunk to %v, got %v", primary, got)
	}
}

func TestClampNeverProducesZeroSize(t *testing.T) {
	got := ClampToMonitors(Rect{X: 10, Y: 10, Width: 0, Height: -5}, twoMonitors())
	if got.Empty() {
		t.Errorf("zero-size input must be bumped to at least 1x1, got %v", got)
	}
}

func TestFindMonitorFallsBackToPrimary(t *testing.T) {
	m, ok := FindMonitor(twoMonitors(), "display-7")
	if !ok || !m.Primary {
		t.Errorf("unknown ID should resolve to primary, got %+v ok=%v", m, ok)
	}
	m, ok = FindMonitor(twoMonitors(), "display-1")
	if !ok || m.ID != "display-1" {
		t.Errorf("known ID should resolve exactly, got %+v ok=%v", m, ok)
	}
	m, ok = FindMonitor(twoMonitors(), "primary")
	if !ok || !m.Primary {
		t.Errorf("\"primary\" should resolve to primary, got %+v ok=%v", m, ok)
	}
}
