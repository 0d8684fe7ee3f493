//go:build windows

package surface

import "testing"

func TestScaleRectDevicePixels(t *testing.T) {
	cases := []struct {
		name    string
		logical Rect
		scale   float64
		device  Rect
	}{
		{"identity", Rect{X: 10, Y: 20, Width: 300, Height: 200}, 1.0, Rect{X: 10, Y: 20, Width: 300, Height: 200}},
		{"150pct", Rect{X: 100, Y: 50, Width: 640, Height: 480}, 1.5, Rect{X: 150, Y: 75, Width: 960, Height: 720}},
		{"200pct", Rect{X: -10, Y: 0, Width: 33, Height: 17}, 2.0, Rect{X: -20, Y: 0, Width: 66, Height: 34}},
		{"zero scale passes through", Rect{X: 1, Y: 2, Width: 3, Height: 4}, 0, Rect{X: 1, Y: 2, Width: 3, Height: 4}},
	}
	for _, tc := range cases {
		if got := scaleRect(tc.logical, tc.scale); got != tc.device {
			t.Errorf("%s: scaleRect(%+v, %v) = %+v, want %+v", tc.name, tc.logical, tc.scale, got, tc.device)
		}
	}
}

func TestUnscaleRectInvertsScaleRect(t *testing.T) {
	rects := []Rect{
		{X: 0, Y: 0, Width: 1920, Height: 1080},
		{X: 100, Y: 200, Width: 640, Height: 360},
		{X: -1920, Y: 0, Width: 1920, Height: 1080},
	}
	for _, scale := range []float64{1.0, 1.25, 1.5, 2.0} {
		for _, r := range rects {
			back := unscaleRect(scaleRect(r, scale), scale)
			if back != r {
				t.Errorf("round trip at scale %v: %+v came back as %+v", scale, r, back)
			}
		}
	}
}
