package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"glasspane/surface"
)

type fakeHandle struct{ destroyed bool }

func (h *fakeHandle) Destroyed() bool { return h.destroyed }

type fakeSurface struct {
	mu           sync.Mutex
	queued       []surface.Event
	destroyCount int
	visible      []bool
	clickCalls   []bool
	clickErr     error
	geometry     []surface.Rect
	monitors     []surface.MonitorInfo
}

func (s *fakeSurface) Create(cfg surface.Config) (surface.Handle, error) {
	return &fakeHandle{}, nil
}

func (s *fakeSurface) SetVisible(h surface.Handle, v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = append(s.visible, v)
	return nil
}

func (s *fakeSurface) SetClickThrough(h surface.Handle, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clickCalls = append(s.clickCalls, enabled)
	return s.clickErr
}

func (s *fakeSurface) SetGeometry(h surface.Handle, r surface.Rect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geometry = append(s.geometry, r)
	return nil
}

func (s *fakeSurface) PollEvents(h surface.Handle) []surface.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.queued
	s.queued = nil
	return evs
}

func (s *fakeSurface) Monitors() ([]surface.MonitorInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitors != nil {
		return s.monitors, nil
	}
	return []surface.MonitorInfo{
		{ID: "display-0", Bounds: surface.Rect{Width: 1920, Height: 1080}, Scale: 1.0, Primary: true},
	}, nil
}

func (s *fakeSurface) Destroy(h surface.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyCount++
	h.(*fakeHandle).destroyed = true
}

func (s *fakeSurface) push(evs ...surface.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = append(s.queued, evs...)
}

type presentedFrame struct {
	w, h int
	pix  []byte
}

type fakePresenter struct {
	mu     sync.Mutex
	frames []presentedFrame
	err    error
}

func (p *fakePresenter) Present(h surface.Handle, fb *FrameBuffer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	w, hh := fb.Size()
	p.frames = append(p.frames, presentedFrame{w: w, h: hh, pix: append([]byte(nil), fb.Pix...)})
	return nil
}

func (p *fakePresenter) WaitVBlank() bool { return false }

func (p *fakePresenter) frame(i int) presentedFrame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames[i]
}

func (p *fakePresenter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func startLoop(t *testing.T, surf *fakeSurface, pres *fakePresenter, opts Options, draw DrawFunc) (*Loop, chan error) {
	t.Helper()
	h, err := surf.Create(surface.Config{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	l := New(surf, h, pres, opts)
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background(), draw) }()
	return l, done
}

func waitStopped(t *testing.T, l *Loop, done chan error) {
	t.Helper()
	l.Stop()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestFramePacing(t *testing.T) {
	surf := &fakeSurface{}
	pres := &fakePresenter{}
	l, done := startLoop(t, surf, pres, Options{FPS: 100, Rect: surface.Rect{Width: 32, Height: 32}}, func(fb *FrameBuffer, dt time.Duration) {})
	l.Show()

	time.Sleep(500 * time.Millisecond)
	waitStopped(t, l, done)

	n := pres.count()
	// 100 fps over 500ms is 50 frames; allow generous scheduler slack.
	if n < 30 || n > 70 {
		t.Errorf("expected roughly 50 presents, got %d", n)
	}
}

func TestHiddenLoopIsIdle(t *testing.T) {
	surf := &fakeSurface{}
	pres := &fakePresenter{}
	l, done := startLoop(t, surf, pres, Options{FPS: 240, Rect: surface.Rect{Width: 8, Height: 8}}, func(fb *FrameBuffer, dt time.Duration) {})

	time.Sleep(600 * time.Millisecond)
	iters := l.Iterations()
	waitStopped(t, l, done)

	if pres.count() != 0 {
		t.Errorf("hidden loop presented %d frames", pres.count())
	}
	// At a 250ms hidden wake, 600ms is 2-3 iterations, not hundreds.
	if iters > 10 {
		t.Errorf("hidden loop spun %d iterations", iters)
	}
}

func TestDrawFaultRetainsPreviousFrame(t *testing.T) {
	surf := &fakeSurface{}
	pres := &fakePresenter{}
	var faults []Fault
	var faultMu sync.Mutex

	var frame atomic.Int32
	draw := func(fb *FrameBuffer, dt time.Duration) {
		n := frame.Add(1)
		if n == 2 {
			panic("scripted fault")
		}
		fb.Fill(color.RGBA{R: uint8(n), A: 0xff})
	}
	l, done := startLoop(t, surf, pres, Options{
		FPS:  200,
		Rect: surface.Rect{Width: 4, Height: 4},
		Report: func(f Fault) {
			faultMu.Lock()
			faults = append(faults, f)
			faultMu.Unlock()
		},
	}, draw)
	l.Show()

	for pres.count() < 3 && frame.Load() < 10 {
		time.Sleep(10 * time.Millisecond)
	}
	waitStopped(t, l, done)

	if pres.count() < 3 {
		t.Fatalf("expected at least 3 presents, got %d", pres.count())
	}
	// Frame 2 faulted, so its present must re-show frame 1's pixels.
	if !bytes.Equal(pres.frame(1).pix, pres.frame(0).pix) {
		t.Errorf("fault frame did not retain previous frame contents")
	}
	// Frame 3 must be drawn fresh, unaffected by the fault.
	if pres.frame(2).pix[0] != 3 {
		t.Errorf("post-fault frame corrupted: first byte %d, want 3", pres.frame(2).pix[0])
	}

	faultMu.Lock()
	defer faultMu.Unlock()
	if len(faults) == 0 || faults[0].Kind != FaultDraw {
		t.Errorf("expected a FaultDraw report, got %+v", faults)
	}
}

func TestResizeReallocatesBuffers(t *testing.T) {
	surf := &fakeSurface{}
	pres := &fakePresenter{}
	l, done := startLoop(t, surf, pres, Options{FPS: 200, Rect: surface.Rect{Width: 10, Height: 10}}, func(fb *FrameBuffer, dt time.Duration) {})
	l.Show()

	for pres.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	surf.push(surface.Resized{Rect: surface.Rect{Width: 20, Height: 15}, Scale: 2.0})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n := pres.count(); n > 0 {
			f := pres.frame(n - 1)
			if f.w == 40 && f.h == 30 {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("never presented a 40x30 physical frame after resize to 20x15@2x")
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitStopped(t, l, done)
}

func TestDisplayChangeReclampReallocatesBuffers(t *testing.T) {
	surf := &fakeSurface{}
	pres := &fakePresenter{}
	l, done := startLoop(t, surf, pres, Options{FPS: 200, Rect: surface.Rect{Width: 100, Height: 80}}, func(fb *FrameBuffer, dt time.Duration) {})
	l.Show()

	for pres.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	// The only remaining monitor no longer overlaps the window and is
	// smaller than it, so the reclamp both moves and shrinks the rect. The
	// framebuffer must follow the new size even though the scale is the same.
	surf.mu.Lock()
	surf.monitors = []surface.MonitorInfo{
		{ID: "display-1", Bounds: surface.Rect{X: 1000, Y: 1000, Width: 50, Height: 40}, Scale: 1.0, Primary: true},
	}
	surf.mu.Unlock()
	surf.push(surface.DisplayChange{})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if n := pres.count(); n > 0 {
			f := pres.frame(n - 1)
			if f.w == 50 && f.h == 40 {
				break
			}
		}
		if time.Now().After(deadline) {
			n := pres.count()
			f := pres.frame(n - 1)
			t.Fatalf("never presented a 50x40 frame after reclamp; last was %dx%d", f.w, f.h)
		}
		time.Sleep(5 * time.Millisecond)
	}

	surf.mu.Lock()
	geom := append([]surface.Rect(nil), surf.geometry...)
	surf.mu.Unlock()
	want := surface.Rect{X: 1000, Y: 1000, Width: 50, Height: 40}
	found := false
	for _, g := range geom {
		if g == want {
			found = true
		}
	}
	if !found {
		t.Errorf("window never moved onto the surviving monitor: %v", geom)
	}
	waitStopped(t, l, done)
}

func TestStopDestroysExactlyOnce(t *testing.T) {
	surf := &fakeSurface{}
	pres := &fakePresenter{}
	l, done := startLoop(t, surf, pres, Options{FPS: 100, Rect: surface.Rect{Width: 8, Height: 8}}, func(fb *FrameBuffer, dt time.Duration) {})

	l.Stop()
	l.Stop() // second stop is a no-op
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not stop")
	}

	surf.mu.Lock()
	defer surf.mu.Unlock()
	if surf.destroyCount != 1 {
		t.Errorf("destroy ran %d times, want 1", surf.destroyCount)
	}
}

func TestCloseRequestedStopsLoop(t *testing.T) {
	surf := &fakeSurface{}
	pres := &fakePresenter{}
	_, done := startLoop(t, surf, pres, Options{FPS: 100, Rect: surface.Rect{Width: 8, Height: 8}}, func(fb *FrameBuffer, dt time.Duration) {})

	surf.push(surface.CloseRequested{})
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not stop on close request")
	}
}

func TestClickThroughToggleReachesSurface(t *testing.T) {
	surf := &fakeSurface{}
	pres := &fakePresenter{}
	l, done := startLoop(t, surf, pres, Options{FPS: 200, Rect: surface.Rect{Width: 8, Height: 8}}, func(fb *FrameBuffer, dt time.Duration) {})
	l.Show()
	l.SetClickThrough(true)
	l.SetClickThrough(false)

	deadline := time.Now().Add(2 * time.Second)
	for {
		surf.mu.Lock()
		calls := append([]bool(nil), surf.clickCalls...)
		surf.mu.Unlock()
		if len(calls) >= 2 {
			if !calls[0] || calls[1] {
				t.Errorf("click-through calls out of order: %v", calls)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("click-through commands never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitStopped(t, l, done)
}

func TestClickThroughDenialIsReportedNotFatal(t *testing.T) {
	surf := &fakeSurface{clickErr: fmt.Errorf("shape extension missing")}
	pres := &fakePresenter{}
	var got []Fault
	var mu sync.Mutex
	l, done := startLoop(t, surf, pres, Options{
		FPS:  200,
		Rect: surface.Rect{Width: 8, Height: 8},
		Report: func(f Fault) {
			mu.Lock()
			got = append(got, f)
			mu.Unlock()
		},
	}, func(fb *FrameBuffer, dt time.Duration) {})
	l.Show()
	l.SetClickThrough(true)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("denial never reported")
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	if got[0].Kind != FaultClickThrough {
		t.Errorf("wrong fault kind: %v", got[0].Kind)
	}
	mu.Unlock()
	waitStopped(t, l, done)
}
