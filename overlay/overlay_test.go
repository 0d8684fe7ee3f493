package overlay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"glasspane/compositor"
	"glasspane/config"
	"glasspane/render"
	"glasspane/surface"
)

type fakeHandle struct {
	mu        sync.Mutex
	destroyed bool
}

func (h *fakeHandle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

type fakeSurface struct {
	mu           sync.Mutex
	handle       *fakeHandle
	destroyCount int
	clickCalls   []bool
	visible      bool
}

func (s *fakeSurface) Create(cfg surface.Config) (surface.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = &fakeHandle{}
	return s.handle, nil
}

func (s *fakeSurface) SetVisible(h surface.Handle, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
	return nil
}

func (s *fakeSurface) SetClickThrough(h surface.Handle, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clickCalls = append(s.clickCalls, enabled)
	return nil
}

func (s *fakeSurface) SetGeometry(h surface.Handle, r surface.Rect) error { return nil }

func (s *fakeSurface) PollEvents(h surface.Handle) []surface.Event { return nil }

func (s *fakeSurface) Monitors() ([]surface.MonitorInfo, error) {
	return []surface.MonitorInfo{
		{ID: "0", Bounds: surface.Rect{Width: 1920, Height: 1080}, Scale: 1.0, Primary: true},
	}, nil
}

func (s *fakeSurface) Destroy(h surface.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != nil && !s.handle.destroyed {
		s.handle.mu.Lock()
		s.handle.destroyed = true
		s.handle.mu.Unlock()
		s.destroyCount++
	}
}

func (s *fakeSurface) destroys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyCount
}

type fakeBridge struct {
	mu          sync.Mutex
	negotiated  bool
	presents    int
	presentErr  error
	negotiateErr error
}

func (b *fakeBridge) Negotiate(h surface.Handle) (compositor.PixelFormat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.negotiateErr != nil {
		return compositor.PixelFormat{}, b.negotiateErr
	}
	b.negotiated = true
	return compositor.PixelFormat{Bits: 32, Alpha: true, Premultiplied: true, Order: compositor.OrderBGRA}, nil
}

func (b *fakeBridge) Present(h surface.Handle, fb *render.FrameBuffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presents++
	return b.presentErr
}

func (b *fakeBridge) WaitVBlank() bool { return false }

func (b *fakeBridge) presented() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.presents
}

func testConfig() *config.Config {
	return &config.Config{
		X: 40, Y: 40, Width: 200, Height: 150,
		Monitor:    "primary",
		FPS:        100,
		Background: config.BackgroundTransparent,
		Title:      "test",
	}
}

func TestOpenNegotiatesAndCloseReleases(t *testing.T) {
	surf := &fakeSurface{}
	bridge := &fakeBridge{}

	ov, err := Open(testConfig(), WithSurface(surf), WithBridge(bridge))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bridge.negotiated {
		t.Error("pixel format was not negotiated at open")
	}
	if got := ov.PixelFormat(); got.Bits != 32 || !got.Alpha {
		t.Errorf("PixelFormat = %+v", got)
	}

	if err := ov.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if surf.destroys() != 1 {
		t.Errorf("destroy count = %d, want 1", surf.destroys())
	}

	if err := ov.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if err := ov.Show(); !errors.Is(err, ErrClosed) {
		t.Errorf("Show after Close = %v, want ErrClosed", err)
	}
	if err := ov.SetClickThrough(true); !errors.Is(err, ErrClosed) {
		t.Errorf("SetClickThrough after Close = %v, want ErrClosed", err)
	}
	if surf.destroys() != 1 {
		t.Errorf("destroy count after second Close = %d, want 1", surf.destroys())
	}
}

func TestNegotiateFailureTearsDownWindow(t *testing.T) {
	surf := &fakeSurface{}
	bridge := &fakeBridge{negotiateErr: ErrUnsupportedPixelFormat}

	_, err := Open(testConfig(), WithSurface(surf), WithBridge(bridge))
	if !errors.Is(err, ErrUnsupportedPixelFormat) {
		t.Fatalf("Open = %v, want ErrUnsupportedPixelFormat", err)
	}
	if surf.destroys() != 1 {
		t.Errorf("window leaked after failed negotiation: destroys = %d", surf.destroys())
	}
}

func TestRunPresentsWhileVisible(t *testing.T) {
	surf := &fakeSurface{}
	bridge := &fakeBridge{}

	ov, err := Open(testConfig(), WithSurface(surf), WithBridge(bridge))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- ov.Run(context.Background(), func(fb *render.FrameBuffer, dt time.Duration) {})
	}()

	if err := ov.Show(); err != nil {
		t.Fatalf("Show: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for bridge.presented() < 3 {
		select {
		case <-deadline:
			t.Fatal("no frames presented while visible")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := ov.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	if surf.destroys() != 1 {
		t.Errorf("destroy count = %d, want 1", surf.destroys())
	}
}

func TestClickThroughReachesBackend(t *testing.T) {
	surf := &fakeSurface{}
	bridge := &fakeBridge{}

	ov, err := Open(testConfig(), WithSurface(surf), WithBridge(bridge))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- ov.Run(context.Background(), func(fb *render.FrameBuffer, dt time.Duration) {})
	}()
	ov.Show()
	ov.SetClickThrough(true)
	ov.SetClickThrough(false)

	deadline := time.After(2 * time.Second)
	for {
		surf.mu.Lock()
		n := len(surf.clickCalls)
		surf.mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("click-through toggles never reached the backend")
		case <-time.After(10 * time.Millisecond):
		}
	}

	surf.mu.Lock()
	calls := append([]bool(nil), surf.clickCalls...)
	surf.mu.Unlock()
	if !calls[0] || calls[1] {
		t.Errorf("click-through calls = %v, want [true false]", calls)
	}

	ov.Close()
	<-done
}

func TestPresentFailureIsObservedNotFatal(t *testing.T) {
	surf := &fakeSurface{}
	bridge := &fakeBridge{presentErr: errors.New("compositor hiccup")}

	var mu sync.Mutex
	var seen []Observation
	sink := func(o Observation) {
		mu.Lock()
		seen = append(seen, o)
		mu.Unlock()
	}

	ov, err := Open(testConfig(), WithSurface(surf), WithBridge(bridge), WithSink(sink))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- ov.Run(context.Background(), func(fb *render.FrameBuffer, dt time.Duration) {})
	}()
	ov.Show()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("present failures were not observed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	first := seen[0]
	mu.Unlock()
	if first.Kind != ObsPresentFailed {
		t.Errorf("observation kind = %v, want present failed", first.Kind)
	}

	// The loop kept going after the failures.
	if bridge.presented() < 2 {
		t.Errorf("loop stopped presenting after a failure: %d presents", bridge.presented())
	}

	ov.Close()
	<-done
}
