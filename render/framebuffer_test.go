package render

import (
	"image/color"
	"testing"
	"time"
)

func TestNewFrameBufferClampsDegenerateSizes(t *testing.T) {
	fb := NewFrameBuffer(0, -3, 0)
	w, h := fb.Size()
	if w != 1 || h != 1 {
		t.Errorf("expected 1x1 floor, got %dx%d", w, h)
	}
	if fb.Scale != 1.0 {
		t.Errorf("expected scale fallback 1.0, got %v", fb.Scale)
	}
}

func TestFillAndClear(t *testing.T) {
	fb := NewFrameBuffer(2, 2, 1.0)
	fb.Fill(color.RGBA{R: 0x80, A: 0x80})
	if fb.Pix[0] != 0x80 || fb.Pix[3] != 0x80 {
		t.Errorf("fill did not write premultiplied pixel: %v", fb.Pix[:4])
	}
	fb.Clear()
	for i, b := range fb.Pix {
		if b != 0 {
			t.Fatalf("clear left byte %d at %d", b, i)
		}
	}
}

func TestPacerDoesNotDrift(t *testing.T) {
	p := newPacer(10 * time.Millisecond)
	cancel := make(chan struct{})
	start := time.Now()
	for i := 0; i < 20; i++ {
		p.wait(cancel)
	}
	elapsed := time.Since(start)
	// 20 ticks at 10ms is 200ms; drift compensation keeps this close even
	// though individual sleeps overshoot.
	if elapsed < 180*time.Millisecond || elapsed > 320*time.Millisecond {
		t.Errorf("20 ticks took %v, want about 200ms", elapsed)
	}
}

func TestPacerCancelReturnsEarly(t *testing.T) {
	p := newPacer(time.Second)
	cancel := make(chan struct{})
	close(cancel)
	start := time.Now()
	p.wait(cancel)
	if time.Since(start) > 200*time.Millisecond {
		t.Error("cancelled wait slept the full interval")
	}
}
