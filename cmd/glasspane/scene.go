package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"glasspane/content"
	"glasspane/hotkey"
	"glasspane/render"
)

const (
	columnWidth  = 96.0 // logical pixels per key column
	columnGap    = 8.0
	cellHeight   = 96.0
	barSpeed     = 600.0 // logical pixels per second, upward
	statusLinger = 4 * time.Second
)

// Premultiplied RGBA. The compositor contract is premultiplied alpha, so a
// half-transparent white is {128,128,128,128}, not {255,255,255,128}.
var (
	cellBorder  = color.RGBA{R: 0xc8, G: 0xc8, B: 0xc8, A: 0xc8}
	cellIdle    = color.RGBA{R: 0x14, G: 0x14, B: 0x1e, A: 0x6e}
	cellPressed = color.RGBA{R: 0x64, G: 0xb4, B: 0xe6, A: 0xe6}
	barFill     = color.RGBA{R: 0x50, G: 0x96, B: 0xc8, A: 0xb4}
	labelColor  = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	statusColor = color.RGBA{R: 0xe6, G: 0xc8, B: 0x64, A: 0xe6}
)

// bar is one press trail, measured as distance above the key cell in logical
// pixels. A held key keeps its bar anchored (bottom == 0) and growing; on
// release the bar detaches and scrolls off the top.
type bar struct {
	bottom, top float64
	held        bool
}

type keyColumn struct {
	name  string
	down  bool
	count uint64
	bars  []bar
}

// keyScene renders one column per watched key: a cell that lights up while
// the key is held, a press counter, and trails that scroll upward. Input
// callbacks mutate the columns from the hook goroutine; Draw reads them on
// the render thread under the same lock.
type keyScene struct {
	mu      sync.Mutex
	columns []*keyColumn

	statusBox *content.Mailbox[string]
	status    string
	statusAge time.Duration
}

func newKeyScene(keys []string, statusBox *content.Mailbox[string]) *keyScene {
	s := &keyScene{statusBox: statusBox}
	for _, k := range keys {
		s.columns = append(s.columns, &keyColumn{name: k})
	}
	return s
}

// HandleKey is the hotkey package's watched-key callback.
func (s *keyScene) HandleKey(ev hotkey.KeyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, col := range s.columns {
		if col.name != ev.Name {
			continue
		}
		if ev.Down && !col.down {
			col.down = true
			col.count++
			col.bars = append(col.bars, bar{held: true})
		} else if !ev.Down && col.down {
			col.down = false
			for i := range col.bars {
				col.bars[i].held = false
			}
		}
		return
	}
}

// Draw paints one frame. It runs on the render thread.
func (s *keyScene) Draw(fb *render.FrameBuffer, dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg, ok := s.statusBox.Take(); ok {
		s.status = msg
		s.statusAge = 0
	} else if s.status != "" {
		s.statusAge += dt
		if s.statusAge > statusLinger {
			s.status = ""
		}
	}

	s.advance(dt.Seconds())

	scale := fb.Scale
	w, h := fb.Size()
	fieldTop := 0
	cellTop := h - int(cellHeight*scale)
	if cellTop < 0 {
		cellTop = 0
	}

	x := int(columnGap * scale)
	for _, col := range s.columns {
		cw := int(columnWidth * scale)
		if x+cw > w {
			break
		}

		for _, b := range col.bars {
			top := cellTop - int(b.top*scale)
			bottom := cellTop - int(b.bottom*scale)
			if top < fieldTop {
				top = fieldTop
			}
			if bottom > cellTop {
				bottom = cellTop
			}
			fillRect(fb, x, top, x+cw, bottom, barFill)
		}

		cellColor := cellIdle
		if col.down {
			cellColor = cellPressed
		}
		fillRect(fb, x, cellTop, x+cw, h, cellColor)
		strokeRect(fb, x, cellTop, x+cw, h, int(scale+0.5), cellBorder)

		drawLabel(fb, x+cw/2, cellTop+int(34*scale), col.name, labelColor)
		drawLabel(fb, x+cw/2, cellTop+int(64*scale), fmt.Sprintf("%d", col.count), labelColor)

		x += cw + int(columnGap*scale)
	}

	if s.status != "" {
		drawText(fb, int(columnGap*scale), int(16*scale), s.status, statusColor)
	}
}

// advance moves detached bars upward and grows held ones, dropping bars that
// left the field.
func (s *keyScene) advance(dt float64) {
	for _, col := range s.columns {
		kept := col.bars[:0]
		for _, b := range col.bars {
			if b.held {
				b.top += barSpeed * dt
			} else {
				b.top += barSpeed * dt
				b.bottom += barSpeed * dt
			}
			if b.bottom < 4000 { // generous field bound; offscreen bars are clipped anyway
				kept = append(kept, b)
			}
		}
		col.bars = kept
	}
}

func fillRect(fb *render.FrameBuffer, x0, y0, x1, y1 int, c color.RGBA) {
	if x1 <= x0 || y1 <= y0 {
		return
	}
	draw.Draw(fb.RGBA, image.Rect(x0, y0, x1, y1), image.NewUniform(c), image.Point{}, draw.Over)
}

func strokeRect(fb *render.FrameBuffer, x0, y0, x1, y1, thickness int, c color.RGBA) {
	if thickness < 1 {
		thickness = 1
	}
	fillRect(fb, x0, y0, x1, y0+thickness, c)
	fillRect(fb, x0, y1-thickness, x1, y1, c)
	fillRect(fb, x0, y0, x0+thickness, y1, c)
	fillRect(fb, x1-thickness, y0, x1, y1, c)
}

// drawLabel centers text horizontally on cx.
func drawLabel(fb *render.FrameBuffer, cx, y int, text string, c color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	drawText(fb, cx-width/2, y, text, c)
}

func drawText(fb *render.FrameBuffer, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  fb.RGBA,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
