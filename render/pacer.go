package render

import "time"

// fallbackInterval paces "vsync" mode on platforms whose bridge cannot block
// on a real vertical blank.
const fallbackInterval = time.Second / 60

// pacer schedules frame deadlines against the wall clock instead of stacking
// fixed sleeps, so scheduling jitter never accumulates into drift.
type pacer struct {
	interval time.Duration
	next     time.Time
}

func newPacer(interval time.Duration) *pacer {
	if interval <= 0 {
		interval = fallbackInterval
	}
	return &pacer{interval: interval}
}

// wait sleeps until the next frame deadline and advances it. A loop that has
// fallen more than one full interval behind resynchronizes to now rather than
// racing to catch up with a burst of frames.
func (p *pacer) wait(cancel <-chan struct{}) {
	now := time.Now()
	if p.next.IsZero() {
		p.next = now.Add(p.interval)
	}
	d := p.next.Sub(now)
	if d > 0 {
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-cancel:
			t.Stop()
			return
		}
	}
	p.next = p.next.Add(p.interval)
	if time.Until(p.next) < -p.interval {
		p.next = time.Now().Add(p.interval)
	}
}
