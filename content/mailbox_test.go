package content

import (
	"sync"
	"testing"
)

func TestTakeOnEmptyReportsNothing(t *testing.T) {
	m := NewMailbox[int]()
	if v, ok := m.Take(); ok {
		t.Errorf("Take on empty mailbox returned %d", v)
	}
}

func TestLastWriteWins(t *testing.T) {
	m := NewMailbox[string]()
	m.Put("stale")
	m.Put("fresh")

	v, ok := m.Take()
	if !ok || v != "fresh" {
		t.Errorf("Take = %q, %v; want fresh, true", v, ok)
	}
	if _, ok := m.Take(); ok {
		t.Error("mailbox should be empty after Take")
	}
}

func TestPutNeverBlocks(t *testing.T) {
	m := NewMailbox[int]()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Put(n*1000 + j)
			}
		}(i)
	}
	wg.Wait()

	if _, ok := m.Take(); !ok {
		t.Error("expected a pending value after concurrent puts")
	}
}
