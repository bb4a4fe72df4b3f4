package scan

import "sync"

// progressHub fans scan progress updates out to websocket subscribers.
// Slow subscribers drop updates rather than blocking the scan.
type progressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan Progress]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{subs: make(map[string]map[chan Progress]struct{})}
}

// Subscribe registers interest in one scan's progress. The returned cancel
// function must be called exactly once.
func (h *progressHub) Subscribe(scanID string) (<-chan Progress, func()) {
	ch := make(chan Progress, 16)

	h.mu.Lock()
	if h.subs[scanID] == nil {
		h.subs[scanID] = make(map[chan Progress]struct{})
	}
	h.subs[scanID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[scanID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, scanID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an update to every subscriber of the scan.
func (h *progressHub) Publish(p Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[p.ScanID] {
		select {
		case ch <- p:
		default: // subscriber is behind, drop
		}
	}
}
