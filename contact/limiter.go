package contact

import (
	"sync"
	"time"
)

// submissionLimiter caps submissions per hashed client address over a
// sliding window. Keys are IP hashes, so raw addresses are never held.
type submissionLimiter struct {
	mu     sync.Mutex
	sent   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
	done   chan struct{}
	stop   sync.Once
}

func newSubmissionLimiter(max int, window time.Duration) *submissionLimiter {
	l := &submissionLimiter{
		sent:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go l.sweep()
	return l
}

// allow reports whether key may submit again and records the submission if so.
func (l *submissionLimiter) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := since(l.sent[key], now.Add(-l.window))
	if len(kept) >= l.max {
		l.sent[key] = kept
		return false
	}
	l.sent[key] = append(kept, now)
	return true
}

func (l *submissionLimiter) close() {
	l.stop.Do(func() { close(l.done) })
}

// sweep drops idle keys once per window until close is called.
func (l *submissionLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := l.now().Add(-l.window)
			l.mu.Lock()
			for key, times := range l.sent {
				if kept := since(times, cutoff); len(kept) == 0 {
					delete(l.sent, key)
				} else {
					l.sent[key] = kept
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

func since(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
