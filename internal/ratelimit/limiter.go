// Package ratelimit provides the fixed-window attempt limiter guarding login.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultMaxAttempts is the number of attempts allowed per window when the
	// configured value is zero or negative.
	DefaultMaxAttempts = 5

	// DefaultWindow is the window length when the configured value is zero or
	// negative.
	DefaultWindow = 60 * time.Second

	// DefaultCleanupInterval is how often the background goroutine drops
	// expired windows.
	DefaultCleanupInterval = 5 * time.Minute
)

// Limiter reports whether an attempt under key is allowed right now. Every
// call counts as an attempt, allowed or not.
type Limiter interface {
	Allow(key string) bool
}

// window tracks attempts for a single key within the current fixed window.
type window struct {
	start    time.Time
	attempts int
}

// MemoryLimiter is an in-memory fixed-window Limiter. Attempts under the same
// key within one window are counted; once the count exceeds the maximum,
// further attempts are rejected until the window expires. Counts are not
// reset early for any reason, including a successful attempt.
//
// A background goroutine drops expired windows. Call Close to stop it.
type MemoryLimiter struct {
	mu          sync.Mutex
	windows     map[string]*window
	maxAttempts int
	windowLen   time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup

	nowF func() time.Time
}

// NewMemoryLimiter creates a MemoryLimiter allowing maxAttempts per key per
// windowLen. It starts the cleanup goroutine; call Close to stop it.
func NewMemoryLimiter(maxAttempts int, windowLen time.Duration) *MemoryLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if windowLen <= 0 {
		windowLen = DefaultWindow
	}

	l := &MemoryLimiter{
		windows:     make(map[string]*window),
		maxAttempts: maxAttempts,
		windowLen:   windowLen,
		stopChan:    make(chan struct{}),
		nowF:        time.Now,
	}

	l.wg.Add(1)
	go l.cleanupLoop(DefaultCleanupInterval)

	return l
}

// Allow records an attempt under key and reports whether it is within the
// limit. The first attempt opens a window; the window is fixed, not sliding,
// so the count resets only when the window expires.
func (l *MemoryLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowF()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.windowLen {
		l.windows[key] = &window{start: now, attempts: 1}
		return true
	}

	w.attempts++
	return w.attempts <= l.maxAttempts
}

// KeyCount returns the number of tracked keys. Useful for tests and
// monitoring.
func (l *MemoryLimiter) KeyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Cleanup drops windows that expired before now. Called periodically by the
// background goroutine; safe to call manually.
func (l *MemoryLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowF()
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.windowLen {
			delete(l.windows, key)
		}
	}
}

func (l *MemoryLimiter) cleanupLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Close stops the cleanup goroutine. It blocks until the goroutine exits.
func (l *MemoryLimiter) Close() {
	close(l.stopChan)
	l.wg.Wait()
}
