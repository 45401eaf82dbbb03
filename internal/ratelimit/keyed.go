package ratelimit

import (
	"sync"
	"time"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	Burst         float64
	RefillRate    float64
	CleanupPeriod time.Duration
	// OnDrop is called for every refused request. Optional.
	OnDrop func()
}

// KeyedLimiter keeps one bucket per key (LINE user id). Idle buckets are
// dropped by a background sweep until Stop is called.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	cfg      KeyedConfig
	now      func() time.Time
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewKeyedLimiter creates the limiter and starts its cleanup loop.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = 5 * time.Minute
	}
	kl := &KeyedLimiter{
		limiters: make(map[string]*Limiter),
		cfg:      cfg,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go kl.cleanupLoop()
	return kl
}

// Allow consumes a token from key's bucket. An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	kl.mu.Lock()
	l, ok := kl.limiters[key]
	if !ok {
		l = newWithClock(kl.cfg.Burst, kl.cfg.RefillRate, kl.now)
		kl.limiters[key] = l
	}
	kl.mu.Unlock()

	if l.Allow() {
		return true
	}
	if kl.cfg.OnDrop != nil {
		kl.cfg.OnDrop()
	}
	return false
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}

// sweep drops buckets that have refilled completely.
func (kl *KeyedLimiter) sweep() {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	for key, l := range kl.limiters {
		if l.IsFull() {
			delete(kl.limiters, key)
		}
	}
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.sweep()
		}
	}
}

// Stop ends the cleanup loop. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}
