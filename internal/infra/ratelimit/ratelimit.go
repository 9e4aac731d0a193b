package ratelimit

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

// PerKey keeps one token bucket per key (client IP). At most size buckets are
// kept; the least recently used is evicted first and idle ones are swept
// after ttl. A non-positive ttl disables the sweep.
type PerKey struct {
	mu       sync.Mutex
	stop     chan struct{}
	stopOnce sync.Once
	visitors *lru.Cache[string, *visitor]
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

func New(limit, burst, size int, ttl time.Duration) *PerKey {
	visitors, err := lru.New[string, *visitor](size)
	if err != nil {
		// size <= 0
		visitors, _ = lru.New[string, *visitor](1)
	}
	p := &PerKey{
		visitors: visitors,
		limit:    rate.Limit(limit),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go p.janitor()
	}
	return p
}

// Close stops the idle sweep. Allow keeps working afterwards.
func (p *PerKey) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Allow spends one token from key's bucket.
func (p *PerKey) Allow(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.visitors.Get(key)
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.visitors.Add(key, v)
	}
	v.last = p.now()
	return v.limiter.Allow()
}

func (p *PerKey) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visitors.Len()
}

func (p *PerKey) sweep() {
	if p.ttl <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for _, key := range p.visitors.Keys() {
		if v, ok := p.visitors.Peek(key); ok && now.Sub(v.last) > p.ttl {
			p.visitors.Remove(key)
		}
	}
}

func (p *PerKey) janitor() {
	ticker := time.NewTicker(p.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			select {
			case <-p.stop:
				return
			default:
			}
			p.sweep()
		}
	}
}
