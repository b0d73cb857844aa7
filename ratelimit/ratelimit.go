// Package ratelimit bounds how often a given box accepts PROGRESS_UPDATE
// commands versus every other command type, using one token-bucket limiter
// per (boxId, class) pair so one overeager box never starves another.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Class distinguishes the high-frequency PROGRESS_UPDATE traffic from every
// other, lower-frequency command.
type Class string

const (
	ClassProgress Class = "progress"
	ClassOther    Class = "other"
)

// Config carries the per-minute allowance for each class.
type Config struct {
	ProgressPerMin int
	OtherPerMin    int
}

type key struct {
	boxID int
	class Class
}

// Limiter owns one rate.Limiter per (box, class), created lazily on first use.
type Limiter struct {
	cfg Config

	mu       sync.Mutex
	limiters map[key]*rate.Limiter
}

// New returns a Limiter enforcing cfg.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:      cfg,
		limiters: make(map[key]*rate.Limiter),
	}
}

// Allow reports whether a command of the given class for boxID may proceed
// right now, consuming one token if so.
func (l *Limiter) Allow(boxID int, class Class) bool {
	return l.limiterFor(boxID, class).Allow()
}

func (l *Limiter) limiterFor(boxID int, class Class) *rate.Limiter {
	k := key{boxID: boxID, class: class}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[k]; ok {
		return lim
	}

	perMin := l.cfg.OtherPerMin
	burst := 5
	if class == ClassProgress {
		perMin = l.cfg.ProgressPerMin
		burst = 10
	}
	lim := rate.NewLimiter(rate.Limit(float64(perMin)/60.0), burst)
	l.limiters[k] = lim
	return lim
}
