// Package ratelimit implements the Manual Trigger rate limiter
// (spec.md §4.7): a per-job token bucket the API layer consults before
// forwarding a manual trigger to the scheduling engine. The engine
// itself never reads this package.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	window      = 10 * time.Second
	capacity    = 1
	gcThreshold = 100
	staleAfter  = 2 * window
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// TriggerLimiter gates manual job triggers to one per 10-second window
// per job, backed by golang.org/x/time/rate.
type TriggerLimiter struct {
	buckets sync.Map // uuid.UUID -> *bucket
	count   int32    // atomic, approximate size of buckets
}

// NewTriggerLimiter creates an empty limiter.
func NewTriggerLimiter() *TriggerLimiter {
	return &TriggerLimiter{}
}

// Allow reports whether a manual trigger for jobID is permitted right
// now. When denied, retryAfterSeconds is the remaining wait rounded to
// one decimal place, per spec.md §4.7.
func (l *TriggerLimiter) Allow(jobID uuid.UUID) (ok bool, retryAfterSeconds float64) {
	b := l.bucketFor(jobID)
	now := time.Now()
	b.lastSeen.Store(now.UnixNano())

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}

	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return true, 0
	}

	reservation.CancelAt(now)
	remaining := delay.Seconds()
	remaining = float64(int(remaining*10+0.5)) / 10
	return false, remaining
}

func (l *TriggerLimiter) bucketFor(jobID uuid.UUID) *bucket {
	if v, ok := l.buckets.Load(jobID); ok {
		return v.(*bucket)
	}

	b := &bucket{limiter: rate.NewLimiter(rate.Every(window), capacity)}
	actual, loaded := l.buckets.LoadOrStore(jobID, b)
	if !loaded {
		if atomic.AddInt32(&l.count, 1) > gcThreshold {
			go l.gc()
		}
	}
	return actual.(*bucket)
}

// gc drops buckets whose lastSeen exceeds 2x the window, per spec.md
// §4.7's garbage-collection rule. bucketFor launches it in its own
// goroutine each time a newly added bucket takes the table past
// gcThreshold entries.
func (l *TriggerLimiter) gc() {
	cutoff := time.Now().Add(-staleAfter).UnixNano()

	l.buckets.Range(func(key, value interface{}) bool {
		b := value.(*bucket)
		if b.lastSeen.Load() < cutoff {
			l.buckets.Delete(key)
			atomic.AddInt32(&l.count, -1)
		}
		return true
	})
}
