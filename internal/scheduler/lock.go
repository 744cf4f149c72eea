package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedLocker provides Redis-backed mutual exclusion. It is
// repurposed here (see DESIGN.md) from the teacher's per-tick leader
// election into a boot-time single-active-instance guard: spec.md §1
// states "the engine assumes a single active scheduler instance per
// store", and InstanceGuard enforces that assumption without performing
// any cross-instance dispatch coordination (the Non-goal it would
// otherwise violate).
type DistributedLocker struct {
	client   *redis.Client
	workerID string
}

// NewDistributedLocker creates a new locker identified by workerID.
func NewDistributedLocker(client *redis.Client, workerID string) *DistributedLocker {
	return &DistributedLocker{
		client:   client,
		workerID: workerID,
	}
}

// AcquireLock attempts to acquire key with NX semantics.
func (l *DistributedLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := fmt.Sprintf("lock:%s", key)

	result, err := l.client.SetNX(ctx, lockKey, l.workerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	return result, nil
}

// ReleaseLock releases key if still held by this worker.
func (l *DistributedLocker) ReleaseLock(ctx context.Context, key string) error {
	lockKey := fmt.Sprintf("lock:%s", key)

	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	_, err := script.Run(ctx, l.client, []string{lockKey}, l.workerID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}

// RefreshLock extends key's TTL if still held by this worker.
func (l *DistributedLocker) RefreshLock(ctx context.Context, key string, ttl time.Duration) error {
	lockKey := fmt.Sprintf("lock:%s", key)

	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)

	_, err := script.Run(ctx, l.client, []string{lockKey}, l.workerID, ttl.Milliseconds()).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to refresh lock: %w", err)
	}

	return nil
}

// IsLockHeld reports whether key is currently held by this worker.
func (l *DistributedLocker) IsLockHeld(ctx context.Context, key string) (bool, error) {
	lockKey := fmt.Sprintf("lock:%s", key)

	value, err := l.client.Get(ctx, lockKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check lock: %w", err)
	}

	return value == l.workerID, nil
}

// instanceGuardKey is the single key every process instance contends for
// at boot. Unlike the teacher's per-tick "scheduler:leader" key, it is
// acquired once and held for the process lifetime via heartbeats.
const instanceGuardKey = "instance-guard"

// InstanceGuard enforces single-active-instance at boot: Acquire fails
// fast if another process already holds the guard, and Heartbeat keeps
// it alive for as long as this process runs.
type InstanceGuard struct {
	locker *DistributedLocker
	ttl    time.Duration
}

// NewInstanceGuard creates a guard backed by client, using ttl as both
// the initial lease length and the refresh target for Heartbeat.
func NewInstanceGuard(client *redis.Client, workerID string, ttl time.Duration) *InstanceGuard {
	return &InstanceGuard{
		locker: NewDistributedLocker(client, workerID),
		ttl:    ttl,
	}
}

// Acquire attempts to become the single active instance. A false result
// with a nil error means another instance currently holds the guard.
func (g *InstanceGuard) Acquire(ctx context.Context) (bool, error) {
	return g.locker.AcquireLock(ctx, instanceGuardKey, g.ttl)
}

// Heartbeat extends the guard's lease. Call on a ticker shorter than the
// configured TTL for the lifetime of the process.
func (g *InstanceGuard) Heartbeat(ctx context.Context) error {
	return g.locker.RefreshLock(ctx, instanceGuardKey, g.ttl)
}

// Release gives up the guard, e.g. during a graceful shutdown.
func (g *InstanceGuard) Release(ctx context.Context) error {
	return g.locker.ReleaseLock(ctx, instanceGuardKey)
}

// Run blocks heartbeating the guard at interval until ctx is cancelled.
// Intended to be launched in its own goroutine after a successful
// Acquire.
func (g *InstanceGuard) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.Heartbeat(ctx); err != nil {
				log.Printf("instance-guard: heartbeat failed: %v", err)
			}
		}
	}
}
