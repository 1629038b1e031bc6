package utils

import (
	"context"
	"sync"
	"time"
)

// Single-flight guard: at most one mutating streak operation per user may be
// outstanding at a time. While one holds the lock, further attempts are
// rejected immediately with "still processing" rather than queued. Backed by
// Redis SETNX so the guard holds across instances; memory fallback otherwise.

const opLockTTL = 30 * time.Second

var (
	opLocks   = map[string]time.Time{}
	opLocksMu sync.Mutex
)

// OpLockTryAcquire takes the per-user operation lock. The TTL is a safety
// net against a crashed holder; normal release happens in OpLockRelease.
func OpLockTryAcquire(userID string) bool {
	key := "op:lock:" + userID
	// Stamp before the Redis attempt so the fallback window is measured from
	// call time, not from whenever the failed round trip returned.
	now := time.Now()
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if ok, err := rc.SetNX(ctx, key, "1", opLockTTL).Result(); err == nil {
			return ok
		}
	}
	opLocksMu.Lock()
	defer opLocksMu.Unlock()
	if until, held := opLocks[key]; held && now.Before(until) {
		return false
	}
	opLocks[key] = now.Add(opLockTTL)
	return true
}

// OpLockRelease frees the per-user operation lock. Must run on every exit
// path of a guarded operation, success or failure.
func OpLockRelease(userID string) {
	key := "op:lock:" + userID
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Del(ctx, key).Err(); err == nil {
			return
		}
	}
	opLocksMu.Lock()
	delete(opLocks, key)
	opLocksMu.Unlock()
}

// OpThrottleTry enforces the minimum interval between a user's actions to
// dampen double-submits. Returns false while the previous action is too
// recent. A UX damper only; correctness lives in the locked store mutation.
func OpThrottleTry(userID string, interval time.Duration) bool {
	if interval <= 0 {
		return true
	}
	key := "op:throttle:" + userID
	now := time.Now()
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if ok, err := rc.SetNX(ctx, key, "1", interval).Result(); err == nil {
			return ok
		}
	}
	opLocksMu.Lock()
	defer opLocksMu.Unlock()
	if until, seen := opLocks[key]; seen && now.Before(until) {
		return false
	}
	opLocks[key] = now.Add(interval)
	return true
}
