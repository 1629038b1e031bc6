package utils

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Per-IP abuse limits shared by registration and password-reset requests:
// a short cooldown between attempts and a daily cap. Redis first, memory
// fallback for single-instance deployments without Redis.

type abuseEntry struct {
	count     int
	expiresAt time.Time
}

var (
	abuseStore   = map[string]abuseEntry{}
	abuseStoreMu sync.Mutex
)

// AbuseCooldownTry acquires the per-IP cooldown for an action. Returns false
// while a previous attempt is still cooling down.
func AbuseCooldownTry(action, ip string, cooldown time.Duration) bool {
	key := "abuse:cooldown:" + action + ":" + ip
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if ok, err := rc.SetNX(ctx, key, "1", cooldown).Result(); err == nil {
			return ok
		}
	}
	abuseStoreMu.Lock()
	defer abuseStoreMu.Unlock()
	if e, ok := abuseStore[key]; ok && time.Now().Before(e.expiresAt) {
		return false
	}
	abuseStore[key] = abuseEntry{expiresAt: time.Now().Add(cooldown)}
	return true
}

// AbuseDailyAllow checks the per-IP daily cap for an action without
// incrementing it.
func AbuseDailyAllow(action, ip string, limit int) bool {
	if limit <= 0 {
		return true
	}
	return abuseDailyCount(action, ip) < limit
}

// AbuseDailyIncrement records one successful action for today's cap.
func AbuseDailyIncrement(action, ip string) {
	key := abuseDailyKey(action, ip)
	ttl := time.Until(nextMidnight())
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := rc.Incr(ctx, key).Result(); err == nil {
			if n == 1 {
				_ = rc.Expire(ctx, key, ttl).Err()
			}
			return
		}
	}
	abuseStoreMu.Lock()
	defer abuseStoreMu.Unlock()
	e := abuseStore[key]
	if time.Now().After(e.expiresAt) {
		e = abuseEntry{expiresAt: nextMidnight()}
	}
	e.count++
	abuseStore[key] = e
}

func abuseDailyCount(action, ip string) int {
	key := abuseDailyKey(action, ip)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.Get(ctx, key).Result(); err == nil {
			n, _ := strconv.Atoi(v)
			return n
		}
	}
	abuseStoreMu.Lock()
	defer abuseStoreMu.Unlock()
	e, ok := abuseStore[key]
	if !ok || time.Now().After(e.expiresAt) {
		return 0
	}
	return e.count
}

func abuseDailyKey(action, ip string) string {
	return "abuse:daily:" + action + ":" + ip + ":" + time.Now().Format("2006-01-02")
}

func nextMidnight() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
}
