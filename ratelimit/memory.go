package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 64

type shard struct {
	mu        sync.Mutex
	logs      map[string][]time.Time
	lastSweep time.Time
}

// Memory is an in-process Limiter. Requests for the same identity serialize
// on one shard lock; unrelated identities contend only when they hash to the
// same shard. Each shard drops idle identities at most once per window, on
// the first Allow that lands on it after the window has passed.
type Memory struct {
	config Config
	shards [shardCount]shard
}

// NewMemory returns an in-process limiter for cfg.
func NewMemory(cfg Config) (*Memory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Memory{config: cfg}
	for i := range m.shards {
		m.shards[i].logs = make(map[string][]time.Time)
	}
	return m, nil
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, identityID string, now time.Time) error {
	s := m.shardFor(identityID)
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-m.config.Window)
	if now.Sub(s.lastSweep) >= m.config.Window {
		s.sweep(cutoff)
		s.lastSweep = now
	}

	log := prune(s.logs[identityID], cutoff)
	if len(log) >= m.config.Max {
		s.logs[identityID] = log
		return &ExceededError{RetryAfter: m.config.RetryAfter()}
	}
	s.logs[identityID] = append(log, now)
	return nil
}

// Count returns the number of timestamps inside the window ending at now.
func (m *Memory) Count(identityID string, now time.Time) int {
	s := m.shardFor(identityID)
	s.mu.Lock()
	defer s.mu.Unlock()
	log := prune(s.logs[identityID], now.Add(-m.config.Window))
	if len(log) == 0 {
		delete(s.logs, identityID)
		return 0
	}
	s.logs[identityID] = log
	return len(log)
}

// sweep drops identities with no timestamp after cutoff. Callers hold s.mu.
func (s *shard) sweep(cutoff time.Time) {
	for id, log := range s.logs {
		if kept := prune(log, cutoff); len(kept) > 0 {
			s.logs[id] = kept
		} else {
			delete(s.logs, id)
		}
	}
}

func (m *Memory) shardFor(identityID string) *shard {
	return &m.shards[xxhash.Sum64String(identityID)%shardCount]
}

// prune keeps the timestamps after cutoff. Callers read the clock before
// taking the shard lock, so the log is not guaranteed to be in time order.
func prune(log []time.Time, cutoff time.Time) []time.Time {
	kept := log[:0]
	for _, ts := range log {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}
