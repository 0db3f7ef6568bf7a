// Package memory maintains running per-event-type aggregates that give the
// planner its historical context.
package memory

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/avely-dev/flowpulse/internal/domain/event"
)

// DefaultRecentPayloads caps the payload history kept per key.
const DefaultRecentPayloads = 100

// Snapshot is the aggregate state for one key (event type or error
// signature). It is returned by value; callers never share the store's
// internal state.
type Snapshot struct {
	Key            string          `json:"key"`
	Count          int64           `json:"count"`
	FirstSeen      time.Time       `json:"first_seen"`
	LastSeen       time.Time       `json:"last_seen"`
	MaxPriority    int             `json:"max_priority"`
	AvgPriority    float64         `json:"avg_priority"`
	RecentPayloads []event.Payload `json:"recent_payloads,omitempty"`
}

// ContextSummary renders a short human-readable description of the
// snapshot for reviewer prompts and notification bodies.
func (s Snapshot) ContextSummary() string {
	var parts []string
	if s.Count > 1 {
		parts = append(parts, fmt.Sprintf("This event has occurred %d times", s.Count))
	}
	if s.MaxPriority > 0 {
		parts = append(parts, fmt.Sprintf("Maximum priority seen: %d", s.MaxPriority))
	}
	if len(parts) == 0 {
		return "First occurrence"
	}
	return strings.Join(parts, "; ")
}

// entry is the mutable aggregate guarded by its shard lock.
type entry struct {
	count       int64
	firstSeen   time.Time
	lastSeen    time.Time
	maxPriority int
	sumPriority int64
	recent      []event.Payload
}

func (e *entry) snapshot(key string) Snapshot {
	recent := make([]event.Payload, len(e.recent))
	copy(recent, e.recent)

	return Snapshot{
		Key:            key,
		Count:          e.count,
		FirstSeen:      e.firstSeen,
		LastSeen:       e.lastSeen,
		MaxPriority:    e.maxPriority,
		AvgPriority:    float64(e.sumPriority) / float64(e.count),
		RecentPayloads: recent,
	}
}

const shardCount = 16

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Store is a sharded in-process aggregate store. All mutation for a given
// key is serialized by its shard lock, so concurrent Observe calls for the
// same event type never produce a torn snapshot and count reflects exactly
// the completed observations.
type Store struct {
	shards    [shardCount]*shard
	maxRecent int
}

// NewStore creates a Store keeping at most maxRecent payloads per key.
// maxRecent <= 0 selects DefaultRecentPayloads.
func NewStore(maxRecent int) *Store {
	if maxRecent <= 0 {
		maxRecent = DefaultRecentPayloads
	}
	s := &Store{maxRecent: maxRecent}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// Observe folds an event into the aggregate for its type and returns the
// post-update snapshot. Error events are additionally grouped under their
// derived signature so distinct failure modes of the same type stay
// distinguishable.
func (s *Store) Observe(ev event.Event, priority int) Snapshot {
	snap := s.observeKey(string(ev.Type), ev, priority)

	if ev.Type == event.TypeError {
		s.observeKey("sig:"+ev.Signature(), ev, priority)
	}

	return snap
}

func (s *Store) observeKey(key string, ev event.Event, priority int) Snapshot {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		e = &entry{firstSeen: ev.Timestamp}
		sh.entries[key] = e
	}

	e.count++
	e.lastSeen = ev.Timestamp
	if priority > e.maxPriority {
		e.maxPriority = priority
	}
	e.sumPriority += int64(priority)

	e.recent = append(e.recent, ev.Payload)
	if len(e.recent) > s.maxRecent {
		e.recent = e.recent[len(e.recent)-s.maxRecent:]
	}

	return e.snapshot(key)
}

// SnapshotFor returns the current aggregate for an event type.
// ok is false when the type has never been observed.
func (s *Store) SnapshotFor(t event.Type) (Snapshot, bool) {
	return s.snapshotKey(string(t))
}

// SignatureSnapshot returns the aggregate for an error signature.
func (s *Store) SignatureSnapshot(signature string) (Snapshot, bool) {
	return s.snapshotKey("sig:" + signature)
}

func (s *Store) snapshotKey(key string) (Snapshot, bool) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, ok := sh.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(key), true
}

// Snapshots returns the aggregates for all event-type keys, excluding
// signature groups.
func (s *Store) Snapshots() []Snapshot {
	return s.collect(func(key string) bool { return !strings.HasPrefix(key, "sig:") })
}

// SignatureSnapshots returns the aggregates for all error-signature groups,
// with the internal key prefix stripped.
func (s *Store) SignatureSnapshots() []Snapshot {
	snaps := s.collect(func(key string) bool { return strings.HasPrefix(key, "sig:") })
	for i := range snaps {
		snaps[i].Key = strings.TrimPrefix(snaps[i].Key, "sig:")
	}
	return snaps
}

func (s *Store) collect(keep func(string) bool) []Snapshot {
	var out []Snapshot
	for _, sh := range s.shards {
		sh.mu.RLock()
		for key, e := range sh.entries {
			if keep(key) {
				out = append(out, e.snapshot(key))
			}
		}
		sh.mu.RUnlock()
	}
	return out
}

// Consolidate drops every aggregate whose last observation is older than
// maxAge relative to now, and returns the number removed. Bounds memory in
// a long-running process.
func (s *Store) Consolidate(now time.Time, maxAge time.Duration) int {
	removed := 0
	cutoff := now.Add(-maxAge)

	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, e := range sh.entries {
			if e.lastSeen.Before(cutoff) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// UrgencyScore combines priority, repetition and recency into a 0-10 score.
// Repeats add up to 3 points; events seen within the last 5 minutes add 2,
// within 15 minutes add 1.
func UrgencyScore(priority int, count int64, recency time.Duration) float64 {
	score := float64(priority)

	if count > 1 {
		boost := float64(count) * 0.5
		if boost > 3 {
			boost = 3
		}
		score += boost
	}

	switch {
	case recency < 5*time.Minute:
		score += 2
	case recency < 15*time.Minute:
		score++
	}

	if score > 10 {
		return 10
	}
	return score
}
