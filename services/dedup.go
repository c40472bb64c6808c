package services

import (
	"strings"
	"sync"
	"time"

	"support-bot/models"
)

// DedupStore recognizes webhook redeliveries. The check-and-record step is
// atomic: two concurrent deliveries of the same message see exactly one
// non-duplicate result between them.
type DedupStore interface {
	// Seen reports whether this message was already handled and records it
	// as handled when it was not. It never fails; malformed input counts as
	// never-seen so a real message is never dropped.
	Seen(waID, text, messageID string, now time.Time) bool
	Snapshot() []models.DedupRecord
	Clear()
}

// MemoryDedupStore is the in-process DedupStore. Keys are derived from the
// provider message id when present, otherwise from the normalized text within
// a trailing window. The store holds at most maxEntries records and evicts
// oldest-first.
type MemoryDedupStore struct {
	mu         sync.Mutex
	window     time.Duration
	maxEntries int
	seen       map[string]time.Time
	order      []string // insertion order, oldest first
}

func NewMemoryDedupStore(window time.Duration, maxEntries int) *MemoryDedupStore {
	if window <= 0 {
		window = 60 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 5000
	}
	return &MemoryDedupStore{
		window:     window,
		maxEntries: maxEntries,
		seen:       make(map[string]time.Time),
	}
}

func (s *MemoryDedupStore) Seen(waID, text, messageID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if messageID != "" {
		key := waID + "|id|" + messageID
		if _, ok := s.seen[key]; ok {
			return true
		}
		s.record(key, now)
		return false
	}

	normalized := normalizeText(text)
	if normalized == "" {
		// Empty text is never a duplicate.
		return false
	}

	key := waID + "|text|" + normalized
	if first, ok := s.seen[key]; ok && now.Sub(first) <= s.window {
		return true
	}
	s.record(key, now)
	return false
}

// record inserts a key and evicts the oldest entries past the cap. Re-recording
// an expired text key refreshes its timestamp without growing the order list
// twice.
func (s *MemoryDedupStore) record(key string, now time.Time) {
	if _, ok := s.seen[key]; !ok {
		s.order = append(s.order, key)
	}
	s.seen[key] = now

	for len(s.order) > s.maxEntries {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}
}

func (s *MemoryDedupStore) Snapshot() []models.DedupRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.DedupRecord, 0, len(s.order))
	for _, key := range s.order {
		if first, ok := s.seen[key]; ok {
			records = append(records, models.DedupRecord{Key: key, FirstSeen: first})
		}
	}
	return records
}

func (s *MemoryDedupStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = make(map[string]time.Time)
	s.order = nil
}

// normalizeText lowercases and collapses whitespace so provider retries with
// cosmetic differences still match.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
