package siggate

import (
	"sync"
	"time"

	"github.com/platinummonkey/foldcore/pkg/folderrors"
)

// NonceStore remembers recently used nonces to reject replays. It is
// bounded: inserts past MaxSize evict the oldest entry by insertion order,
// and every call sweeps entries older than TTL.
type NonceStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	seen    map[string]time.Time
	order   []string // insertion order, for oldest-first eviction
}

// NewNonceStore builds a bounded, TTL-swept nonce store.
func NewNonceStore(ttl time.Duration, maxSize int) *NonceStore {
	return &NonceStore{
		ttl:     ttl,
		maxSize: maxSize,
		seen:    make(map[string]time.Time),
	}
}

// CheckAndInsert atomically rejects a nonce already present, otherwise
// records it. Every call first sweeps expired entries.
func (s *NonceStore) CheckAndInsert(nonce string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	if _, exists := s.seen[nonce]; exists {
		return folderrors.New(folderrors.KindNonceValidationFailed, "nonce already used", "nonce", nonce)
	}

	s.seen[nonce] = now
	s.order = append(s.order, nonce)

	for len(s.order) > s.maxSize {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}

	return nil
}

func (s *NonceStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	cutoff := now.Add(-s.ttl)
	keep := s.order[:0]
	for _, n := range s.order {
		if t, ok := s.seen[n]; ok && t.After(cutoff) {
			keep = append(keep, n)
		} else {
			delete(s.seen, n)
		}
	}
	s.order = keep
}

// Size returns the current number of remembered nonces.
func (s *NonceStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
