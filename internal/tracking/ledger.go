package tracking

import (
	"time"

	"foodflow-backend/internal/models"
)

// Default ledger limits
const (
	DefaultLedgerTTL        = 2 * time.Hour
	DefaultLedgerMaxEntries = 1000
)

// ledgerEntry is the latest sample of one order plus when we received it
type ledgerEntry struct {
	Location   models.DeliveryLocation
	ReceivedAt time.Time
}

// ledger maps order id to its latest known location
// Not safe for concurrent use, the Aggregator lock guards it
type ledger struct {
	entries    map[string]*ledgerEntry
	ttl        time.Duration
	maxEntries int
	evictions  int64
}

func newLedger(ttl time.Duration, maxEntries int) *ledger {
	return &ledger{
		entries:    make(map[string]*ledgerEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

func (l *ledger) get(orderID string) (models.DeliveryLocation, bool) {
	entry, ok := l.entries[orderID]
	if !ok {
		return models.DeliveryLocation{}, false
	}
	return entry.Location, true
}

func (l *ledger) put(orderID string, loc models.DeliveryLocation, now time.Time) {
	l.entries[orderID] = &ledgerEntry{Location: loc, ReceivedAt: now}
}

func (l *ledger) remove(orderID string) {
	delete(l.entries, orderID)
}

func (l *ledger) reset() {
	l.entries = make(map[string]*ledgerEntry)
}

func (l *ledger) snapshot() map[string]models.DeliveryLocation {
	out := make(map[string]models.DeliveryLocation, len(l.entries))
	for orderID, entry := range l.entries {
		out[orderID] = entry.Location
	}
	return out
}

// evict drops expired entries, then the least recently updated ones while over capacity
// Protected orders (the watched one, the one just written) are never dropped
func (l *ledger) evict(now time.Time, protected ...string) int {
	removed := 0

	if l.ttl > 0 {
		for orderID, entry := range l.entries {
			if isProtected(orderID, protected) {
				continue
			}
			if now.Sub(entry.ReceivedAt) > l.ttl {
				delete(l.entries, orderID)
				removed++
			}
		}
	}

	if l.maxEntries > 0 {
		for len(l.entries) > l.maxEntries {
			if !l.evictOldest(protected) {
				break
			}
			removed++
		}
	}

	l.evictions += int64(removed)
	return removed
}

// evictOldest removes the least recently updated entry
func (l *ledger) evictOldest(protected []string) bool {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range l.entries {
		if isProtected(key, protected) {
			continue
		}
		if oldestKey == "" || entry.ReceivedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.ReceivedAt
		}
	}

	if oldestKey == "" {
		return false
	}
	delete(l.entries, oldestKey)
	return true
}

func isProtected(orderID string, protected []string) bool {
	for _, p := range protected {
		if p != "" && p == orderID {
			return true
		}
	}
	return false
}
