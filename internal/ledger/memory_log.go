package ledger

import (
	"context"
	"sort"
	"sync"
)

type memoryLog struct {
	mu       sync.RWMutex
	entries  []Entry
	byID     map[string]int
	byClient map[string]int // userID + "\x00" + clientTxID -> entries index
}

// NewMemoryLog constructs a concurrency-safe in-memory transaction log for
// development mode and unit tests.
func NewMemoryLog() Log {
	return &memoryLog{
		byID:     make(map[string]int),
		byClient: make(map[string]int),
	}
}

func clientKey(userID, clientTxID string) string {
	return userID + "\x00" + clientTxID
}

func (l *memoryLog) Append(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byID[entry.ID]; exists {
		return nil
	}
	l.entries = append(l.entries, entry)
	l.byID[entry.ID] = len(l.entries) - 1
	if entry.ClientTxID != "" {
		l.byClient[clientKey(entry.UserID, entry.ClientTxID)] = len(l.entries) - 1
	}
	return nil
}

func (l *memoryLog) Get(_ context.Context, id string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byID[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return l.entries[idx], nil
}

func (l *memoryLog) FindByClientTxID(_ context.Context, userID, clientTxID string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byClient[clientKey(userID, clientTxID)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return l.entries[idx], nil
}

func (l *memoryLog) ListByUser(_ context.Context, userID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var result []Entry
	for _, e := range l.entries {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (l *memoryLog) FindReversal(_ context.Context, originalID string) (Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, e := range l.entries {
		if e.ReversalOf == originalID {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}
