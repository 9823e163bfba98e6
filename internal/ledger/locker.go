package ledger

import (
	"sort"
	"sync"
)

// accountLocker serialises work per account number. Entries are reference
// counted and removed once nobody holds or waits for them.
type accountLocker struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocker() *accountLocker {
	return &accountLocker{locks: make(map[string]*accountLock)}
}

// lock acquires the locks of all given account numbers in lexicographic order
// and returns a function that releases them. Duplicates are locked once.
func (l *accountLocker) lock(accountNumbers ...string) (unlock func()) {
	keys := uniqueSorted(accountNumbers)
	held := make([]*accountLock, 0, len(keys))
	for _, key := range keys {
		held = append(held, l.acquire(key))
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(keys[i], held[i])
		}
	}
}

func (l *accountLocker) acquire(key string) *accountLock {
	l.mu.Lock()
	al, ok := l.locks[key]
	if !ok {
		al = &accountLock{}
		l.locks[key] = al
	}
	al.refs++
	l.mu.Unlock()

	al.mu.Lock()
	return al
}

func (l *accountLocker) release(key string, al *accountLock) {
	al.mu.Unlock()

	l.mu.Lock()
	al.refs--
	if al.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

func (l *accountLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func uniqueSorted(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
