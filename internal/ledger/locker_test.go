package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestUniqueSorted(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{in: []string{"b", "a"}, want: []string{"a", "b"}},
		{in: []string{"a", "a"}, want: []string{"a"}},
		{in: []string{"c"}, want: []string{"c"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, uniqueSorted(tt.in)); diff != "" {
			t.Errorf("uniqueSorted(%v) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestAccountLockerReleasesEntries(t *testing.T) {
	l := newAccountLocker()
	unlock := l.lock("222222222222", "111111111111")
	if l.size() != 2 {
		t.Fatalf("expected 2 lock entries, got %d", l.size())
	}
	unlock()
	if l.size() != 0 {
		t.Errorf("expected lock table to be empty, got %d", l.size())
	}

	// Locking the same number twice must not deadlock.
	l.lock("111111111111", "111111111111")()
}

func TestAccountLockerExcludes(t *testing.T) {
	l := newAccountLocker()
	unlock := l.lock("111111111111")

	acquired := make(chan struct{})
	go func() {
		l.lock("222222222222", "111111111111")()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestAccountLockerOppositeOrderDoesNotDeadlock(t *testing.T) {
	l := newAccountLocker()
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.lock("111111111111", "222222222222")()
		}()
		go func() {
			defer wg.Done()
			l.lock("222222222222", "111111111111")()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock between opposite lock orders")
	}
	if l.size() != 0 {
		t.Errorf("expected lock table to be empty, got %d", l.size())
	}
}
