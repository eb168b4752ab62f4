/*
Package lock provides roastery.Locker implementations.

  Local  in-process keyed mutex. Enough for a single server instance.
  Redis  distributed lock on github.com/bsm/redislock, for several instances
         sharing one database.

Both take keys in ascending order and release them all if any one cannot be
obtained, so two callers locking overlapping key sets never deadlock.

USAGE:
  unlock, err := locker.Lock(ctx, "roast:3", "roast:7")
  if err != nil {
      return err
  }
  defer unlock()
*/
package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotObtained is returned when a lock could not be taken before the
// context ended or the retry budget ran out.
var ErrNotObtained = errors.New("lock not obtained")

// sortedKeys returns the distinct keys in ascending order.
func sortedKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// LOCAL
// =============================================================================

// Local is a keyed mutex. Entries are dropped once nobody holds or waits
// for them.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Lock blocks until every key is held or ctx is done.
func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = sortedKeys(keys)
	held := make([]string, 0, len(keys))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}

	for _, key := range keys {
		s := l.acquireSlot(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.releaseSlot(key)
			release()
			return nil, errors.Join(ErrNotObtained, ctx.Err())
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Local) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) releaseSlot(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *Local) unlock(key string) {
	l.mu.Lock()
	s := l.slots[key]
	l.mu.Unlock()
	<-s.ch
	l.releaseSlot(key)
}

// held reports how many keys currently have an entry. For tests.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
