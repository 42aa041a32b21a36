package messaging

import "sync"

// senderLocks serializes resolve-or-create per sender key. Two rapid first
// messages from one number would otherwise both see "no conversation" and
// each open a thread.
type senderLocks struct {
	mu    sync.Mutex
	locks map[string]*senderLock
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

func newSenderLocks() *senderLocks {
	return &senderLocks{locks: make(map[string]*senderLock)}
}

// Lock acquires the lock for the key and returns the release func. Entries
// are refcounted and removed once idle so the map stays bounded by the
// number of in-flight requests.
func (s *senderLocks) Lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &senderLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}
