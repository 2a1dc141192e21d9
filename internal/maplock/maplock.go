package maplock

import "sync"

// MapLock holds one mutex per key. Entries are removed when no goroutine
// holds or waits for them.
type MapLock struct {
	locks map[string]*entry
	m     sync.Mutex
}

type entry struct {
	sync.Mutex
	refs int
}

func New() *MapLock {
	return &MapLock{
		locks: make(map[string]*entry),
	}
}

func (m *MapLock) Lock(key string) {
	m.m.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = new(entry)
		m.locks[key] = l
	}
	l.refs++
	m.m.Unlock()
	l.Lock()
}

func (m *MapLock) Unlock(key string) {
	m.m.Lock()
	l := m.locks[key]
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
	m.m.Unlock()
	l.Unlock()
}

// Len returns the number of keys currently locked or waited on.
func (m *MapLock) Len() int {
	m.m.Lock()
	defer m.m.Unlock()
	return len(m.locks)
}
