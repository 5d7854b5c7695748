package service

import "sync"

// recordLocks serializes mutations of a single record's tier fields
// (hdfs_path, local_path, upload_status). Concurrent retry and delete on the
// same record would otherwise race into states where the metadata disagrees
// with what each tier actually holds. Operations on different record ids
// proceed concurrently.
type recordLocks struct {
	mu sync.Mutex
	m  map[int64]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

func newRecordLocks() *recordLocks {
	return &recordLocks{m: make(map[int64]*recordLock)}
}

// lock acquires the mutex for id and returns the matching unlock function.
// Entries are reference-counted and removed once the last holder releases,
// so the map does not grow with the total number of records ever touched.
func (l *recordLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	e := l.m[id]
	if e == nil {
		e = &recordLock{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
