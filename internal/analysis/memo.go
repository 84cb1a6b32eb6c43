package analysis

import (
	"os"
	"sync"
	"time"
)

// fileMemo 파일 경로 + 수정 시각 기준 메모이제이션
// 파일이 바뀌면(mtime 변경) 다시 읽음
type fileMemo[T any] struct {
	mu      sync.Mutex
	entries map[string]memoEntry[T]
	load    func(path string) (T, error)
}

type memoEntry[T any] struct {
	modTime time.Time
	value   T
}

func newFileMemo[T any](load func(path string) (T, error)) *fileMemo[T] {
	return &fileMemo[T]{
		entries: make(map[string]memoEntry[T]),
		load:    load,
	}
}

// Get returns the value for path and the file modification time
func (m *fileMemo[T]) Get(path string) (T, time.Time, bool, error) {
	var zero T

	info, err := os.Stat(path)
	if err != nil {
		return zero, time.Time{}, false, err
	}
	modTime := info.ModTime()

	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[path]; ok && e.modTime.Equal(modTime) {
		return e.value, modTime, true, nil
	}

	v, err := m.load(path)
	if err != nil {
		return zero, time.Time{}, false, err
	}
	m.entries[path] = memoEntry[T]{modTime: modTime, value: v}
	return v, modTime, false, nil
}

// Forget drops every memoized entry
func (m *fileMemo[T]) Forget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoEntry[T])
}
