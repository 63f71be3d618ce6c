// Copyright 2025, WebdriverIO Contributors.
// SPDX-License-Identifier: MIT

package utilds

import "sync"

// SyncMap is a mutex-guarded map used for the connection's listener and
// pending-command registries.
type SyncMap[K comparable, T any] struct {
	lock *sync.Mutex
	m    map[K]T
}

func MakeSyncMap[K comparable, T any]() *SyncMap[K, T] {
	return &SyncMap[K, T]{
		lock: &sync.Mutex{},
		m:    make(map[K]T),
	}
}

func (sm *SyncMap[K, T]) Set(key K, value T) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	sm.m[key] = value
}

func (sm *SyncMap[K, T]) GetEx(key K) (T, bool) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	v, ok := sm.m[key]
	return v, ok
}

func (sm *SyncMap[K, T]) Delete(key K) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	delete(sm.m, key)
}

// DeleteEx deletes key and returns the value it held, if any.
func (sm *SyncMap[K, T]) DeleteEx(key K) (T, bool) {
	sm.lock.Lock()
	defer sm.lock.Unlock()
	v, ok := sm.m[key]
	if ok {
		delete(sm.m, key)
	}
	return v, ok
}

// Keys returns a slice of all keys in the map
func (sm *SyncMap[K, T]) Keys() []K {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	keys := make([]K, 0, len(sm.m))
	for k := range sm.m {
		keys = append(keys, k)
	}

	return keys
}

// Len returns the number of items in the map
func (sm *SyncMap[K, T]) Len() int {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	return len(sm.m)
}

// Clear removes all entries and returns the values that were present.
func (sm *SyncMap[K, T]) Clear() []T {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	vals := make([]T, 0, len(sm.m))
	for _, v := range sm.m {
		vals = append(vals, v)
	}
	sm.m = make(map[K]T)
	return vals
}
