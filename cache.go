// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fhirsql

import (
	"sync"
)

// cacheKey identifies one assembled query: the same expression translated
// against a different resource type produces different SQL.
type cacheKey struct {
	resourceType string
	expr         string
}

// queryCache memoises assembled SQL per Translator. Translation is
// deterministic, so the cached text never goes stale; the cache only avoids
// re-walking trees that callers translate repeatedly, e.g. the same view
// definition applied to every incoming resource.
//
// The mutex must be held when accessing sql.
type queryCache struct {
	mutex sync.RWMutex
	sql   map[cacheKey]string
}

func newQueryCache() *queryCache {
	return &queryCache{sql: map[cacheKey]string{}}
}

// get returns the cached SQL for key, if present.
func (qc *queryCache) get(key cacheKey) (string, bool) {
	qc.mutex.RLock()
	defer qc.mutex.RUnlock()
	sql, ok := qc.sql[key]
	return sql, ok
}

// put stores the SQL for key. If another goroutine stored a value since the
// caller's lookup the existing value wins; both are products of the same
// deterministic translation.
func (qc *queryCache) put(key cacheKey, sql string) string {
	qc.mutex.Lock()
	defer qc.mutex.Unlock()
	if existing, ok := qc.sql[key]; ok {
		return existing
	}
	qc.sql[key] = sql
	return sql
}

// len reports the number of cached statements.
func (qc *queryCache) len() int {
	qc.mutex.RLock()
	defer qc.mutex.RUnlock()
	return len(qc.sql)
}
