// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fhirsql

// CacheLen reports the number of assembled statements held by the
// translator's cache, for tests.
func (t *Translator) CacheLen() int {
	return t.cache.len()
}
