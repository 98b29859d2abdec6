// Copyright 2025 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package fhirsql_test

import (
	"sync"

	. "gopkg.in/check.v1"

	"github.com/canonical/fhirsql"
	"github.com/canonical/fhirsql/fhirpath"
)

type CacheSuite struct{}

var _ = Suite(&CacheSuite{})

func newTranslator() *fhirsql.Translator {
	return fhirsql.NewTranslator(fhirsql.NewResolver(fhirsql.R4Lite()), fhirsql.SQLite())
}

func (s *CacheSuite) TestRepeatedAssemblyIsCached(c *C) {
	translator := newTranslator()
	expr := chain("name", "given")

	first, err := translator.AssembleQuery(expr, "Patient")
	c.Assert(err, IsNil)
	c.Assert(translator.CacheLen(), Equals, 1)

	second, err := translator.AssembleQuery(expr, "Patient")
	c.Assert(err, IsNil)
	c.Check(second, Equals, first)
	c.Check(translator.CacheLen(), Equals, 1)
}

func (s *CacheSuite) TestCacheKeyIncludesResourceType(c *C) {
	translator := newTranslator()
	expr := chain("identifier")

	patient, err := translator.AssembleQuery(expr, "Patient")
	c.Assert(err, IsNil)
	observation, err := translator.AssembleQuery(expr, "Observation")
	c.Assert(err, IsNil)

	c.Check(patient, Not(Equals), observation)
	c.Check(translator.CacheLen(), Equals, 2)
}

func (s *CacheSuite) TestCacheKeyIncludesTypeHints(c *C) {
	// Two trees differing only in a segment's type hint translate
	// differently, so they must occupy distinct cache entries.
	translator := fhirsql.NewTranslator(fhirsql.NewResolver(fhirsql.R4Lite()), fhirsql.DuckDB())

	plain, err := translator.AssembleQuery(ident("deceased"), "Patient")
	c.Assert(err, IsNil)
	hinted, err := translator.AssembleQuery(
		&fhirpath.Identifier{Name: "deceased", TypeHint: "Quantity"}, "Patient")
	c.Assert(err, IsNil)

	c.Check(plain, Not(Equals), hinted)
	c.Check(translator.CacheLen(), Equals, 2)
}

func (s *CacheSuite) TestFailedTranslationIsNotCached(c *C) {
	translator := newTranslator()

	_, err := translator.AssembleQuery(call(chain("name"), "frobnicate"), "Patient")
	c.Assert(err, NotNil)
	c.Check(translator.CacheLen(), Equals, 0)

	_, err = translator.AssembleQuery(call(chain("name"), "frobnicate"), "Patient")
	c.Assert(err, NotNil)
	c.Check(translator.CacheLen(), Equals, 0)
}

func (s *CacheSuite) TestConcurrentAssembly(c *C) {
	translator := newTranslator()
	expr := chain("name", "given")

	want, err := translator.AssembleQuery(expr, "Patient")
	c.Assert(err, IsNil)

	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := translator.AssembleQuery(expr, "Patient")
			if err == nil {
				results[i] = got
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		c.Check(got, Equals, want, Commentf("goroutine %d", i))
	}
	c.Check(translator.CacheLen(), Equals, 1)
}
