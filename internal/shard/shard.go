// Package shard splits an index into independently locked partitions.
package shard

import (
	"github.com/cespare/xxhash/v2"

	"github.com/gcbaptista/go-facet-search/index"
	"github.com/gcbaptista/go-facet-search/store"
)

// Shard pairs a document store with its inverted index.
// Locks are always taken store first, then index.
type Shard struct {
	ID    int
	Store *store.DocumentStore
	Index *index.InvertedIndex
}

// New creates an empty shard.
func New(id int) *Shard {
	return &Shard{
		ID:    id,
		Store: store.NewDocumentStore(),
		Index: index.NewInvertedIndex(),
	}
}

// Lock takes both write locks.
func (s *Shard) Lock() {
	s.Store.Mu.Lock()
	s.Index.Mu.Lock()
}

// Unlock releases both write locks.
func (s *Shard) Unlock() {
	s.Index.Mu.Unlock()
	s.Store.Mu.Unlock()
}

// RLock takes both read locks.
func (s *Shard) RLock() {
	s.Store.Mu.RLock()
	s.Index.Mu.RLock()
}

// RUnlock releases both read locks.
func (s *Shard) RUnlock() {
	s.Index.Mu.RUnlock()
	s.Store.Mu.RUnlock()
}

// Set is the ordered list of shards of one index.
type Set []*Shard

// NewSet creates n empty shards.
func NewSet(n int) Set {
	if n < 1 {
		n = 1
	}
	shards := make(Set, n)
	for i := range shards {
		shards[i] = New(i)
	}
	return shards
}

// Route returns the shard owning a document ID.
func (s Set) Route(documentID string) *Shard {
	return s[xxhash.Sum64String(documentID)%uint64(len(s))]
}

// RLockAll read-locks every shard in order, giving a consistent view of the index.
func (s Set) RLockAll() {
	for _, sh := range s {
		sh.RLock()
	}
}

// RUnlockAll releases the locks taken by RLockAll.
func (s Set) RUnlockAll() {
	for i := len(s) - 1; i >= 0; i-- {
		s[i].RUnlock()
	}
}

// DocCount returns the number of documents of every shard, in shard order.
func (s Set) DocCount() []int {
	counts := make([]int, len(s))
	for i, sh := range s {
		sh.Store.Mu.RLock()
		counts[i] = sh.Store.Len()
		sh.Store.Mu.RUnlock()
	}
	return counts
}
