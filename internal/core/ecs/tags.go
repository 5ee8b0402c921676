package ecs

import "github.com/cespare/xxhash/v2"

// HashedString is a tag name with its precomputed xxhash.
type HashedString struct {
	hash uint64
	text string
}

func Hash(s string) HashedString {
	return HashedString{hash: xxhash.Sum64String(s), text: s}
}

func (h HashedString) Hash() uint64   { return h.hash }
func (h HashedString) String() string { return h.text }

// TagSet holds handler tags keyed by hash.
type TagSet map[uint64]HashedString

func NewTagSet(tags ...string) TagSet {
	ts := make(TagSet, len(tags))
	for _, t := range tags {
		ts.Add(Hash(t))
	}
	return ts
}

func (ts TagSet) Add(h HashedString) { ts[h.hash] = h }

func (ts TagSet) Has(h HashedString) bool {
	_, ok := ts[h.hash]
	return ok
}

// HasAll reports whether every tag in want is present.
func (ts TagSet) HasAll(want []HashedString) bool {
	for _, h := range want {
		if !ts.Has(h) {
			return false
		}
	}
	return true
}
