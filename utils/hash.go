package utils

import (
	"github.com/benbjohnson/immutable"
)

type (
	// Hashable is implemented by values used as keys of persistent maps.
	Hashable interface {
		Hash() uint32
	}
	// HashableEq is a Hashable with an equality relation consistent with
	// its hash.
	HashableEq[T any] interface {
		Hashable
		Equal(T) bool
	}

	hashableHasher[T HashableEq[T]] struct{}
)

// Equal compares two keys with their Equal method.
func (hashableHasher[T]) Equal(a, b T) bool { return a.Equal(b) }

// Hash computes the hash of a key with its Hash method.
func (hashableHasher[T]) Hash(a T) uint32 { return a.Hash() }

// HashableHasher adapts the Hash and Equal methods of T to immutable.Hasher.
func HashableHasher[T HashableEq[T]]() immutable.Hasher[T] { return hashableHasher[T]{} }

// NewImmMap creates an empty persistent map keyed by K.
func NewImmMap[K HashableEq[K], V any]() *immutable.Map[K, V] {
	return immutable.NewMap[K, V](HashableHasher[K]())
}

// HashCombine mixes hashes in order, so permuted inputs give different
// results.
func HashCombine(hs ...uint32) (seed uint32) {
	for _, v := range hs {
		seed = v + 0x9e3779b9 + (seed << 6) + (seed >> 2)
	}
	return
}
