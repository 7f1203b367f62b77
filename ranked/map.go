package ranked

import (
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/ddirect/rankfeed"
	"github.com/ddirect/rankfeed/internal/rankedtree"
)

type rankedTree[K comparable, R rankfeed.Comparer[R], V any] = rankedtree.Tree[R, V, K]
type rankedItem[K comparable, R rankfeed.Comparer[R], V any] = rankedtree.Item[R, V, K]

// Map indexes ranked items by a unique key. Items are kept sorted by rank,
// ties in insertion order, and can be reached by key or by position.
// It is not safe for concurrent use.
type Map[K comparable, R rankfeed.Comparer[R], V any] struct {
	r *rankedTree[K, R, V]
	m map[K]*rankedItem[K, R, V]
}

func NewMap[K comparable, R rankfeed.Comparer[R], V any]() *Map[K, R, V] {
	return &Map[K, R, V]{
		r: rankedtree.New[R, V, K](),
		m: make(map[K]*rankedItem[K, R, V]),
	}
}

// NewMapWithPriority is NewMap with the balancing priorities drawn from p.
func NewMapWithPriority[K comparable, R rankfeed.Comparer[R], V any](p func() uint64) *Map[K, R, V] {
	return &Map[K, R, V]{
		r: rankedtree.NewWithPriority[R, V, K](p),
		m: make(map[K]*rankedItem[K, R, V]),
	}
}

func (m *Map[K, R, V]) Len() int {
	return m.r.Len()
}

func (m *Map[K, R, V]) Clear() {
	m.r.Clear()
	clear(m.m)
}

// Insert adds key with the given rank unless it already exists. It returns
// the item for key and whether it was inserted; an existing item is left
// untouched.
func (m *Map[K, R, V]) Insert(key K, rank R) (MutableMapItem[K, R, V], bool) {
	item, found := m.m[key]
	if !found {
		item = m.insertItem(key, rank)
	}
	return m.mutableMapItem(item), !found
}

func (m *Map[K, R, V]) GetOrCreate(key K, rankIfCreated R) (MutableMapItem[K, R, V], bool) {
	item, found := m.m[key]
	if !found {
		item = m.insertItem(key, rankIfCreated)
	}
	return m.mutableMapItem(item), found
}

func (m *Map[K, R, V]) Set(key K, rank R, value V) MutableMapItem[K, R, V] {
	item, found := m.m[key]
	if found {
		item = m.setRank(item, rank)
	} else {
		item = m.insertItem(key, rank)
	}
	item.Value = value
	return m.mutableMapItem(item)
}

func (m *Map[K, R, V]) Get(key K) MutableMapItem[K, R, V] {
	return m.mutableMapItem(m.m[key])
}

func (m *Map[K, R, V]) Exists(key K) bool {
	_, ok := m.m[key]
	return ok
}

func (m *Map[K, R, V]) First() MutableMapItem[K, R, V] {
	return m.mutableMapItem(m.r.First())
}

// At returns the item at 0-based position i. It panics if i is out of range.
func (m *Map[K, R, V]) At(i int) MutableMapItem[K, R, V] {
	return m.mutableMapItem(m.r.At(i))
}

func (m *Map[K, R, V]) Random(rnd *rand.Rand) MutableMapItem[K, R, V] {
	return m.mutableMapItem(m.r.Random(rnd))
}

// All walks the items in rank order.
func (m *Map[K, R, V]) All() iter.Seq[*MapItem[K, R, V]] {
	return mapItems(m.r.Values())
}

// From walks the items in rank order, starting at it.
func (m *Map[K, R, V]) From(it *MapItem[K, R, V]) iter.Seq[*MapItem[K, R, V]] {
	if !it.Present() {
		return mapItems(rankedtree.ValuesFrom[R, V, K](nil))
	}
	return mapItems(rankedtree.ValuesFrom(listItem(it)))
}

func (m *Map[K, R, V]) RemoveOrdered() iter.Seq[*MapItem[K, R, V]] {
	return func(yield func(*MapItem[K, R, V]) bool) {
		for m.Len() > 0 {
			item := m.r.First()
			if !yield(mapItem(item)) {
				return
			}
			if item.Present() {
				m.deleteItem(item)
			}
		}
	}
}

func (m *Map[K, R, V]) Delete(key K) bool {
	if item := m.Get(key); item.Present() {
		item.Delete()
		return true
	}
	return false
}

func (m *Map[K, R, V]) DeleteFirst() {
	m.deleteItem(m.r.First())
}

// Verify checks the tree invariants and that the key index holds exactly one
// entry per item, pointing at it.
func (m *Map[K, R, V]) Verify() error {
	if err := m.r.Verify(); err != nil {
		return err
	}
	if len(m.m) != m.r.Len() {
		return fmt.Errorf("ranked: %d keys indexed for %d items", len(m.m), m.r.Len())
	}
	for item := range m.r.Values() {
		if m.m[item.Auxiliary()] != item {
			return fmt.Errorf("ranked: key %v does not index its item", item.Auxiliary())
		}
	}
	return nil
}

func (m *Map[K, R, V]) insertItem(key K, rank R) *rankedItem[K, R, V] {
	item := m.r.Insert(rank, key)
	m.m[key] = item
	return item
}

func (m *Map[K, R, V]) setRank(item *rankedItem[K, R, V], rank R) *rankedItem[K, R, V] {
	moved := m.r.SetRank(item, rank)
	m.m[moved.Auxiliary()] = moved
	return moved
}

func (m *Map[K, R, V]) deleteItem(item *rankedItem[K, R, V]) {
	delete(m.m, item.Auxiliary())
	m.r.Delete(item)
}

func mapItems[K comparable, R rankfeed.Comparer[R], V any](it iter.Seq[*rankedItem[K, R, V]]) iter.Seq[*MapItem[K, R, V]] {
	return func(yield func(*MapItem[K, R, V]) bool) {
		for item := range it {
			if !yield(mapItem(item)) {
				return
			}
		}
	}
}
