package ranked

import (
	"github.com/ddirect/rankfeed"
	"github.com/ddirect/rankfeed/internal/rankedtree"
)

type MapItem[K comparable, R rankfeed.Comparer[R], V any] rankedtree.Item[R, V, K]

// MutableMapItem is a handle which can also move or delete its item.
// Moving replaces the underlying item: other handles to it stop being present.
type MutableMapItem[K comparable, R rankfeed.Comparer[R], V any] struct {
	*MapItem[K, R, V]
	parent *Map[K, R, V]
}

func (m *Map[K, R, V]) mutableMapItem(item *rankedItem[K, R, V]) MutableMapItem[K, R, V] {
	return MutableMapItem[K, R, V]{mapItem(item), m}
}

func mapItem[K comparable, R rankfeed.Comparer[R], V any](item *rankedItem[K, R, V]) *MapItem[K, R, V] {
	return (*MapItem[K, R, V])(item)
}

func listItem[K comparable, R rankfeed.Comparer[R], V any](it *MapItem[K, R, V]) *rankedItem[K, R, V] {
	return (*rankedItem[K, R, V])(it)
}

func (it *MapItem[K, R, V]) Present() bool {
	return listItem(it).Present()
}

func (it *MapItem[K, R, V]) Key() K {
	return listItem(it).Auxiliary()
}

func (it *MapItem[K, R, V]) Rank() R {
	return listItem(it).Rank()
}

// Next returns the item following it in rank order, or nil.
func (it *MapItem[K, R, V]) Next() *MapItem[K, R, V] {
	return mapItem(rankedtree.Next(listItem(it)))
}

func (it MutableMapItem[K, R, V]) Position() int {
	return it.parent.r.Index(listItem(it.MapItem))
}

func (it *MutableMapItem[K, R, V]) SetRank(rank R) {
	it.MapItem = mapItem(it.parent.setRank(listItem(it.MapItem), rank))
}

func (it MutableMapItem[K, R, V]) Delete() {
	it.parent.deleteItem(listItem(it.MapItem))
}
