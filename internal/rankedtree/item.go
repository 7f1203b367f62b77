package rankedtree

import (
	"github.com/ddirect/rankfeed"
)

type Item[R rankfeed.Comparer[R], T, A any] struct {
	Value T

	rank R
	aux  A

	left, right *Item[R, T, A]
	parent      *Item[R, T, A] // back-reference only, nil for the root

	size     uint // nodes in the subtree rooted here - if zero, the item does not belong to the container
	priority uint64
}

func (it *Item[R, T, A]) Rank() R {
	return it.rank
}

func (it *Item[R, T, A]) Auxiliary() A {
	return it.aux
}

func (it *Item[R, T, A]) Present() bool {
	return it != nil && it.size > 0
}

func (it *Item[R, T, A]) setNotPresent() {
	it.left = nil
	it.right = nil
	it.parent = nil
	it.size = 0
}

func size[R rankfeed.Comparer[R], T, A any](it *Item[R, T, A]) uint {
	if it == nil {
		return 0
	}
	return it.size
}

// adopt recomputes the size of it and points the children back at it.
func (it *Item[R, T, A]) adopt() {
	it.size = 1 + size(it.left) + size(it.right)
	if it.left != nil {
		it.left.parent = it
	}
	if it.right != nil {
		it.right.parent = it
	}
}

func leftmost[R rankfeed.Comparer[R], T, A any](it *Item[R, T, A]) *Item[R, T, A] {
	for it.left != nil {
		it = it.left
	}
	return it
}

func rightmost[R rankfeed.Comparer[R], T, A any](it *Item[R, T, A]) *Item[R, T, A] {
	for it.right != nil {
		it = it.right
	}
	return it
}
