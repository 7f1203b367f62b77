// Package rankedtree implements a treap keeping items sorted by rank, with
// subtree sizes for positional access and parent links for ordered walks.
package rankedtree

import (
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/ddirect/rankfeed"
	"github.com/ddirect/rankfeed/internal/priority"
)

// Tree is a randomized balanced search tree. Items with equal ranks are kept
// in insertion order. The zero value is an empty tree drawing priorities from
// the process-wide source.
type Tree[R rankfeed.Comparer[R], T, A any] struct {
	root     *Item[R, T, A]
	priority func() uint64
}

func New[R rankfeed.Comparer[R], T, A any]() *Tree[R, T, A] {
	return &Tree[R, T, A]{}
}

// NewWithPriority returns a tree drawing node priorities from p instead of the
// process-wide source.
func NewWithPriority[R rankfeed.Comparer[R], T, A any](p func() uint64) *Tree[R, T, A] {
	return &Tree[R, T, A]{priority: p}
}

func (t *Tree[R, T, A]) nextPriority() uint64 {
	if t.priority != nil {
		return t.priority()
	}
	return priority.Next()
}

func (t *Tree[R, T, A]) Len() int {
	return int(size(t.root))
}

func (t *Tree[R, T, A]) Clear() {
	release(t.root)
	t.root = nil
}

func release[R rankfeed.Comparer[R], T, A any](it *Item[R, T, A]) {
	if it == nil {
		return
	}
	release(it.left)
	release(it.right)
	it.setNotPresent()
}

func (t *Tree[R, T, A]) Insert(rank R, aux A) *Item[R, T, A] {
	item := &Item[R, T, A]{
		rank:     rank,
		aux:      aux,
		priority: t.nextPriority(),
	}

	// every node passed on the way down gains the new item in its subtree
	var parent *Item[R, T, A]
	link := &t.root
	for cur := *link; cur != nil && cur.priority >= item.priority; cur = *link {
		cur.size++
		parent = cur
		if rank.Before(cur.rank) {
			link = &cur.left
		} else {
			link = &cur.right
		}
	}

	item.left, item.right = split(*link, rank)
	item.adopt()
	item.parent = parent
	*link = item
	return item
}

func (t *Tree[R, T, A]) Delete(item *Item[R, T, A]) {
	if !item.Present() {
		panic(errors.New("rankedtree: deleting item not present in the tree"))
	}
	parent := item.parent
	merged := merge(item.left, item.right, parent)
	switch {
	case parent == nil:
		t.root = merged
	case parent.left == item:
		parent.left = merged
	default:
		parent.right = merged
	}
	for n := parent; n != nil; n = n.parent {
		n.size--
	}
	item.setNotPresent()
}

// SetRank moves the contents of item to a new node ranked by rank and returns
// it; item itself is no longer present afterwards.
func (t *Tree[R, T, A]) SetRank(item *Item[R, T, A], rank R) *Item[R, T, A] {
	t.Delete(item)
	moved := t.Insert(rank, item.aux)
	moved.Value = item.Value
	return moved
}

// split partitions the subtree it into the items not ranked after rank and
// the items ranked after it. Both results have a nil parent.
func split[R rankfeed.Comparer[R], T, A any](it *Item[R, T, A], rank R) (l, r *Item[R, T, A]) {
	var lTail, rTail *Item[R, T, A]
	lLink, rLink := &l, &r
	for it != nil {
		if rank.Before(it.rank) {
			*rLink = it
			it.parent = rTail
			rTail = it
			rLink = &it.left
			it = it.left
		} else {
			*lLink = it
			it.parent = lTail
			lTail = it
			lLink = &it.right
			it = it.right
		}
	}
	*lLink = nil
	*rLink = nil
	resize(lTail, nil)
	resize(rTail, nil)
	return
}

// merge joins l and r, where every item of l ranks before every item of r,
// and hangs the result below parent.
func merge[R rankfeed.Comparer[R], T, A any](l, r, parent *Item[R, T, A]) (root *Item[R, T, A]) {
	top := parent
	link := &root
	for l != nil && r != nil {
		if l.priority > r.priority {
			*link = l
			l.parent = parent
			parent = l
			link = &l.right
			l = l.right
		} else {
			*link = r
			r.parent = parent
			parent = r
			link = &r.left
			r = r.left
		}
	}
	rest := l
	if rest == nil {
		rest = r
	}
	*link = rest
	if rest != nil {
		rest.parent = parent
	}
	resize(parent, top)
	return
}

// resize recomputes the sizes from it up to, excluding, top.
func resize[R rankfeed.Comparer[R], T, A any](it, top *Item[R, T, A]) {
	for ; it != top; it = it.parent {
		it.size = 1 + size(it.left) + size(it.right)
	}
}

func (t *Tree[R, T, A]) First() *Item[R, T, A] {
	if t.root == nil {
		return nil
	}
	return leftmost(t.root)
}

func (t *Tree[R, T, A]) Last() *Item[R, T, A] {
	if t.root == nil {
		return nil
	}
	return rightmost(t.root)
}

// At returns the item at 0-based position i in rank order.
func (t *Tree[R, T, A]) At(i int) *Item[R, T, A] {
	if i < 0 || i >= t.Len() {
		panic(fmt.Errorf("rankedtree: position %d outside bounds [0,%d)", i, t.Len()))
	}
	it := t.root
	for {
		ls := int(size(it.left))
		switch {
		case i < ls:
			it = it.left
		case i == ls:
			return it
		default:
			i -= ls + 1
			it = it.right
		}
	}
}

// Index returns the position of a present item.
func (t *Tree[R, T, A]) Index(item *Item[R, T, A]) int {
	i := size(item.left)
	for it := item; it.parent != nil; it = it.parent {
		if it == it.parent.right {
			i += size(it.parent.left) + 1
		}
	}
	return int(i)
}

// Next returns the item following item in rank order, or nil.
func Next[R rankfeed.Comparer[R], T, A any](item *Item[R, T, A]) *Item[R, T, A] {
	if item.right != nil {
		return leftmost(item.right)
	}
	for item.parent != nil && item == item.parent.right {
		item = item.parent
	}
	return item.parent
}

// Prev returns the item preceding item in rank order, or nil.
func Prev[R rankfeed.Comparer[R], T, A any](item *Item[R, T, A]) *Item[R, T, A] {
	if item.left != nil {
		return rightmost(item.left)
	}
	for item.parent != nil && item == item.parent.left {
		item = item.parent
	}
	return item.parent
}

func (t *Tree[R, T, A]) Random(rnd *rand.Rand) *Item[R, T, A] {
	return t.At(rnd.IntN(t.Len()))
}

// Values walks all items in rank order. The yielded item may be deleted
// during the walk.
func (t *Tree[R, T, A]) Values() iter.Seq[*Item[R, T, A]] {
	return ValuesFrom(t.First())
}

// ValuesFrom walks the items in rank order starting at item, which may be nil.
func ValuesFrom[R rankfeed.Comparer[R], T, A any](item *Item[R, T, A]) iter.Seq[*Item[R, T, A]] {
	return func(yield func(*Item[R, T, A]) bool) {
		for it := item; it != nil; {
			next := Next(it)
			if !yield(it) {
				return
			}
			it = next
		}
	}
}

func (t *Tree[R, T, A]) RemoveOrdered() iter.Seq[*Item[R, T, A]] {
	return func(yield func(*Item[R, T, A]) bool) {
		for t.Len() > 0 {
			item := t.First()
			if !yield(item) {
				return
			}
			if item.Present() {
				t.Delete(item)
			}
		}
	}
}

func (t *Tree[R, T, A]) DeleteFirst() {
	t.Delete(t.First())
}

// Height is the number of nodes on the longest root to leaf path.
func (t *Tree[R, T, A]) Height() int {
	return height(t.root)
}

func height[R rankfeed.Comparer[R], T, A any](it *Item[R, T, A]) int {
	if it == nil {
		return 0
	}
	return 1 + max(height(it.left), height(it.right))
}

// Verify checks the structural invariants: rank order, subtree sizes, heap
// ordered priorities and parent links.
func (t *Tree[R, T, A]) Verify() error {
	if t.root != nil && t.root.parent != nil {
		return errors.New("rankedtree: root has a parent")
	}
	var prev *Item[R, T, A]
	_, err := verify(t.root, &prev)
	return err
}

func verify[R rankfeed.Comparer[R], T, A any](it *Item[R, T, A], prev **Item[R, T, A]) (uint, error) {
	if it == nil {
		return 0, nil
	}
	for _, c := range [...]*Item[R, T, A]{it.left, it.right} {
		if c == nil {
			continue
		}
		if c.parent != it {
			return 0, fmt.Errorf("rankedtree: child of %v does not link back to it", it.rank)
		}
		if c.priority > it.priority {
			return 0, fmt.Errorf("rankedtree: child of %v has a higher priority", it.rank)
		}
	}

	ls, err := verify(it.left, prev)
	if err != nil {
		return 0, err
	}
	if *prev != nil && it.rank.Before((*prev).rank) {
		return 0, fmt.Errorf("rankedtree: %v follows %v", it.rank, (*prev).rank)
	}
	*prev = it
	rs, err := verify(it.right, prev)
	if err != nil {
		return 0, err
	}

	if it.size != 1+ls+rs {
		return 0, fmt.Errorf("rankedtree: size of %v is %d, counted %d", it.rank, it.size, 1+ls+rs)
	}
	return it.size, nil
}
