// Package feed serves a ranked product feed: items can be added, re-rated
// and removed, and read back in pages anchored either at a position or at an
// item.
//
// A Feed is not safe for concurrent use. Every operation either applies
// completely or fails with one of the package errors and leaves the feed
// untouched.
package feed

import (
	"fmt"
	"iter"

	"github.com/ddirect/rankfeed/ranked"
)

// MaxLimit is the largest page a single read may return.
const MaxLimit = 16

type Feed struct {
	items   *ranked.Map[uint64, Item, struct{}]
	retired map[uint64]struct{} // nil unless removed IDs are retired
}

type Option func(*Feed)

// WithRetiredIDs makes the feed refuse to add an identifier that was removed
// before.
func WithRetiredIDs() Option {
	return func(f *Feed) {
		f.retired = make(map[uint64]struct{})
	}
}

// withPriority is used by the tests to make the layout reproducible.
func withPriority(p func() uint64) Option {
	return func(f *Feed) {
		f.items = ranked.NewMapWithPriority[uint64, Item, struct{}](p)
	}
}

func New(opts ...Option) *Feed {
	f := &Feed{
		items: ranked.NewMap[uint64, Item, struct{}](),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) Len() int {
	return f.items.Len()
}

func (f *Feed) Add(item Item) error {
	if _, found := f.retired[item.ID]; found {
		return fmt.Errorf("add %d: %w", item.ID, ErrRetiredIdentifier)
	}
	if _, inserted := f.items.Insert(item.ID, item); !inserted {
		return fmt.Errorf("add %d: %w", item.ID, ErrDuplicateIdentifier)
	}
	return nil
}

// UpdateScore re-rates a present item.
func (f *Feed) UpdateScore(item Item) error {
	it := f.items.Get(item.ID)
	if !it.Present() {
		return fmt.Errorf("update %d: %w", item.ID, ErrUnknownIdentifier)
	}
	it.SetRank(item)
	return nil
}

func (f *Feed) RemoveByID(id uint64) error {
	if !f.items.Delete(id) {
		return fmt.Errorf("remove %d: %w", id, ErrUnknownIdentifier)
	}
	if f.retired != nil {
		f.retired[id] = struct{}{}
	}
	return nil
}

// PageByPosition returns up to limit IDs starting at the 0-based position.
func (f *Feed) PageByPosition(position, limit int) ([]uint64, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	if position < 0 || position >= f.Len() {
		return nil, fmt.Errorf("page at %d of %d: %w", position, f.Len(), ErrOutOfRange)
	}
	return page(f.items.At(position).MapItem, limit), nil
}

// PageByIdentifier returns up to limit IDs starting at the item with the given ID.
func (f *Feed) PageByIdentifier(id uint64, limit int) ([]uint64, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	it := f.items.Get(id)
	if !it.Present() {
		return nil, fmt.Errorf("page at id %d: %w", id, ErrUnknownIdentifier)
	}
	return page(it.MapItem, limit), nil
}

func checkLimit(limit int) error {
	if limit < 1 || limit > MaxLimit {
		return fmt.Errorf("limit %d not in [1,%d]: %w", limit, MaxLimit, ErrInvalidArgument)
	}
	return nil
}

func page(anchor *ranked.MapItem[uint64, Item, struct{}], limit int) []uint64 {
	ids := make([]uint64, 0, limit)
	for it := anchor; it != nil && len(ids) < limit; it = it.Next() {
		ids = append(ids, it.Key())
	}
	return ids
}

func (f *Feed) Get(id uint64) (Item, bool) {
	it := f.items.Get(id)
	if !it.Present() {
		return Item{}, false
	}
	return it.Rank(), true
}

// RankOf returns the 0-based position of the item with the given ID.
func (f *Feed) RankOf(id uint64) (int, error) {
	it := f.items.Get(id)
	if !it.Present() {
		return 0, fmt.Errorf("rank of %d: %w", id, ErrUnknownIdentifier)
	}
	return it.Position(), nil
}

// Items walks the whole feed in rank order.
func (f *Feed) Items() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for it := range f.items.All() {
			if !yield(it.Rank()) {
				return
			}
		}
	}
}

// Verify checks the internal consistency of the feed. It is meant for tests
// and debugging and costs O(n).
func (f *Feed) Verify() error {
	if err := f.items.Verify(); err != nil {
		return err
	}
	for it := range f.items.All() {
		if it.Key() != it.Rank().ID {
			return fmt.Errorf("feed: item %d indexed as %d", it.Rank().ID, it.Key())
		}
	}
	return nil
}
