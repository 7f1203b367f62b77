package feed

// Item is one ranked product card. Lower ratings rank first; equal ratings
// rank by ID.
type Item struct {
	ID     uint64
	Rating uint16
}

func (a Item) Before(b Item) bool {
	if a.Rating != b.Rating {
		return a.Rating < b.Rating
	}
	return a.ID < b.ID
}
