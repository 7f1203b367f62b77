package protocol

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ddirect/rankfeed/feed"
)

const Banner = "Started"

type Response struct {
	Op  Op
	IDs []uint64 // only for pages
}

// Execute applies c to f.
func Execute(f *feed.Feed, c Command) (Response, error) {
	r := Response{Op: c.Op}
	var err error
	switch c.Op {
	case OpAdd:
		err = f.Add(feed.Item{ID: c.ID, Rating: c.Rating})
	case OpUpdate:
		err = f.UpdateScore(feed.Item{ID: c.ID, Rating: c.Rating})
	case OpRemove:
		err = f.RemoveByID(c.ID)
	case OpPageByPosition:
		r.IDs, err = f.PageByPosition(c.Position, c.Limit)
	case OpPageByID:
		r.IDs, err = f.PageByIdentifier(c.ID, c.Limit)
	default:
		err = fmt.Errorf("%w: unknown operation %s", ErrSyntax, c.Op)
	}
	return r, err
}

// AppendTo appends the response line, without the line terminator.
func (r Response) AppendTo(b []byte) []byte {
	switch r.Op {
	case OpAdd:
		return append(b, "Added"...)
	case OpUpdate:
		return append(b, "Updated"...)
	case OpRemove:
		return append(b, "Removed"...)
	case OpPageByPosition:
		b = append(b, "AtPos: "...)
	case OpPageByID:
		b = append(b, "AtId: "...)
	}
	for i, id := range r.IDs {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = strconv.AppendUint(b, id, 10)
	}
	return b
}

func (r Response) String() string {
	return string(r.AppendTo(nil))
}

// Result classifies the outcome of a command for metrics.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSyntax):
		return "syntax"
	case errors.Is(err, feed.ErrDuplicateIdentifier):
		return "duplicate"
	case errors.Is(err, feed.ErrUnknownIdentifier):
		return "unknown"
	case errors.Is(err, feed.ErrRetiredIdentifier):
		return "retired"
	case errors.Is(err, feed.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, feed.ErrInvalidArgument):
		return "invalid_argument"
	}
	return "error"
}
