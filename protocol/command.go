// Package protocol drives a feed with the line oriented command language:
//
//	i <id> <rating>      add
//	u <id> <rating>      update the rating
//	r <id>               remove
//	p <position> <limit> page by position
//	g <id> <limit>       page by identifier
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ddirect/rankfeed/feed"
)

const (
	MinID     = 1
	MaxID     = 10_000_000
	MinRating = 1
	MaxRating = 65535
)

var (
	ErrSyntax         = errors.New("syntax error")
	ErrTruncatedInput = errors.New("fewer commands than announced")
)

type Op byte

const (
	OpAdd            Op = 'i'
	OpUpdate         Op = 'u'
	OpRemove         Op = 'r'
	OpPageByPosition Op = 'p'
	OpPageByID       Op = 'g'
)

var opNames = map[Op]string{
	OpAdd:            "add",
	OpUpdate:         "update",
	OpRemove:         "remove",
	OpPageByPosition: "page_by_position",
	OpPageByID:       "page_by_id",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%q)", byte(o))
}

type Command struct {
	Op       Op
	ID       uint64
	Rating   uint16
	Position int
	Limit    int
}

func (c Command) String() string {
	switch c.Op {
	case OpAdd, OpUpdate:
		return fmt.Sprintf("%c %d %d", c.Op, c.ID, c.Rating)
	case OpRemove:
		return fmt.Sprintf("%c %d", c.Op, c.ID)
	case OpPageByPosition:
		return fmt.Sprintf("%c %d %d", c.Op, c.Position, c.Limit)
	case OpPageByID:
		return fmt.Sprintf("%c %d %d", c.Op, c.ID, c.Limit)
	}
	return c.Op.String()
}

// ParseError reports a malformed input line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes a single command. Numbers are checked against the protocol
// domains; the page limit is left to the feed.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields[0]) != 1 {
		return Command{}, fmt.Errorf("%w: missing operation", ErrSyntax)
	}

	c := Command{Op: Op(fields[0][0])}
	args := fields[1:]

	want := 2
	if c.Op == OpRemove {
		want = 1
	}
	if _, known := opNames[c.Op]; !known {
		return Command{}, fmt.Errorf("%w: unknown operation %q", ErrSyntax, fields[0])
	}
	if len(args) != want {
		return Command{}, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrSyntax, c.Op, want, len(args))
	}

	var err error
	switch c.Op {
	case OpAdd, OpUpdate:
		if c.ID, err = parseID(args[0]); err != nil {
			return Command{}, err
		}
		rating, err := parseRange(args[1], "rating", MinRating, MaxRating)
		if err != nil {
			return Command{}, err
		}
		c.Rating = uint16(rating)
	case OpRemove:
		if c.ID, err = parseID(args[0]); err != nil {
			return Command{}, err
		}
	case OpPageByPosition:
		position, err := parseRange(args[0], "position", 0, MaxID)
		if err != nil {
			return Command{}, err
		}
		c.Position = int(position)
		if c.Limit, err = parseLimit(args[1]); err != nil {
			return Command{}, err
		}
	case OpPageByID:
		if c.ID, err = parseID(args[0]); err != nil {
			return Command{}, err
		}
		if c.Limit, err = parseLimit(args[1]); err != nil {
			return Command{}, err
		}
	}
	return c, nil
}

func parseID(s string) (uint64, error) {
	return parseRange(s, "id", MinID, MaxID)
}

func parseRange(s, what string, lo, hi uint64) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrSyntax, what, s)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %s %d not in [%d,%d]", ErrSyntax, what, v, lo, hi)
	}
	return v, nil
}

// parseLimit leaves the range check to the feed, except for numbers too large
// to carry there.
func parseLimit(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("limit %s not in [1,%d]: %w", s, feed.MaxLimit, feed.ErrInvalidArgument)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: limit %q is not a number", ErrSyntax, s)
	}
	return v, nil
}
