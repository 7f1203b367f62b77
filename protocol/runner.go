package protocol

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/phuslu/log"

	"github.com/ddirect/rankfeed/feed"
	"github.com/ddirect/rankfeed/metrics"
)

// Runner is the single writer of a feed: it reads commands one line at a
// time, applies them and writes one response line per command.
type Runner struct {
	feed      *feed.Feed
	log       *log.Logger
	clock     clock.Clock
	metrics   *metrics.Collectors
	lenient   bool
	flushEach bool
}

type Option func(*Runner)

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

func WithClock(c clock.Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

func WithMetrics(c *metrics.Collectors) Option {
	return func(r *Runner) {
		r.metrics = c
	}
}

// Lenient makes failed commands answer "Error: <reason>" instead of stopping
// the run.
func Lenient() Option {
	return func(r *Runner) {
		r.lenient = true
	}
}

// FlushEachResponse writes every response out as soon as it is ready, for
// clients waiting on each answer before sending the next command.
func FlushEachResponse() Option {
	return func(r *Runner) {
		r.flushEach = true
	}
}

func NewRunner(f *feed.Feed, opts ...Option) *Runner {
	r := &Runner{
		feed:  f,
		log:   &log.DefaultLogger,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Summary struct {
	Commands int
	Failed   int
	Elapsed  time.Duration
}

// Run processes in until EOF or, when the input starts with a command count,
// until that many commands were read. The banner is written first; output is
// flushed before returning, also on error. Cancelling ctx makes Run return
// even while it waits for input.
func (r *Runner) Run(ctx context.Context, in io.Reader, out io.Writer) (s Summary, err error) {
	start := r.clock.Now()
	w := bufio.NewWriter(out)
	defer func() {
		if ferr := w.Flush(); err == nil && ferr != nil {
			err = fmt.Errorf("flush: %w", ferr)
		}
		s.Elapsed = r.clock.Since(start)
	}()

	if _, err = w.WriteString(Banner + "\n"); err != nil {
		return
	}
	if r.flushEach {
		if err = w.Flush(); err != nil {
			return
		}
	}

	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	lines, readErr := scanLines(readCtx, in)

	var (
		lineNo  int
		started bool
		buf     []byte
	)
	expected := -1 // unknown
	for expected != 0 {
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case line, ok = <-lines:
		}
		if !ok {
			break
		}
		lineNo++
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err = ctx.Err(); err != nil {
			return
		}

		if !started {
			started = true
			if n, cerr := strconv.Atoi(line); cerr == nil && n >= 0 {
				expected = n
				r.log.Debug().Int("commands", n).Msg("command count announced")
				continue
			}
		}
		if expected > 0 {
			expected--
		}

		s.Commands++
		resp, cerr := r.apply(lineNo, line)
		if cerr != nil {
			s.Failed++
			if !r.lenient {
				err = cerr
				return
			}
			r.log.Warn().Int("line", lineNo).Str("command", line).Err(cerr).Msg("command failed")
			buf = append(buf[:0], "Error: "...)
			buf = append(buf, cerr.Error()...)
		} else {
			buf = resp.AppendTo(buf[:0])
		}
		buf = append(buf, '\n')
		if _, err = w.Write(buf); err != nil {
			return
		}
		if r.flushEach {
			if err = w.Flush(); err != nil {
				return
			}
		}
	}

	if expected != 0 {
		// the reader stopped: EOF, a read error or cancellation
		if err = ctx.Err(); err != nil {
			return
		}
		if err = readErr(); err != nil {
			err = fmt.Errorf("read: %w", err)
			return
		}
	}
	if expected > 0 {
		err = fmt.Errorf("%w: %d missing after line %d", ErrTruncatedInput, expected, lineNo)
		return
	}

	r.log.Info().Int("commands", s.Commands).Int("failed", s.Failed).Int("items", r.feed.Len()).Dur("elapsed", r.clock.Since(start)).Msg("input processed")
	return
}

// scanLines reads in on its own goroutine so that a blocked read does not
// hold up cancellation. The channel is closed at EOF, on a read error or once
// ctx is done; readErr is valid after that.
func scanLines(ctx context.Context, in io.Reader) (lines <-chan string, readErr func() error) {
	ch := make(chan string)
	var err error
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		err = sc.Err()
	}()
	return ch, func() error { return err }
}

func (r *Runner) apply(lineNo int, line string) (Response, error) {
	c, err := Parse(line)
	if err != nil {
		r.metrics.Observe("invalid", Result(err), 0, r.feed.Len())
		return Response{}, &ParseError{Line: lineNo, Text: line, Err: err}
	}

	r.log.Debug().Int("line", lineNo).Stringer("command", c).Msg("apply")

	began := r.clock.Now()
	resp, err := Execute(r.feed, c)
	r.metrics.Observe(c.Op.String(), Result(err), r.clock.Since(began), r.feed.Len())
	if err != nil {
		return Response{}, fmt.Errorf("line %d %q: %w", lineNo, line, err)
	}
	return resp, nil
}
