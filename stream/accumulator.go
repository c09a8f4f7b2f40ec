// Package stream consumes newline-delimited JSON completion streams.
//
// Each line of the stream is an independent JSON object. Lines carrying a
// string "response" member contribute their text, in order, to a single
// result that is delivered exactly once when the stream ends.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// State is the lifecycle state of an Accumulator.
type State int

const (
	// Open accepts data.
	Open State = iota
	// Ended is terminal success: the result has been delivered.
	Ended
	// Failed is terminal error: the error has been delivered.
	Failed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Ended:
		return "ended"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrSettled is returned by Write once the accumulator has ended or failed.
	ErrSettled = errors.New("stream: accumulator already settled")
	// ErrPending is returned by Result while the accumulator is still open.
	ErrPending = errors.New("stream: result not settled yet")
)

// LineParseError records a stream line that is not valid JSON.
type LineParseError struct {
	Line string
	Err  error
}

func (e *LineParseError) Error() string {
	return fmt.Sprintf("stream: invalid JSON line %q: %v", e.Line, e.Err)
}

func (e *LineParseError) Unwrap() error { return e.Err }

// Stats describes what an accumulator has seen so far.
type Stats struct {
	Lines        int  // non-blank lines processed
	Fragments    int  // lines that contributed a response fragment
	SkippedLines int  // lines dropped because they were not valid JSON
	Done         bool // a line with "done": true was seen
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithLogger sets the logger used for skipped lines and late events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Accumulator) { a.logger = l }
}

// Accumulator collects response fragments from a stream of data events.
// It starts Open and settles exactly once, through End or Fail.
type Accumulator struct {
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	text    strings.Builder
	pending []byte // incomplete trailing line carried to the next Write
	stats   Stats
	result  string
	err     error
	done    chan struct{}
}

// NewAccumulator returns an Open accumulator.
func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Write handles one data event. Complete lines are parsed immediately;
// a trailing partial line is kept until the next chunk or End.
func (a *Accumulator) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != Open {
		a.logger.Debug("data after stream settled", "state", a.state, "bytes", len(p))
		return 0, ErrSettled
	}

	data := p
	if len(a.pending) > 0 {
		data = append(a.pending, p...)
		a.pending = nil
	}

	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		a.processLine(data[:i])
		data = data[i+1:]
	}
	if len(data) > 0 {
		a.pending = append([]byte(nil), data...)
	}
	return len(p), nil
}

// End resolves the accumulator with the text collected so far.
// It reports whether this call settled the accumulator.
func (a *Accumulator) End() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != Open {
		a.logger.Debug("ignoring end signal", "state", a.state)
		return false
	}
	if len(a.pending) > 0 {
		a.processLine(a.pending)
		a.pending = nil
	}
	a.settle(Ended, a.text.String(), nil)
	return true
}

// Fail rejects the accumulator with err, discarding any collected text.
// It reports whether this call settled the accumulator.
func (a *Accumulator) Fail(err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != Open {
		a.logger.Debug("ignoring error signal", "state", a.state, "error", err)
		return false
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	a.pending = nil
	a.settle(Failed, "", err)
	return true
}

// settle is the only place the state leaves Open. Callers hold mu.
func (a *Accumulator) settle(to State, result string, err error) {
	if a.state != Open {
		panic("stream: settle called on " + a.state.String() + " accumulator")
	}
	a.state = to
	a.result = result
	a.err = err
	a.text.Reset()
	close(a.done)
}

// processLine parses one line and appends its response fragment. Callers hold mu.
func (a *Accumulator) processLine(raw []byte) {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		return
	}
	a.stats.Lines++

	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		a.stats.SkippedLines++
		perr := &LineParseError{Line: string(line), Err: err}
		a.logger.Warn("skipping stream line", "error", perr)
		return
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return
	}
	if frag, ok := obj["response"].(string); ok {
		a.text.WriteString(frag)
		a.stats.Fragments++
	}
	if done, ok := obj["done"].(bool); ok && done {
		a.stats.Done = true
	}
}

// State returns the current lifecycle state.
func (a *Accumulator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Stats returns a snapshot of the line counters.
func (a *Accumulator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Done returns a channel that is closed once the accumulator settles.
func (a *Accumulator) Done() <-chan struct{} {
	return a.done
}

// Result returns the settled outcome without blocking.
// It returns ErrPending while the accumulator is still Open.
func (a *Accumulator) Result() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Open {
		return "", ErrPending
	}
	return a.result, a.err
}

// Wait blocks until the accumulator settles or ctx is done.
func (a *Accumulator) Wait(ctx context.Context) (string, error) {
	select {
	case <-a.done:
		return a.Result()
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Consume reads r to completion through a new Accumulator. A clean EOF
// ends the stream; any other read error fails it with that error.
func Consume(r io.Reader, opts ...Option) (string, Stats, error) {
	acc := NewAccumulator(opts...)
	if _, err := io.Copy(acc, r); err != nil {
		acc.Fail(err)
	} else {
		acc.End()
	}
	result, err := acc.Result()
	return result, acc.Stats(), err
}
