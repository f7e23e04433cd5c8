package textline

import (
	"context"
	"io"
	"sync"

	"github.com/killa-beez/gopkgs/pool"
)

// Input names a stream for a MultiScanner. Offset is where Source is
// already positioned; line positions for this input start there.
type Input struct {
	Name   string
	Source ByteSource
	Offset int64
}

// ScannedLine is one line read by a MultiScanner. Position is the offset of
// the line's first byte in its source.
type ScannedLine struct {
	Source   string
	Position int64
	Text     string
}

// ScanOptions configures a MultiScanner.
type ScanOptions struct {
	// Concurrency is the number of inputs read at once. Defaults to 4.
	Concurrency int
	// Filters drop lines before they reach Scan. Positions still advance
	// past dropped lines.
	Filters []Filter
}

// MultiScanner reads several inputs concurrently, one Parser per input, and
// funnels their lines into a single stream. Line order is preserved within
// an input but not across inputs.
type MultiScanner struct {
	parsers    []*Parser
	parserErrs []error
	lines      chan ScannedLine
	cancel     func()
	line       ScannedLine

	errLock sync.RWMutex
	err     error

	doneLock sync.Mutex
	doneChan chan struct{}
	done     bool
}

// NewMultiScanner starts scanning inputs. The scanner takes ownership of
// every input source, including on error.
func NewMultiScanner(ctx context.Context, inputs []Input, opts *ScanOptions) (*MultiScanner, error) {
	if opts == nil {
		opts = new(ScanOptions)
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}
	parsers := make([]*Parser, 0, len(inputs))
	for i, input := range inputs {
		parser, err := NewAt(input.Source, input.Offset)
		if err != nil {
			for _, p := range parsers {
				_ = p.Close() //nolint:errcheck // already failing
			}
			for _, unopened := range inputs[i:] {
				if unopened.Source != nil {
					_ = unopened.Source.Close() //nolint:errcheck // already failing
				}
			}
			return nil, err
		}
		parsers = append(parsers, parser)
	}
	m := &MultiScanner{
		parsers:    parsers,
		parserErrs: make([]error, len(parsers)),
		lines:      make(chan ScannedLine, concurrency*1024),
		doneChan:   make(chan struct{}),
	}
	ctx, m.cancel = context.WithCancel(ctx)

	p := pool.New(len(parsers), concurrency)
	for i := range parsers {
		i := i
		parser := parsers[i]
		name := inputs[i].Name
		p.Add(pool.NewWorkUnit(func(ctx2 context.Context) {
			parserErr := runParser(ctx2, name, parser, opts.Filters, m.lines)
			if parserErr == io.EOF {
				parserErr = nil
			}
			m.parserErrs[i] = parserErr
		}))
	}
	p.Start(ctx)
	go func() {
		p.Wait()
		m.beDone()
	}()
	return m, nil
}

func runParser(ctx context.Context, name string, parser *Parser, filters []Filter, lines chan<- ScannedLine) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		start := parser.Position()
		line, err := parser.Next()
		if err != nil {
			return err
		}
		if !keepLine(filters, line) {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case lines <- ScannedLine{Source: name, Position: start, Text: line}:
		}
	}
}

func keepLine(filters []Filter, line string) bool {
	for _, filter := range filters {
		if !filter([]byte(line)) {
			return false
		}
	}
	return true
}

func (m *MultiScanner) beDone() {
	m.doneLock.Lock()
	defer m.doneLock.Unlock()
	if m.done {
		return
	}
	close(m.doneChan)
	m.done = true
}

// Scan advances to the next line from any input. It returns false when
// every input is exhausted or a parser failed; check Err afterward.
func (m *MultiScanner) Scan() bool {
	select {
	case m.line = <-m.lines:
		return true
	default:
	}

	select {
	case m.line = <-m.lines:
		return true
	case <-m.doneChan:
		m.errLock.Lock()
		for _, err := range m.parserErrs {
			if err != nil {
				m.err = err
				break
			}
		}
		m.errLock.Unlock()
		return false
	}
}

// Line returns the line Scan advanced to.
func (m *MultiScanner) Line() ScannedLine {
	return m.line
}

// Err returns the first parser error, if any. Exhaustion is not an error.
func (m *MultiScanner) Err() error {
	m.errLock.RLock()
	err := m.err
	m.errLock.RUnlock()
	return err
}

// Close cancels scanning and closes every parser. The first close error
// wins.
func (m *MultiScanner) Close() error {
	m.cancel()
	var err error
	for _, parser := range m.parsers {
		closeErr := parser.Close()
		if err == nil {
			err = closeErr
		}
	}
	m.beDone()
	return err
}
