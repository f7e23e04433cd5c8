package textline

import (
	"errors"
	"io"
)

const (
	lf = '\n'
	cr = '\r'
)

// initialLineCapacity is the line buffer's starting size. This is mostly
// pointed at human-readable text, which tends to stay under 100 bytes per
// line; longer lines grow the buffer as needed.
const initialLineCapacity = 200

// ErrNilSource is returned when a parser is constructed without a source.
var ErrNilSource = errors.New("textline: nil source")

// ErrNegativeOffset is returned when a parser is constructed with a negative
// start offset.
var ErrNegativeOffset = errors.New("textline: negative start offset")

// Parser splits a byte stream into lines, keeping each line's terminator.
// A line ends with '\n', "\r\n" or a bare '\r'; the convention is detected
// per line, so streams that mix them work. Parser tracks the byte offset of
// everything handed out by Next, so a caller can record Position and later
// resume from it with NewAt or OpenAt.
//
// Parser is not safe for concurrent use.
type Parser struct {
	src ByteSource

	// pos counts the bytes of lines already returned by Next, starting from
	// the construction offset. Lookahead reads never move it.
	pos int64

	// pushback holds the byte read past a bare '\r' while checking for a
	// following '\n'. It belongs to the next line.
	pushback    byte
	hasPushback bool

	// The one-line lookahead. pending is the primed line.
	pending    string
	hasPending bool

	// pendingLen is pending's byte length, added to pos when Next hands the
	// line out.
	pendingLen int64

	// finished is set when the end of the stream is observed; the source is
	// closed at that point and never read again.
	finished bool

	buf lineBuffer
}

// New returns a Parser reading src from its current point, reporting
// positions starting at zero.
func New(src ByteSource) (*Parser, error) {
	return NewAt(src, 0)
}

// NewAt returns a Parser reading src from its current point, reporting
// positions starting at offset. Sources that support positioned opens
// (OpenAt, OpenBucketObjectAt) should be opened at the same offset.
func NewAt(src ByteSource, offset int64) (*Parser, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if offset < 0 {
		return nil, ErrNegativeOffset
	}
	p := &Parser{
		src: src,
		pos: offset,
		buf: newLineBuffer(initialLineCapacity),
	}
	err := p.prime()
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Open returns a Parser reading the file at path from the beginning.
func Open(path string) (*Parser, error) {
	return OpenAt(path, 0)
}

// OpenAt returns a Parser reading the file at path from offset. The file is
// opened positioned there, so no bytes before offset are read, and Position
// reports offsets into the whole file.
func OpenAt(path string, offset int64) (*Parser, error) {
	if offset < 0 {
		return nil, ErrNegativeOffset
	}
	src, err := openFileAt(path, offset)
	if err != nil {
		return nil, err
	}
	p, err := NewAt(src, offset)
	if err != nil {
		_ = src.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return p, nil
}

// prime assembles the next line into the lookahead slot. It runs once at
// construction and again after every line Next hands out.
func (p *Parser) prime() error {
	if p.finished {
		return nil
	}
	var c byte
	var err error
	if p.hasPushback {
		c, p.hasPushback = p.pushback, false
	} else {
		c, err = p.src.ReadByte()
	}
	p.pendingLen = 0
	var closeErr error
	for {
		if err != nil {
			if err != io.EOF {
				return err
			}
			p.finished = true
			closeErr = p.src.Close()
			break
		}
		p.pendingLen++
		p.buf.append(c)
		if c == cr {
			// '\r' ends the line unless a '\n' follows. Any other byte read
			// here is the start of the next line and is pushed back. EOF here
			// still makes this a complete line; the next prime observes it.
			next, nextErr := p.src.ReadByte()
			switch {
			case nextErr == nil && next == lf:
				p.pendingLen++
				p.buf.append(lf)
			case nextErr == nil:
				p.pushback, p.hasPushback = next, true
			case nextErr != io.EOF:
				return nextErr
			}
			break
		}
		if c == lf {
			break
		}
		c, err = p.src.ReadByte()
	}
	if p.buf.length() > 0 {
		p.pending = p.buf.stringReset()
		p.hasPending = true
	}
	return closeErr
}

// HasNext reports whether Next would return another line. It has no side
// effects.
func (p *Parser) HasNext() bool {
	return p.hasPending
}

// Peek returns the line Next would return without consuming it or moving
// the position. Repeated calls return the same line until Next is called.
// ok is false once the stream is exhausted.
func (p *Parser) Peek() (line string, ok bool) {
	return p.pending, p.hasPending
}

// Next returns the next line, terminator included. A line is never empty: a
// stream ending right after a terminator produces no extra line. Next
// returns io.EOF once the stream is exhausted. After any other error the
// parser's state is undefined and it should be discarded.
func (p *Parser) Next() (string, error) {
	if !p.hasPending {
		return "", io.EOF
	}
	line := p.pending
	p.pending = ""
	p.hasPending = false
	p.pos += p.pendingLen
	err := p.prime()
	if err != nil {
		return "", err
	}
	return line, nil
}

// Position returns the byte offset just past the last line returned by
// Next: the construction offset plus the byte lengths of all returned
// lines. Peek and the internal read-ahead do not affect it.
func (p *Parser) Position() int64 {
	return p.pos
}

// Close closes the source if it is still open and drops any primed line,
// after which HasNext is false and Next returns io.EOF. It is safe to call
// more than once and after natural exhaustion.
func (p *Parser) Close() error {
	p.pending = ""
	p.hasPending = false
	if p.finished {
		return nil
	}
	p.finished = true
	return p.src.Close()
}
