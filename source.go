package textline

import (
	"bufio"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// ByteSource is the stream contract a Parser consumes: single-byte reads
// and a close. The parser owns its source exclusively and closes it exactly
// once, either on end of stream or through Parser.Close.
type ByteSource interface {
	io.ByteReader
	io.Closer
}

// NewSource adapts r into a ByteSource. Reads are buffered unless r already
// reads byte-at-a-time, and Close is forwarded to r when r is an io.Closer.
func NewSource(r io.Reader) ByteSource {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	s := &source{br: br}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

type source struct {
	br     io.ByteReader
	closer io.Closer
}

func (s *source) ReadByte() (byte, error) {
	return s.br.ReadByte()
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// openFileAt opens path buffered and positioned at offset.
func openFileAt(path string, offset int64) (ByteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if offset > 0 {
		_, err = f.Seek(offset, io.SeekStart)
		if err != nil {
			_ = f.Close() //nolint:errcheck // already failing
			return nil, err
		}
	}
	return &source{br: bufio.NewReader(f), closer: f}, nil
}

// NewGzipSource layers gzip decompression over r. Close closes the gzip
// reader and then r when r is an io.Closer; the first error wins. Positions
// reported by a parser on this source are offsets into the decompressed
// stream, counted from wherever r was when the source was created — gzip
// streams cannot be opened positioned.
func NewGzipSource(r io.Reader) (ByteSource, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &gzipSource{rdr: r, gz: gz, br: bufio.NewReader(gz)}, nil
}

type gzipSource struct {
	rdr io.Reader
	gz  *gzip.Reader
	br  *bufio.Reader
}

func (z *gzipSource) ReadByte() (byte, error) {
	return z.br.ReadByte()
}

func (z *gzipSource) Close() error {
	err := z.gz.Close()
	if c, ok := z.rdr.(io.Closer); ok {
		cErr := c.Close()
		if err == nil {
			err = cErr
		}
	}
	return err
}
