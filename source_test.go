package textline

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// onlyReader hides every interface of the wrapped reader except Read.
type onlyReader struct {
	r io.Reader
}

func (o onlyReader) Read(p []byte) (int, error) {
	return o.r.Read(p)
}

type closeCountingReader struct {
	io.Reader
	closes int
}

func (c *closeCountingReader) Close() error {
	c.closes++
	return nil
}

func TestNewSource(t *testing.T) {
	t.Run("buffers plain readers", func(t *testing.T) {
		src := NewSource(onlyReader{r: bytes.NewReader([]byte("ab"))})
		b, err := src.ReadByte()
		require.NoError(t, err)
		require.Equal(t, byte('a'), b)
		b, err = src.ReadByte()
		require.NoError(t, err)
		require.Equal(t, byte('b'), b)
		_, err = src.ReadByte()
		require.Equal(t, io.EOF, err)
	})

	t.Run("close without closer is a no-op", func(t *testing.T) {
		src := NewSource(bytes.NewReader([]byte("x")))
		require.NoError(t, src.Close())
	})

	t.Run("close forwards to the reader", func(t *testing.T) {
		rdr := &closeCountingReader{Reader: bytes.NewReader([]byte("x"))}
		src := NewSource(rdr)
		require.NoError(t, src.Close())
		require.Equal(t, 1, rdr.closes)
	})
}

func TestNewGzipSource(t *testing.T) {
	content := "one\ntwo\r\nthree\rfour"
	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	t.Run("parses the decompressed stream", func(t *testing.T) {
		rdr := &closeCountingReader{Reader: bytes.NewReader(compressed.Bytes())}
		src, err := NewGzipSource(rdr)
		require.NoError(t, err)
		p, err := New(src)
		require.NoError(t, err)
		require.Equal(t, []string{"one\n", "two\r\n", "three\r", "four"}, collectLines(t, p))
		require.Equal(t, int64(len(content)), p.Position())
		require.Equal(t, 1, rdr.closes)
	})

	t.Run("rejects non-gzip input", func(t *testing.T) {
		_, err := NewGzipSource(bytes.NewReader([]byte("plain text")))
		require.Error(t, err)
	})
}
