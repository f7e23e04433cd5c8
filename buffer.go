package textline

// lineBuffer accumulates the bytes of the line being assembled. It grows
// geometrically and is reused between lines, so a parser stops allocating
// once it has seen its longest line.
type lineBuffer struct {
	data []byte
}

func newLineBuffer(capacity int) lineBuffer {
	return lineBuffer{data: make([]byte, 0, capacity)}
}

func (b *lineBuffer) append(c byte) {
	if len(b.data) == cap(b.data) {
		grown := make([]byte, len(b.data), 2*cap(b.data)+1)
		copy(grown, b.data)
		b.data = grown
	}
	b.data = append(b.data, c)
}

func (b *lineBuffer) length() int {
	return len(b.data)
}

// stringReset snapshots the accumulated bytes as a string and empties the
// buffer, keeping its capacity for the next line.
func (b *lineBuffer) stringReset() string {
	s := string(b.data)
	b.data = b.data[:0]
	return s
}
