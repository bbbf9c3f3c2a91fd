package ptdict

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// byteWriter writes big-endian fields to an io.Writer, keeping track of the
// position and of the running checksum. The first error sticks; every later
// write is a no-op.
type byteWriter struct {
	w   io.Writer
	pos int
	sum checksum
	err error
	buf [4]byte
}

func newByteWriter(w io.Writer) *byteWriter {
	return &byteWriter{w: w, sum: newChecksum()}
}

func (w *byteWriter) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.sum = w.sum.update(p[:n])
	w.pos += n
	w.err = err
}

// writeUint writes the low n bytes of v, most significant first.
func (w *byteWriter) writeUint(v uint32, n int) {
	for i := 0; i < n; i++ {
		w.buf[i] = byte(v >> (8 * (n - 1 - i)))
	}
	w.write(w.buf[:n])
}

// writeChar writes one character: a single byte for U+0020..U+00FF, otherwise
// three bytes. The first of the three is always below 0x20 since code points
// stop at 0x10FFFF, which is how a reader tells the two apart.
func (w *byteWriter) writeChar(ch rune) {
	if charSize(ch) == 1 {
		w.writeUint(uint32(ch), 1)
		return
	}
	w.writeUint(uint32(ch), 3)
}

// cursor reads big-endian fields from an io.ReaderAt without ever going past
// end. Like byteWriter, the first error sticks and later reads return zero.
type cursor struct {
	r   io.ReaderAt
	pos int64
	end int64
	err error
	buf [4]byte
}

func (c *cursor) read(n int) []byte {
	if c.err != nil {
		return nil
	}
	if c.pos < 0 || c.pos+int64(n) > c.end {
		c.err = fmt.Errorf("%w: read of %d bytes at %d past end %d", ErrCorruptFormat, n, c.pos, c.end)
		return nil
	}
	p := c.buf[:n]
	read, err := c.r.ReadAt(p, c.pos)
	if read < n {
		c.err = fmt.Errorf("%w: short read at %d: %v", ErrCorruptFormat, c.pos, err)
		return nil
	}
	c.pos += int64(n)
	return p
}

func (c *cursor) readUint(n int) uint32 {
	p := c.read(n)
	var v uint32
	for _, b := range p {
		v = v<<8 | uint32(b)
	}
	return v
}

func (c *cursor) readChar() rune {
	b := c.readUint(1)
	if b >= 0x20 {
		return rune(b)
	}
	ch := rune(b<<16 | c.readUint(2))
	if c.err == nil && ch > utf8.MaxRune {
		c.err = fmt.Errorf("%w: invalid character %#x at %d", ErrCorruptFormat, ch, c.pos-3)
	}
	return ch
}

func (c *cursor) tell() int64 {
	return c.pos
}
