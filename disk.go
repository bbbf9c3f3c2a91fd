package ptdict

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"golang.org/x/exp/mmap"
)

/* FILE FORMAT
All integers are big-endian.

- header
	- 4 bytes: magic number 0x9BC13AFE
	- 2 bytes: format version
	- 2 bytes: options. bit 0: terminal nodes carry a frequency byte
	- 4 bytes: header size, including the attributes
	- 4 bytes: total size of the file, including the trailer
	- 4 bytes: number of words
	- 16 bytes: dictionary ID
	- 2 bytes: length of the attributes
	- attributes: CBOR map of text keys to text values
- node arrays, the root's children first, then depth first pre-order
	- node count: 1 byte if < 0x80, else 2 bytes with the top bit set
	- for each node:
		- 1 byte flags:
			0xC0 width of the children address, 0 for none
			0x20 label has several characters
			0x10 terminal
			0x08 last node of the array
		- if several characters: 1 byte character count
		- characters: 1 byte for U+0020..U+00FF, otherwise 3 bytes, the first
		  of which is below 0x20
		- if terminal and frequencies are stored: 1 byte frequency
		- children address: distance from the end of this field to the
		  children's node array
- trailer
	- 4 bytes: checksum of everything before it

A children address always points forward, so a reader only ever moves
towards the end of the file while descending.
*/

const (
	// Magic identifies a dictionary file.
	Magic uint32 = 0x9bc13afe

	// FormatVersion is the version of the layout above.
	FormatVersion uint16 = 1

	// OptionFrequencies is set in Header.Options when terminal nodes carry a
	// frequency byte.
	OptionFrequencies uint16 = 0x0001

	knownOptions = OptionFrequencies

	fixedHeaderSize = 38
	trailerSize     = 4
	maxAttributes   = 0xffff
)

const (
	flagAddressWidth  = 0xc0
	addressWidthShift = 6
	flagMultipleChars = 0x20
	flagTerminal      = 0x10
	flagLastSibling   = 0x08
	flagReserved      = 0x07
)

// Header is the decoded file header.
type Header struct {
	Version    uint16
	Options    uint16
	HeaderSize uint32
	TotalSize  uint32
	NumWords   uint32
	ID         uuid.UUID
	Attributes map[string]string
}

// HasFrequencies reports whether terminal nodes carry a frequency byte.
func (h Header) HasFrequencies() bool {
	return h.Options&OptionFrequencies != 0
}

var attributesEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		log.Panic(err)
	}
	return em
}()

func encodeAttributes(attrs map[string]string) ([]byte, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	data, err := attributesEncMode.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	if len(data) > maxAttributes {
		return nil, fmt.Errorf("%w: %d bytes of attributes, at most %d allowed",
			ErrCapacityExceeded, len(data), maxAttributes)
	}
	return data, nil
}

func encodeHeader(h Header, attrs []byte) []byte {
	buf := make([]byte, fixedHeaderSize, fixedHeaderSize+len(attrs))
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.Options)
	binary.BigEndian.PutUint32(buf[8:12], h.HeaderSize)
	binary.BigEndian.PutUint32(buf[12:16], h.TotalSize)
	binary.BigEndian.PutUint32(buf[16:20], h.NumWords)
	copy(buf[20:36], h.ID[:])
	binary.BigEndian.PutUint16(buf[36:38], uint16(len(attrs)))
	return append(buf, attrs...)
}

// layout is a trie whose node arrays have been flattened and placed.
type layout struct {
	header Header
	attrs  []byte
	arrays []*nodeArray
}

func (l *layout) frequencies() bool {
	return l.header.HasFrequencies()
}

func (t *Trie) layout(o EncoderOptions) (*layout, error) {
	attrs, err := encodeAttributes(o.Attributes)
	if err != nil {
		return nil, err
	}
	headerSize := fixedHeaderSize + len(attrs)

	var options uint16
	if o.Frequencies {
		options |= OptionFrequencies
	}

	logf(o.Log, "flattening the tree, %d words", t.numWords)
	arrays := flattenTree(t)

	logf(o.Log, "computing addresses of %d node arrays", len(arrays))
	passes, end, err := resolveAddresses(arrays, headerSize, o.Frequencies)
	if err != nil {
		return nil, err
	}
	logf(o.Log, "compression complete in %d passes", passes)
	logf(o.Log, "statistics: %s", statistics(arrays, end+trailerSize))

	if uint64(t.numWords) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d words", ErrCapacityExceeded, t.numWords)
	}

	return &layout{
		header: Header{
			Version:    FormatVersion,
			Options:    options,
			HeaderSize: uint32(headerSize),
			TotalSize:  uint32(end + trailerSize),
			NumWords:   uint32(t.numWords),
			ID:         o.ID,
			Attributes: o.Attributes,
		},
		attrs:  attrs,
		arrays: arrays,
	}, nil
}

func logf(log logger.Logger, format string, args ...any) {
	if log != nil {
		log.Debugf(format, args...)
	}
}

// write serializes the layout in one linear pass. Any difference between
// what is written and what was resolved is an internal inconsistency.
func (l *layout) write(w io.Writer) (int64, error) {
	bw := newByteWriter(w)

	bw.write(encodeHeader(l.header, l.attrs))
	if bw.err == nil && bw.pos != int(l.header.HeaderSize) {
		return int64(bw.pos), fmt.Errorf("%w: header of %d bytes, expected %d",
			ErrInternalInconsistency, bw.pos, l.header.HeaderSize)
	}

	for _, array := range l.arrays {
		if err := l.writeNodeArray(bw, array); err != nil {
			return int64(bw.pos), err
		}
	}

	bw.writeUint(uint32(bw.sum), trailerSize)
	if bw.err != nil {
		return int64(bw.pos), bw.err
	}
	if bw.pos != int(l.header.TotalSize) {
		return int64(bw.pos), fmt.Errorf("%w: wrote %d bytes, expected %d",
			ErrInternalInconsistency, bw.pos, l.header.TotalSize)
	}
	return int64(bw.pos), nil
}

func (l *layout) writeNodeArray(bw *byteWriter, array *nodeArray) error {
	if bw.err != nil {
		return bw.err
	}
	if bw.pos != array.address {
		return fmt.Errorf("%w: node array written at %d, resolved at %d",
			ErrInternalInconsistency, bw.pos, array.address)
	}

	count := len(array.nodes)
	if array.countSize == 2 {
		bw.writeUint(uint32(count|largeArrayCountFlag), 2)
	} else {
		bw.writeUint(uint32(count), 1)
	}

	for i, pn := range array.nodes {
		if bw.err != nil {
			return bw.err
		}
		if bw.pos != pn.address {
			return fmt.Errorf("%w: node %q written at %d, resolved at %d",
				ErrInternalInconsistency, string(pn.node.Chars), bw.pos, pn.address)
		}

		n := pn.node
		flags := uint32(pn.width) << addressWidthShift
		if len(n.Chars) > 1 {
			flags |= flagMultipleChars
		}
		if n.Terminal {
			flags |= flagTerminal
		}
		if i == count-1 {
			flags |= flagLastSibling
		}
		bw.writeUint(flags, 1)

		if len(n.Chars) > 1 {
			bw.writeUint(uint32(len(n.Chars)), 1)
		}
		for _, ch := range n.Chars {
			bw.writeChar(ch)
		}
		if n.Terminal && l.frequencies() {
			bw.writeUint(uint32(n.Frequency), 1)
		}
		if pn.children >= 0 {
			bw.writeUint(uint32(childDistance(l.arrays, pn)), pn.width)
		}

		if bw.err != nil {
			return bw.err
		}
		if bw.pos-pn.address != pn.size {
			return fmt.Errorf("%w: node %q written in %d bytes, resolved %d",
				ErrInternalInconsistency, string(n.Chars), bw.pos-pn.address, pn.size)
		}
	}

	if bw.pos-array.address != array.size {
		return fmt.Errorf("%w: node array written in %d bytes, resolved %d",
			ErrInternalInconsistency, bw.pos-array.address, array.size)
	}
	return nil
}

// Write encodes the trie to w. Returns the number of bytes written. On error
// the output is incomplete and must be discarded.
func (t *Trie) Write(w io.Writer, opts ...Option) (int64, error) {
	l, err := t.layout(newEncoderOptions(opts))
	if err != nil {
		return 0, err
	}
	return l.write(w)
}

// Encode returns the encoded trie as a byte slice of exactly the resolved size.
func (t *Trie) Encode(opts ...Option) ([]byte, error) {
	l, err := t.layout(newEncoderOptions(opts))
	if err != nil {
		return nil, err
	}

	var buffer bytes.Buffer
	buffer.Grow(int(l.header.TotalSize))
	if _, err := l.write(&buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Save writes the trie to disk. Returns the number of bytes written. The file
// is written under a temporary name and only renamed into place once it is
// complete, so a failed build never leaves a usable file behind.
func (t *Trie) Save(filename string, opts ...Option) (n int64, err error) {
	f, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	w := bufio.NewWriter(f)
	if n, err = t.Write(w, opts...); err != nil {
		return n, err
	}
	if err = w.Flush(); err != nil {
		return n, err
	}
	if err = f.Sync(); err != nil {
		return n, err
	}
	if err = f.Close(); err != nil {
		return n, err
	}
	return n, os.Rename(f.Name(), filename)
}

// Dictionary is a read only view of an encoded dictionary. Queries walk the
// encoded bytes in place; nothing is decoded up front apart from the header.
// A Dictionary is safe for concurrent use.
type Dictionary struct {
	r      io.ReaderAt
	size   int64
	header Header
	root   int64
	end    int64 // start of the trailer
	log    logger.Logger
}

// Load opens a dictionary file, mapping it into memory.
func Load(filename string, opts ...Option) (*Dictionary, error) {
	f, err := mmap.Open(filename)
	if err != nil {
		return nil, err
	}

	d, err := Open(f, int64(f.Len()), opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// FromBytes opens a dictionary held in memory.
func FromBytes(data []byte, opts ...Option) (*Dictionary, error) {
	return Open(bytes.NewReader(data), int64(len(data)), opts...)
}

// Open validates the header and checksum of the size bytes readable from r
// and returns a Dictionary that reads from r in place.
func Open(r io.ReaderAt, size int64, opts ...Option) (*Dictionary, error) {
	o := newReaderOptions(opts)

	if size < fixedHeaderSize+1+trailerSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for a dictionary", ErrCorruptFormat, size)
	}

	buf := make([]byte, fixedHeaderSize)
	if n, err := r.ReadAt(buf, 0); n < len(buf) {
		return nil, fmt.Errorf("%w: reading header: %v", ErrCorruptFormat, err)
	}

	if magic := binary.BigEndian.Uint32(buf[0:4]); magic != Magic {
		return nil, fmt.Errorf("%w: bad magic number %#08x", ErrCorruptFormat, magic)
	}

	var h Header
	h.Version = binary.BigEndian.Uint16(buf[4:6])
	h.Options = binary.BigEndian.Uint16(buf[6:8])
	h.HeaderSize = binary.BigEndian.Uint32(buf[8:12])
	h.TotalSize = binary.BigEndian.Uint32(buf[12:16])
	h.NumWords = binary.BigEndian.Uint32(buf[16:20])
	copy(h.ID[:], buf[20:36])
	attrLen := binary.BigEndian.Uint16(buf[36:38])

	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptFormat, h.Version)
	}
	if h.Options&^knownOptions != 0 {
		return nil, fmt.Errorf("%w: unknown options %#04x", ErrCorruptFormat, h.Options)
	}
	if int64(h.TotalSize) != size {
		return nil, fmt.Errorf("%w: header says %d bytes, have %d", ErrCorruptFormat, h.TotalSize, size)
	}
	if h.HeaderSize != fixedHeaderSize+uint32(attrLen) ||
		int64(h.HeaderSize)+1+trailerSize > size {
		return nil, fmt.Errorf("%w: bad header size %d", ErrCorruptFormat, h.HeaderSize)
	}

	if attrLen > 0 {
		attrs := make([]byte, attrLen)
		if n, err := r.ReadAt(attrs, fixedHeaderSize); n < len(attrs) {
			return nil, fmt.Errorf("%w: reading attributes: %v", ErrCorruptFormat, err)
		}
		if err := cbor.Unmarshal(attrs, &h.Attributes); err != nil {
			return nil, fmt.Errorf("%w: attributes: %v", ErrCorruptFormat, err)
		}
	}

	end := size - trailerSize
	sum, err := checksumOf(r, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFormat, err)
	}
	c := &cursor{r: r, pos: end, end: size}
	stored := checksum(c.readUint(trailerSize))
	if c.err != nil {
		return nil, c.err
	}
	if stored != sum {
		return nil, fmt.Errorf("%w: checksum %#08x, computed %#08x", ErrCorruptFormat, uint32(stored), uint32(sum))
	}

	if o.Log != nil {
		o.Log.Debugf("opened dictionary %s: %d words, %d bytes", h.ID, h.NumWords, size)
	}

	return &Dictionary{
		r:      r,
		size:   size,
		header: h,
		root:   int64(h.HeaderSize),
		end:    end,
		log:    o.Log,
	}, nil
}

// Header returns the decoded header.
func (d *Dictionary) Header() Header {
	return d.header
}

// NumWords returns the number of words in the dictionary.
func (d *Dictionary) NumWords() int {
	return int(d.header.NumWords)
}

// Size returns the size of the dictionary in bytes.
func (d *Dictionary) Size() int64 {
	return d.size
}

// Close releases the underlying reader if it can be closed.
func (d *Dictionary) Close() error {
	if d.log != nil {
		d.log.Debugf("closing dictionary %s", d.header.ID)
	}
	if closer, ok := d.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
