package ptdict

import (
	"fmt"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// EnumFn is called for every node during an enumeration with the full
// word spelled by the path to it and whether that word is stored.
type EnumFn = func(word []rune, final bool) EnumerationResult

// EnumerationResult tells Enumerate what to do after visiting a node.
type EnumerationResult = int

const (
	// Continue descends into the node's children.
	Continue EnumerationResult = iota

	// Skip moves on to the next sibling without visiting the children.
	Skip

	// Stop ends the enumeration.
	Stop
)

// maxDepth bounds the number of nested node arrays an enumeration follows.
const maxDepth = 1 << 14

// record is one decoded node.
type record struct {
	label     []rune
	terminal  bool
	frequency uint8
	child     int64 // address of the children's node array, -1 for leaves
}

func (d *Dictionary) cursorAt(pos int64) *cursor {
	return &cursor{r: d.r, pos: pos, end: d.end}
}

func (d *Dictionary) readCount(c *cursor) (int, error) {
	at := c.tell()
	count := c.readUint(1)
	if count&0x80 != 0 {
		count = (count&0x7f)<<8 | c.readUint(1)
	}
	if c.err != nil {
		return 0, c.err
	}
	if count == 0 && at != d.root {
		return 0, fmt.Errorf("%w: empty node array at %d", ErrCorruptFormat, at)
	}
	return int(count), nil
}

func (d *Dictionary) readRecord(c *cursor, last bool) (record, error) {
	at := c.tell()
	flags := c.readUint(1)
	if c.err != nil {
		return record{}, c.err
	}
	if flags&flagReserved != 0 {
		return record{}, fmt.Errorf("%w: reserved flags %#02x set at %d", ErrCorruptFormat, flags, at)
	}
	if (flags&flagLastSibling != 0) != last {
		return record{}, fmt.Errorf("%w: last sibling flag disagrees with count at %d", ErrCorruptFormat, at)
	}

	n := 1
	if flags&flagMultipleChars != 0 {
		n = int(c.readUint(1))
		if c.err == nil && n < 2 {
			return record{}, fmt.Errorf("%w: label of %d characters at %d", ErrCorruptFormat, n, at)
		}
	}

	rec := record{
		label:    make([]rune, 0, n),
		terminal: flags&flagTerminal != 0,
		child:    -1,
	}
	for i := 0; i < n && c.err == nil; i++ {
		rec.label = append(rec.label, c.readChar())
	}
	if rec.terminal && d.header.HasFrequencies() {
		rec.frequency = uint8(c.readUint(1))
	}

	width := int(flags&flagAddressWidth) >> addressWidthShift
	if width > 0 {
		distance := c.readUint(width)
		rec.child = c.tell() + int64(distance)
	}
	if c.err != nil {
		return record{}, c.err
	}

	if rec.child >= d.end {
		return record{}, fmt.Errorf("%w: children of node at %d point past the end to %d",
			ErrCorruptFormat, at, rec.child)
	}
	if rec.child < 0 && !rec.terminal {
		return record{}, fmt.Errorf("%w: node at %d has no children and is not a word", ErrCorruptFormat, at)
	}
	return rec, nil
}

// descend follows query from the root. It stops at the node where the query
// runs out and returns it together with the path leading to it and how many
// characters of its label the query covered. found is false when no node
// matches the whole query.
func (d *Dictionary) descend(query []rune) (rec record, path []rune, matched int, found bool, err error) {
	pos := d.root
	i := 0
	for {
		c := d.cursorAt(pos)
		count, err := d.readCount(c)
		if err != nil {
			return record{}, nil, 0, false, err
		}

		next := int64(-1)
		for j := 0; j < count; j++ {
			rec, err := d.readRecord(c, j == count-1)
			if err != nil {
				return record{}, nil, 0, false, err
			}

			// siblings are sorted by their first character
			if rec.label[0] < query[i] {
				continue
			} else if rec.label[0] > query[i] {
				break
			}

			k := commonPrefixLen(rec.label, query[i:])
			if i+k == len(query) {
				return rec, path, k, true, nil
			}
			if k < len(rec.label) || rec.child < 0 {
				break
			}

			path = append(path, rec.label...)
			i += k
			next = rec.child
			break
		}

		if next < 0 {
			return record{}, nil, 0, false, nil
		}
		pos = next
	}
}

// Search returns every word starting with prefix, in the order they are
// stored. An empty prefix returns the whole dictionary.
func (d *Dictionary) Search(prefix string) ([]string, error) {
	return d.Suggest(prefix, 0)
}

// Suggest is like Search but stops after limit words. A limit <= 0 means no
// limit.
func (d *Dictionary) Suggest(prefix string, limit int) ([]string, error) {
	var results []string
	collect := func(word []rune, final bool) EnumerationResult {
		if final {
			results = append(results, string(word))
			if limit > 0 && len(results) >= limit {
				return Stop
			}
		}
		return Continue
	}

	query := []rune(prefix)
	if len(query) == 0 {
		_, err := d.enumerate(d.root, nil, collect, 0)
		return results, err
	}

	rec, path, _, found, err := d.descend(query)
	if err != nil || !found {
		return results, err
	}

	word := append(path, rec.label...)
	if collect(word, rec.terminal) == Stop || rec.child < 0 {
		return results, nil
	}
	_, err = d.enumerate(rec.child, word, collect, 1)
	return results, err
}

// Lookup returns the frequency of word and whether it is in the dictionary.
// The frequency is zero when the dictionary stores none.
func (d *Dictionary) Lookup(word string) (int, bool, error) {
	query := []rune(word)
	if len(query) == 0 {
		return 0, false, nil
	}

	rec, _, matched, found, err := d.descend(query)
	if err != nil || !found || matched != len(rec.label) || !rec.terminal {
		return 0, false, err
	}
	return int(rec.frequency), true, nil
}

// Contains reports whether word is in the dictionary.
func (d *Dictionary) Contains(word string) (bool, error) {
	_, ok, err := d.Lookup(word)
	return ok, err
}

// Enumerate visits every node in stored order, passing fn the characters from
// the root to the end of the node's label.
func (d *Dictionary) Enumerate(fn EnumFn) error {
	_, err := d.enumerate(d.root, nil, fn, 0)
	return err
}

func (d *Dictionary) enumerate(pos int64, prefix []rune, fn EnumFn, depth int) (EnumerationResult, error) {
	if depth > maxDepth {
		return Stop, fmt.Errorf("%w: node arrays nested deeper than %d", ErrCorruptFormat, maxDepth)
	}

	c := d.cursorAt(pos)
	count, err := d.readCount(c)
	if err != nil {
		return Stop, err
	}

	l := len(prefix)
	for j := 0; j < count; j++ {
		rec, err := d.readRecord(c, j == count-1)
		if err != nil {
			return Stop, err
		}

		word := append(prefix[:l:l], rec.label...)
		result := fn(word, rec.terminal)
		if result == Stop {
			return Stop, nil
		}

		if result == Continue && rec.child >= 0 {
			result, err = d.enumerate(rec.child, word, fn, depth+1)
			if err != nil || result == Stop {
				return Stop, err
			}
		}
	}
	return Continue, nil
}

// Dump prints the header and every node array in file order.
func (d *Dictionary) Dump(w io.Writer) error {
	h := d.header
	fmt.Fprintf(w, "[%08x] Magic=%#08x Version=%d Options=%#04x\n", 0, Magic, h.Version, h.Options)
	fmt.Fprintf(w, "[%08x] HeaderSize=%d TotalSize=%d\n", 8, h.HeaderSize, h.TotalSize)
	fmt.Fprintf(w, "[%08x] NumWords=%d\n", 16, h.NumWords)
	fmt.Fprintf(w, "[%08x] ID=%s\n", 20, h.ID)
	keys := maps.Keys(h.Attributes)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "[%08x] Attribute %s=%s\n", fixedHeaderSize, k, h.Attributes[k])
	}

	c := d.cursorAt(d.root)
	for c.tell() < d.end {
		at := c.tell()
		count, err := d.readCount(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "[%08x] Node array with %d nodes\n", at, count)

		for j := 0; j < count; j++ {
			at = c.tell()
			rec, err := d.readRecord(c, j == count-1)
			if err != nil {
				return err
			}

			fmt.Fprintf(w, "[%08x]   %q", at, string(rec.label))
			if rec.terminal {
				fmt.Fprintf(w, " terminal")
				if d.header.HasFrequencies() {
					fmt.Fprintf(w, " f=%d", rec.frequency)
				}
			}
			if rec.child >= 0 {
				fmt.Fprintf(w, " goto <%08x>", rec.child)
			}
			fmt.Fprintln(w)
		}
	}

	_, err := fmt.Fprintf(w, "[%08x] Checksum\n", d.end)
	return err
}
