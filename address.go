package ptdict

import (
	"fmt"
	"math"
	"strings"
)

const (
	maxNodesForOneByteCount = 0x7f
	maxNodesInArray         = 0x7fff
	largeArrayCountFlag     = 0x8000

	maxLabelLen   = 0xff
	maxAddress    = 0xffffff
	maxAddressLen = 3

	// Arbitrary limit on the number of passes the address resolution should
	// terminate in. Realistic dictionaries converge in a handful of passes;
	// more than this points at a bug causing an endless loop.
	maxPasses = 24
)

// arrayCountSize returns the size of the node count prefix, 1 or 2 bytes.
func arrayCountSize(count int) (int, error) {
	if count <= maxNodesForOneByteCount {
		return 1, nil
	} else if count <= maxNodesInArray {
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %d nodes in one node array, at most %d allowed",
		ErrCapacityExceeded, count, maxNodesInArray)
}

// charSize is the encoded size of one character: latin-1 printable
// characters take one byte, everything else three.
func charSize(ch rune) int {
	if ch >= 0x20 && ch <= 0xff {
		return 1
	}
	return 3
}

// nodeHeaderSize is the size of a node record without its children address.
func nodeHeaderSize(n *Node, frequencies bool) (int, error) {
	if len(n.Chars) > maxLabelLen {
		return 0, fmt.Errorf("%w: label of %d characters, at most %d allowed",
			ErrCapacityExceeded, len(n.Chars), maxLabelLen)
	}

	size := 1 // flags
	if len(n.Chars) > 1 {
		size++ // character count
	}
	for _, ch := range n.Chars {
		size += charSize(ch)
	}
	if n.Terminal && frequencies {
		size++
	}
	return size, nil
}

// addressWidth returns the smallest number of bytes able to hold distance.
func addressWidth(distance int) (int, error) {
	switch {
	case distance < 0:
		return 0, fmt.Errorf("%w: backward children reference of %d bytes",
			ErrInternalInconsistency, distance)
	case distance <= 0xff:
		return 1, nil
	case distance <= 0xffff:
		return 2, nil
	case distance <= maxAddress:
		return 3, nil
	}
	return 0, fmt.Errorf("%w: children reference of %d bytes, at most %d allowed",
		ErrCapacityExceeded, distance, maxAddress)
}

// childDistance is the distance from the end of pn's record, which is the end
// of its children address field, to the start of its children array.
func childDistance(arrays []*nodeArray, pn *placedNode) int {
	return arrays[pn.children].address - (pn.address + pn.size)
}

// resolveAddresses computes the address and size of every node array and
// node, starting at headerSize. It returns the number of passes it took and
// the offset just past the last array.
//
// The size of a node depends on the width of its children address, which
// depends on the distance to the children, which depends on the size of
// everything in between. All references start one byte wide; each pass
// places everything with the current widths and then widens any reference
// that no longer fits. Widths never shrink, so addresses never move
// backwards and the loop stops once a pass widens nothing.
func resolveAddresses(arrays []*nodeArray, headerSize int, frequencies bool) (int, int, error) {
	for _, array := range arrays {
		countSize, err := arrayCountSize(len(array.nodes))
		if err != nil {
			return 0, 0, err
		}
		array.countSize = countSize

		for _, pn := range array.nodes {
			pn.headerSize, err = nodeHeaderSize(pn.node, frequencies)
			if err != nil {
				return 0, 0, err
			}
			if pn.children >= 0 {
				pn.width = 1
			}
		}
	}

	passes := 0
	for {
		passes++
		if passes > maxPasses {
			return passes, 0, fmt.Errorf("%w: address resolution did not converge in %d passes",
				ErrInternalInconsistency, maxPasses)
		}

		end := placeArrays(arrays, headerSize)

		changed := false
		for _, array := range arrays {
			for _, pn := range array.nodes {
				if pn.children < 0 {
					continue
				}
				width, err := addressWidth(childDistance(arrays, pn))
				if err != nil {
					return passes, 0, err
				}
				if width > pn.width {
					pn.width = width
					changed = true
				}
			}
		}

		if !changed {
			if int64(end) > math.MaxUint32-trailerSize {
				return passes, 0, fmt.Errorf("%w: dictionary of %d bytes", ErrCapacityExceeded, end)
			}
			return passes, end, checkPlacement(arrays, headerSize)
		}
	}
}

// placeArrays lays the arrays out back to back with the current widths.
func placeArrays(arrays []*nodeArray, offset int) int {
	for _, array := range arrays {
		array.address = offset
		offset += array.countSize
		for _, pn := range array.nodes {
			pn.address = offset
			pn.size = pn.headerSize + pn.width
			offset += pn.size
		}
		array.size = offset - array.address
	}
	return offset
}

// checkPlacement verifies that the arrays are juxtaposed starting at
// headerSize and that every children reference fits its width.
func checkPlacement(arrays []*nodeArray, headerSize int) error {
	offset := headerSize
	for i, array := range arrays {
		if array.address != offset {
			return fmt.Errorf("%w: node array %d at %d, expected %d",
				ErrInternalInconsistency, i, array.address, offset)
		}

		pos := array.address + array.countSize
		for _, pn := range array.nodes {
			if pn.address != pos {
				return fmt.Errorf("%w: node %q at %d, expected %d",
					ErrInternalInconsistency, string(pn.node.Chars), pn.address, pos)
			}
			if pn.size != pn.headerSize+pn.width {
				return fmt.Errorf("%w: node %q has size %d, expected %d",
					ErrInternalInconsistency, string(pn.node.Chars), pn.size, pn.headerSize+pn.width)
			}

			if pn.children < 0 {
				if pn.width != 0 {
					return fmt.Errorf("%w: leaf %q has a children address",
						ErrInternalInconsistency, string(pn.node.Chars))
				}
			} else {
				if pn.children <= i {
					return fmt.Errorf("%w: node %q refers back to array %d",
						ErrInternalInconsistency, string(pn.node.Chars), pn.children)
				}
				width, err := addressWidth(childDistance(arrays, pn))
				if err != nil {
					return err
				}
				if width > pn.width {
					return fmt.Errorf("%w: children address of %q needs %d bytes, has %d",
						ErrInternalInconsistency, string(pn.node.Chars), width, pn.width)
				}
			}
			pos += pn.size
		}

		if pos-array.address != array.size {
			return fmt.Errorf("%w: node array %d has size %d, expected %d",
				ErrInternalInconsistency, i, array.size, pos-array.address)
		}
		offset += array.size
	}
	return nil
}

// statistics describes a resolved layout, for logging.
func statistics(arrays []*nodeArray, end int) string {
	nodes, maxNodes, maxRun := 0, 0, 0
	var widths [maxAddressLen + 1]int
	for _, array := range arrays {
		nodes += len(array.nodes)
		maxNodes = max(maxNodes, len(array.nodes))
		for _, pn := range array.nodes {
			maxRun = max(maxRun, len(pn.node.Chars))
			widths[pn.width]++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "total size %d, %d node arrays, %d nodes", end, len(arrays), nodes)
	if len(arrays) > 0 {
		fmt.Fprintf(&sb, " (%.2f per array)", float64(nodes)/float64(len(arrays)))
	}
	fmt.Fprintf(&sb, ", max nodes per array %d, longest label %d", maxNodes, maxRun)
	fmt.Fprintf(&sb, ", address widths 1:%d 2:%d 3:%d", widths[1], widths[2], widths[3])
	return sb.String()
}
