package ptdict

import "errors"

var (
	// ErrInvalidInput is returned when a word cannot be added to the trie.
	ErrInvalidInput = errors.New("ptdict: invalid input")

	// ErrIncompleteBuild is returned when the built trie does not hold exactly
	// the submitted words, or a node breaks the structural rules.
	ErrIncompleteBuild = errors.New("ptdict: incomplete build")

	// ErrCapacityExceeded is returned when a reference, label, node array or the
	// whole file does not fit the widths the format can express.
	ErrCapacityExceeded = errors.New("ptdict: capacity exceeded")

	// ErrInternalInconsistency means the writer and the resolved layout disagree.
	ErrInternalInconsistency = errors.New("ptdict: internal inconsistency")

	// ErrCorruptFormat is returned by the reader for bad headers, truncated
	// buffers and out of bounds references.
	ErrCorruptFormat = errors.New("ptdict: corrupt format")
)
