package ptdict

import "io"

const checksumPrime = 0x01000193

// checksum is a running 32 bit hash in the FNV style, seeded with the FNV
// prime. It guards the whole file and is stored in the trailer.
type checksum uint32

func newChecksum() checksum {
	return checksumPrime
}

func (c checksum) update(data []byte) checksum {
	for _, b := range data {
		c = (c * checksumPrime) ^ checksum(b)
	}
	return c
}

// checksumOf hashes n bytes of r starting at offset 0.
func checksumOf(r io.ReaderAt, n int64) (checksum, error) {
	sum := newChecksum()
	buf := make([]byte, 32*1024)
	for off := int64(0); off < n; {
		chunk := buf
		if rest := n - off; rest < int64(len(chunk)) {
			chunk = chunk[:rest]
		}
		read, err := r.ReadAt(chunk, off)
		if read < len(chunk) {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		sum = sum.update(chunk)
		off += int64(read)
	}
	return sum, nil
}
