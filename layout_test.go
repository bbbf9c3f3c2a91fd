package ptdict

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"
)

type failingWriter struct {
	after int
}

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	if len(p) > w.after {
		n := w.after
		w.after = 0
		return n, errDiskFull
	}
	w.after -= len(p)
	return len(p), nil
}

func TestLayoutWrite(t *testing.T) {
	trie := buildTrie(t, "cat", "car", "cart", "dog")
	l, err := trie.layout(newEncoderOptions([]Option{WithLogger(logger.Sugar.WithServiceName("layout"))}))
	require.NoError(t, err)

	n, err := l.write(io.Discard)
	require.NoError(t, err)
	require.Equal(t, int64(l.header.TotalSize), n)
}

func TestLayoutWriteDetectsInconsistency(t *testing.T) {
	trie := buildTrie(t, "cat", "car", "cart", "dog")

	l, err := trie.layout(newEncoderOptions(nil))
	require.NoError(t, err)
	l.arrays[0].nodes[0].size++
	_, err = l.write(io.Discard)
	require.ErrorIs(t, err, ErrInternalInconsistency)

	l, err = trie.layout(newEncoderOptions(nil))
	require.NoError(t, err)
	l.header.TotalSize++
	_, err = l.write(io.Discard)
	require.ErrorIs(t, err, ErrInternalInconsistency)
}

func TestLayoutWriteError(t *testing.T) {
	trie := buildTrie(t, "cat", "car", "cart", "dog")
	for _, after := range []int{0, 10, fixedHeaderSize, fixedHeaderSize + 5} {
		_, err := trie.Write(&failingWriter{after: after})
		require.ErrorIs(t, err, errDiskFull, "failing after %d bytes", after)
	}
}

func TestWideReferencesRoundTrip(t *testing.T) {
	words := randomWords(40000, 6, 10, "abcdefghijklmnopqrstuvwxyz", 1)
	rnd := rand.New(rand.NewSource(4))
	frequencies := make(map[string]int, len(words))
	trie := NewTrie()
	for _, word := range words {
		f := rnd.Intn(MaxFrequency + 1)
		require.NoError(t, trie.AddWordFrequency(word, f))
		frequencies[word] = max(frequencies[word], f)
	}

	log := logger.Sugar.WithServiceName("wide")
	l, err := trie.layout(newEncoderOptions([]Option{WithFrequencies(true), WithLogger(log)}))
	require.NoError(t, err)

	var widths [maxAddressLen + 1]int
	for _, array := range l.arrays {
		for _, pn := range array.nodes {
			widths[pn.width]++
		}
	}
	require.Greater(t, widths[2], 0)
	require.Greater(t, widths[3], 0)

	var buffer bytes.Buffer
	_, err = l.write(&buffer)
	require.NoError(t, err)

	d, err := FromBytes(buffer.Bytes(), WithLogger(log))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, d.Close())
	}()

	for word, want := range frequencies {
		freq, ok, err := d.Lookup(word)
		require.NoError(t, err)
		require.True(t, ok, word)
		require.Equal(t, want, freq, word)
	}

	var stored []string
	require.NoError(t, trie.Walk(func(word string, _ *Node) error {
		stored = append(stored, word)
		return nil
	}))
	all, err := d.Search("")
	require.NoError(t, err)
	require.Equal(t, stored, all)
	require.Equal(t, len(frequencies), d.NumWords())
}
