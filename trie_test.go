package ptdict

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTrie(t *testing.T, words ...string) *Trie {
	t.Helper()
	trie := NewTrie()
	for _, word := range words {
		require.NoError(t, trie.AddWord(word))
	}
	return trie
}

func labels(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, string(n.Chars))
	}
	return out
}

func TestTrieShape(t *testing.T) {
	trie := buildTrie(t, "cat", "car", "cart", "dog")

	root := trie.Root()
	require.Equal(t, []string{"ca", "dog"}, labels(root.Children))

	ca := root.Children[0]
	assert.False(t, ca.Terminal)
	require.Equal(t, []string{"r", "t"}, labels(ca.Children))

	r := ca.Children[0]
	assert.True(t, r.Terminal)
	require.Equal(t, []string{"t"}, labels(r.Children))
	assert.True(t, r.Children[0].Terminal)
	assert.Empty(t, r.Children[0].Children)

	assert.True(t, ca.Children[1].Terminal)
	assert.True(t, root.Children[1].Terminal)

	assert.Equal(t, 4, trie.NumWords())
	assert.Equal(t, 5, trie.NumNodes())
}

func TestTrieSplitsEdges(t *testing.T) {
	trie := buildTrie(t, "testing", "test", "team", "t")

	root := trie.Root()
	require.Equal(t, []string{"t"}, labels(root.Children))
	tNode := root.Children[0]
	assert.True(t, tNode.Terminal)
	require.Equal(t, []string{"e"}, labels(tNode.Children))

	e := tNode.Children[0]
	assert.False(t, e.Terminal)
	require.Equal(t, []string{"am", "st"}, labels(e.Children))

	st := e.Children[1]
	assert.True(t, st.Terminal)
	require.Equal(t, []string{"ing"}, labels(st.Children))
	require.NoError(t, trie.CheckStructure())
}

func TestTrieAddWordIdempotent(t *testing.T) {
	once := buildTrie(t, "cat", "car", "cart", "dog")
	twice := buildTrie(t, "cat", "car", "cart", "dog", "car", "cart")

	require.Equal(t, once.root, twice.root)
	require.Equal(t, once.NumWords(), twice.NumWords())
}

func TestTrieInsertionOrder(t *testing.T) {
	words := []string{"a", "ab", "abc", "abd", "b", "ba", "bab", "xyz", "xy", "über", "übel", "日本", "日本語"}
	reference := buildTrie(t, words...)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), words...)
		rnd.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		require.Equal(t, reference.root, buildTrie(t, shuffled...).root, "order %v", shuffled)
	}
}

func TestTrieRejectsEmptyWord(t *testing.T) {
	trie := NewTrie()
	require.ErrorIs(t, trie.AddWord(""), ErrInvalidInput)
	assert.Equal(t, 0, trie.NumWords())
}

func TestTrieFrequency(t *testing.T) {
	trie := NewTrie()
	require.NoError(t, trie.AddWordFrequency("the", 100))
	require.NoError(t, trie.AddWordFrequency("the", 50))
	require.NoError(t, trie.AddWordFrequency("there", 20))
	require.NoError(t, trie.AddWordFrequency("the", 150))

	the := trie.Root().Children[0]
	assert.Equal(t, "the", string(the.Chars))
	assert.Equal(t, uint8(150), the.Frequency)
	assert.Equal(t, uint8(20), the.Children[0].Frequency)

	require.ErrorIs(t, trie.AddWordFrequency("x", 256), ErrInvalidInput)
	require.ErrorIs(t, trie.AddWordFrequency("x", -1), ErrInvalidInput)
}

func TestTrieWalkIsSorted(t *testing.T) {
	words := []string{"dog", "cart", "a", "car", "cat", "do", "dogs", "zebra", "über"}
	trie := buildTrie(t, words...)

	var walked []string
	require.NoError(t, trie.Walk(func(word string, n *Node) error {
		assert.True(t, n.Terminal)
		walked = append(walked, word)
		return nil
	}))

	sort.Strings(words)
	require.Equal(t, words, walked)
}

func TestTrieCheckStructure(t *testing.T) {
	trie := buildTrie(t, "cat", "car")
	require.NoError(t, trie.CheckStructure())

	// a non terminal leaf
	ca := trie.Root().Children[0]
	ca.Children = append(ca.Children, &Node{Chars: []rune("x")})
	require.ErrorIs(t, trie.CheckStructure(), ErrIncompleteBuild)

	// siblings sharing a first character
	trie = buildTrie(t, "cat")
	trie.root.Children = append(trie.root.Children, &Node{Chars: []rune("co"), Terminal: true})
	require.ErrorIs(t, trie.CheckStructure(), ErrIncompleteBuild)
}
