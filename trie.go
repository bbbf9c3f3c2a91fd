package ptdict

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// MaxFrequency is the largest frequency a word can carry.
const MaxFrequency = 0xff

// Node is one compressed edge of the trie. Chars holds the whole run of
// characters on the edge; Terminal is set when the path from the root through
// Chars spells a stored word. Children are sorted by their first character.
type Node struct {
	Chars     []rune
	Terminal  bool
	Frequency uint8
	Children  []*Node
}

// Trie is an in-memory Patricia trie. The root holds no characters of its
// own; its children are the first node array written to disk.
//
// A Trie is not safe for concurrent mutation.
type Trie struct {
	root     Node
	numWords int
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{}
}

// Root returns the root node. It must be treated as read only.
func (t *Trie) Root() *Node {
	return &t.root
}

// NumWords returns the number of distinct words in the trie.
func (t *Trie) NumWords() int {
	return t.numWords
}

// NumNodes returns the number of nodes, not counting the root.
func (t *Trie) NumNodes() int {
	return countNodes(t.root.Children)
}

func countNodes(nodes []*Node) int {
	n := len(nodes)
	for _, node := range nodes {
		n += countNodes(node.Children)
	}
	return n
}

// AddWord inserts a word with frequency zero.
func (t *Trie) AddWord(word string) error {
	return t.AddWordFrequency(word, 0)
}

// AddWordFrequency inserts a word. Adding a word that is already present only
// raises its frequency if the new one is higher.
func (t *Trie) AddWordFrequency(word string, frequency int) error {
	if word == "" {
		return fmt.Errorf("%w: empty word", ErrInvalidInput)
	}
	if frequency < 0 || frequency > MaxFrequency {
		return fmt.Errorf("%w: frequency %d of %q out of range", ErrInvalidInput, frequency, word)
	}

	if t.insert(&t.root, []rune(word), uint8(frequency)) {
		t.numWords++
	}
	return nil
}

// insert adds chars below parent and reports whether a new word was created.
func (t *Trie) insert(parent *Node, chars []rune, frequency uint8) bool {
	for {
		index, found := findChild(parent.Children, chars[0])
		if !found {
			leaf := &Node{
				Chars:     slices.Clone(chars),
				Terminal:  true,
				Frequency: frequency,
			}
			parent.Children = slices.Insert(parent.Children, index, leaf)
			return true
		}

		current := parent.Children[index]
		common := commonPrefixLen(current.Chars, chars)

		if common < len(current.Chars) {
			// split the edge: current keeps the shared prefix, the rest moves down
			tail := &Node{
				Chars:     slices.Clone(current.Chars[common:]),
				Terminal:  current.Terminal,
				Frequency: current.Frequency,
				Children:  current.Children,
			}
			current.Chars = slices.Clone(current.Chars[:common])
			current.Terminal = false
			current.Frequency = 0
			current.Children = []*Node{tail}
		}

		if common == len(chars) {
			return markTerminal(current, frequency)
		}

		parent = current
		chars = chars[common:]
	}
}

func markTerminal(n *Node, frequency uint8) bool {
	added := !n.Terminal
	n.Terminal = true
	if frequency > n.Frequency {
		n.Frequency = frequency
	}
	return added
}

func findChild(children []*Node, ch rune) (int, bool) {
	return slices.BinarySearchFunc(children, ch, func(n *Node, ch rune) int {
		return int(n.Chars[0]) - int(ch)
	})
}

func commonPrefixLen(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// WalkFunc is called for every terminal node during a Walk. Returning a
// non-nil error terminates the walk.
type WalkFunc func(word string, n *Node) error

// Walk calls fn once for every word in the trie, in canonical order.
func (t *Trie) Walk(fn WalkFunc) error {
	var sb strings.Builder
	return walk(t.root.Children, &sb, fn)
}

func walk(nodes []*Node, sb *strings.Builder, fn WalkFunc) error {
	prefix := sb.String()
	for _, n := range nodes {
		sb.Reset()
		sb.WriteString(prefix)
		for _, ch := range n.Chars {
			sb.WriteRune(ch)
		}

		if n.Terminal {
			if err := fn(sb.String(), n); err != nil {
				return err
			}
		}
		if err := walk(n.Children, sb, fn); err != nil {
			return err
		}
	}
	return nil
}

// CheckStructure verifies the shape of the trie: every label is non-empty,
// siblings are strictly ordered by first character and no node is both
// non-terminal and childless.
func (t *Trie) CheckStructure() error {
	return checkNodes(t.root.Children, "")
}

func checkNodes(nodes []*Node, prefix string) error {
	for i, n := range nodes {
		if len(n.Chars) == 0 {
			return fmt.Errorf("%w: empty label below %q", ErrIncompleteBuild, prefix)
		}
		path := prefix + string(n.Chars)
		if i > 0 && nodes[i-1].Chars[0] >= n.Chars[0] {
			return fmt.Errorf("%w: siblings out of order at %q", ErrIncompleteBuild, path)
		}
		if !n.Terminal && len(n.Children) == 0 {
			return fmt.Errorf("%w: %q has no children and is not a word", ErrIncompleteBuild, path)
		}
		if err := checkNodes(n.Children, path); err != nil {
			return err
		}
	}
	return nil
}
