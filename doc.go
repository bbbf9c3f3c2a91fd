/*
Package ptdict builds a compressed prefix tree (a Patricia trie) from a word
list and stores it in a compact binary dictionary that can be searched in
place, without decoding it first.

A node of the trie holds a run of characters rather than a single one, so
chains of single-child nodes cost one record on disk. All the siblings sharing
a parent are written together as a node array, and every node that has
children stores the distance to its children's node array in 1, 2 or 3 bytes,
whichever is the smallest that fits. Since the width of each distance changes
the size of everything after it, the addresses are computed by iterating until
nothing moves any more. A summary of the data format is found at the top of
disk.go.

In general, to use it you first create a trie using ptdict.NewTrie(). You can
then add words in any order; adding a word twice is harmless. Wrap the trie in
a Validator to check that the finished trie holds exactly the words you gave it.

Call Save() or Write() to encode the trie. The dictionary can then be opened
again with Load(), which maps the file into memory, or with FromBytes() or
Open(). Search() returns every word with a given prefix.
*/
package ptdict
