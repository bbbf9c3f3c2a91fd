package ptdict

// nodeArray is the on-disk group of siblings sharing one parent. Address and
// size are only meaningful once the addresses have been resolved.
type nodeArray struct {
	nodes     []*placedNode
	countSize int
	address   int
	size      int
}

// placedNode references a trie node together with its resolved placement.
type placedNode struct {
	node *Node

	// index of the node array holding the children, -1 for leaves
	children int

	// width in bytes of the children address, 0 for leaves
	width int

	headerSize int
	address    int
	size       int
}

// flattenTree lists the node arrays of t in the order they are written: the
// root's children first, then a depth first pre-order walk. A parent array
// always precedes the arrays of its descendants, so every children address
// is a forward offset.
func flattenTree(t *Trie) []*nodeArray {
	arrays := make([]*nodeArray, 0, t.NumNodes()/2+1)
	return flattenInner(arrays, t.root.Children)
}

func flattenInner(list []*nodeArray, nodes []*Node) []*nodeArray {
	array := &nodeArray{nodes: make([]*placedNode, len(nodes))}
	list = append(list, array)

	for i, n := range nodes {
		pn := &placedNode{node: n, children: -1}
		array.nodes[i] = pn
		if len(n.Children) > 0 {
			pn.children = len(list)
			list = flattenInner(list, n.Children)
		}
	}
	return list
}
