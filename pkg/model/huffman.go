package model

// HuffmanTree is the binary tree over osz leaves (one per output row)
// built from their counts, used by the hierarchical-softmax loss
// (spec §4.D.v). It has 2*osz-1 nodes: leaves [0,osz) and internal
// nodes [osz, 2*osz-1).
type HuffmanTree struct {
	osz int

	// parent[i] is the parent node index of node i, or -1 for the root.
	parent []int32
	// binary[i] is 0/1: which child of its parent node i is.
	binary []int8

	// Paths[leaf] lists the internal-node indices (offset by -osz, so
	// they index into the "codes"/bias rows used by binary logistic
	// descent) from the root down to leaf's parent.
	Paths [][]int32
	// Codes[leaf] lists the bit at each step of Paths[leaf]: the label
	// fed to the binary-logistic update at that internal node.
	Codes [][]int8
}

type huffmanNode struct {
	count  int64
	parent int32
	binary int8
}

// BuildHuffmanTree constructs the tree from leaf counts (index i is
// the count of output row i), following the classic two-min-heap
// merge: repeatedly combine the two lowest-count unmerged nodes.
func BuildHuffmanTree(counts []int64) *HuffmanTree {
	osz := len(counts)
	nodes := make([]huffmanNode, 2*osz-1)
	for i, c := range counts {
		nodes[i] = huffmanNode{count: c, parent: -1}
	}
	for i := osz; i < 2*osz-1; i++ {
		nodes[i] = huffmanNode{count: 1 << 62, parent: -1}
	}

	leaf := osz - 1 // next unmerged leaf, scanning from the smallest
	node := osz     // oldest un-consumed internal node

	// Leaves are expected to already be sorted by descending count
	// (the dictionary thresholds that way); mirror the classic
	// two-pointer merge over the (already sorted) leaf prefix and the
	// growing internal-node suffix: each new internal node is only
	// available for merging once `node` catches up to it.
	for i := osz; i < 2*osz-1; i++ {
		var min1, min2 int32
		if leaf >= 0 && nodes[leaf].count < nodes[node].count {
			min1 = int32(leaf)
			leaf--
		} else {
			min1 = int32(node)
			node++
		}
		if leaf >= 0 && nodes[leaf].count < nodes[node].count {
			min2 = int32(leaf)
			leaf--
		} else {
			min2 = int32(node)
			node++
		}
		nodes[i].count = nodes[min1].count + nodes[min2].count
		nodes[min1].parent = int32(i)
		nodes[min2].parent = int32(i)
		nodes[min2].binary = 1
	}

	t := &HuffmanTree{
		osz:    osz,
		parent: make([]int32, len(nodes)),
		binary: make([]int8, len(nodes)),
		Paths:  make([][]int32, osz),
		Codes:  make([][]int8, osz),
	}
	for i, n := range nodes {
		t.parent[i] = n.parent
		t.binary[i] = n.binary
	}
	for i := 0; i < osz; i++ {
		var path []int32
		var code []int8
		j := int32(i)
		for nodes[j].parent != -1 {
			p := nodes[j].parent
			path = append([]int32{p - int32(osz)}, path...)
			code = append([]int8{nodes[j].binary}, code...)
			j = p
		}
		t.Paths[i] = path
		t.Codes[i] = code
	}
	return t
}
