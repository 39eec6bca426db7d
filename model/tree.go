package model

import (
	"sort"
)

// rootId is the id of the root topic node. The root always exists
// and is never pruned.
const rootId = uint32(0)

// sentinel child choice standing for "create a new node here"
const newChild = ^uint32(0)

// treeNode is one topic in the hierarchy. Relations are stored as
// id references into the owning tree's arena so pruning is an O(1)
// removal from an id-indexed table.
type treeNode struct {
	id       uint32
	parent   uint32
	children []uint32
	// per-vocabulary word counts of tokens assigned to this node
	wordCount []uint32
	// total tokens assigned to this node
	total uint32
	// number of documents whose path passes through this node
	docCount uint32
}

// tree is an arena of topic nodes addressed by stable integer ids
type tree struct {
	nodes     map[uint32]*treeNode
	nextId    uint32
	vocabSize uint32
}

func newTree(vocabSize uint32) *tree {
	t := &tree{
		nodes:     make(map[uint32]*treeNode),
		nextId:    rootId + 1,
		vocabSize: vocabSize,
	}
	t.nodes[rootId] = &treeNode{
		id:        rootId,
		parent:    rootId,
		wordCount: make([]uint32, vocabSize),
	}
	return t
}

func (t *tree) node(id uint32) *treeNode {
	return t.nodes[id]
}

func (t *tree) root() *treeNode {
	return t.nodes[rootId]
}

// addChild creates a fresh empty node under parent
func (t *tree) addChild(parent uint32) *treeNode {
	nd := &treeNode{
		id:        t.nextId,
		parent:    parent,
		wordCount: make([]uint32, t.vocabSize),
	}
	t.nextId += 1
	t.nodes[nd.id] = nd
	p := t.nodes[parent]
	p.children = append(p.children, nd.id)
	return nd
}

// childDocSum is the number of documents seated at any child of nd,
// the denominator base of the nested CRP draw
func (t *tree) childDocSum(nd *treeNode) uint32 {
	sum := uint32(0)
	for _, c := range nd.children {
		sum += t.nodes[c].docCount
	}
	return sum
}

// prune removes id and any emptied ancestors. A node is removed once
// both its document count and token count are zero; the walk stops
// at the first non-empty ancestor and never removes the root.
func (t *tree) prune(id uint32) {
	for id != rootId {
		nd := t.nodes[id]
		if nd == nil || nd.docCount > 0 || nd.total > 0 || len(nd.children) > 0 {
			return
		}
		parent := nd.parent
		t.removeChild(parent, id)
		delete(t.nodes, id)
		id = parent
	}
}

func (t *tree) removeChild(parent, child uint32) {
	p := t.nodes[parent]
	for i, c := range p.children {
		if c == child {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

// sortedIds returns all live node ids in ascending order for
// deterministic read-outs
func (t *tree) sortedIds() []uint32 {
	ids := make([]uint32, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
