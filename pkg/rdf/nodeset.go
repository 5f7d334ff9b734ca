package rdf

import (
	"strings"

	"github.com/tidwall/btree"
)

// NodeSet is an immutable, deduplicated set of nodes.
//
// Nodes are keyed by their N-Triples form, which gives every set a stable
// iteration order. Operations never modify the receiver; sets returned from
// a Graph can be shared freely.
type NodeSet struct {
	tree *btree.BTreeG[nodeItem]
}

type nodeItem struct {
	key  string
	node Node
}

func nodeItemLess(a, b nodeItem) bool {
	return a.key < b.key
}

func newTree() *btree.BTreeG[nodeItem] {
	return btree.NewBTreeG[nodeItem](nodeItemLess)
}

// NewNodeSet creates a set holding the given nodes
func NewNodeSet(nodes ...Node) NodeSet {
	if len(nodes) == 0 {
		return NodeSet{}
	}
	tree := newTree()
	for _, n := range nodes {
		if n == nil {
			continue
		}
		tree.Set(nodeItem{key: n.String(), node: n})
	}
	return NodeSet{tree: tree}
}

// Len returns the number of nodes in the set
func (s NodeSet) Len() int {
	if s.tree == nil {
		return 0
	}
	return s.tree.Len()
}

// IsEmpty reports whether the set has no nodes
func (s NodeSet) IsEmpty() bool {
	return s.Len() == 0
}

// Has reports whether n is a member of the set
func (s NodeSet) Has(n Node) bool {
	if s.tree == nil || n == nil {
		return false
	}
	_, ok := s.tree.Get(nodeItem{key: n.String()})
	return ok
}

// First returns the first node in iteration order
func (s NodeSet) First() (Node, bool) {
	if s.tree == nil {
		return nil, false
	}
	item, ok := s.tree.Min()
	return item.node, ok
}

// Each calls fn for every node in iteration order until fn returns false
func (s NodeSet) Each(fn func(Node) bool) {
	if s.tree == nil {
		return
	}
	s.tree.Scan(func(item nodeItem) bool {
		return fn(item.node)
	})
}

// Nodes returns the members of the set in iteration order
func (s NodeSet) Nodes() []Node {
	nodes := make([]Node, 0, s.Len())
	s.Each(func(n Node) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// Add returns a new set containing the members of s and n
func (s NodeSet) Add(n Node) NodeSet {
	if n == nil || s.Has(n) {
		return s
	}
	tree := s.clone()
	tree.Set(nodeItem{key: n.String(), node: n})
	return NodeSet{tree: tree}
}

// Union returns the set of nodes in either s or other
func (s NodeSet) Union(other NodeSet) NodeSet {
	if other.Len() == 0 {
		return s
	}
	if s.Len() == 0 {
		return other
	}
	// Copy the larger tree and insert the smaller one
	big, small := s, other
	if small.Len() > big.Len() {
		big, small = small, big
	}
	tree := big.clone()
	small.tree.Scan(func(item nodeItem) bool {
		tree.Set(item)
		return true
	})
	return NodeSet{tree: tree}
}

// Intersect returns the set of nodes in both s and other
func (s NodeSet) Intersect(other NodeSet) NodeSet {
	if s.Len() == 0 || other.Len() == 0 {
		return NodeSet{}
	}
	if s.tree == other.tree {
		return s
	}
	small, big := s, other
	if small.Len() > big.Len() {
		small, big = big, small
	}
	tree := newTree()
	small.tree.Scan(func(item nodeItem) bool {
		if _, ok := big.tree.Get(item); ok {
			tree.Set(item)
		}
		return true
	})
	return NodeSet{tree: tree}
}

// Equal reports whether both sets hold the same nodes
func (s NodeSet) Equal(other NodeSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	if s.tree == other.tree {
		return true
	}
	equal := true
	s.Each(func(n Node) bool {
		equal = other.Has(n)
		return equal
	})
	return equal
}

func (s NodeSet) String() string {
	parts := make([]string, 0, s.Len())
	s.Each(func(n Node) bool {
		parts = append(parts, n.String())
		return true
	})
	return "{" + strings.Join(parts, ", ") + "}"
}

// clone returns a copy-on-write copy of the underlying tree
func (s NodeSet) clone() *btree.BTreeG[nodeItem] {
	if s.tree == nil {
		return newTree()
	}
	return s.tree.Copy()
}
