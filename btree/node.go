package btree

import (
	"sort"

	"github.com/intellect4all/storage-engines/common"
)

// Key and KeyValuePair are re-exported from common so callers of this
// package never need to import common themselves for the basic vocabulary.
type (
	Key          = common.Key
	KeyValuePair = common.KeyValuePair
)

// NodeKind tags which of the three node variants a Node holds.
type NodeKind uint8

const (
	// KindUnexpected is the error-state sentinel produced only by decoding
	// an invalid page; it is never intentionally constructed or persisted.
	KindUnexpected NodeKind = iota
	KindInternal
	KindLeaf
)

// Node is the in-memory view of one page: a Leaf (ordered KeyValuePairs), an
// Internal (ordered separator Keys plus |Keys|+1 child Offsets), or the
// Unexpected sentinel. IsRoot and ParentOffset are traversal aids - the
// parent link exists only to let Delete walk back up during rebalanceUp,
// not because the tree needs a persisted parent pointer for correctness.
type Node struct {
	Kind         NodeKind
	IsRoot       bool
	ParentOffset uint64 // 0 = none

	Pairs []KeyValuePair // leaf payload, ordered by Key, no duplicates

	Keys     []Key    // internal separators, len(Keys)+1 == len(Children)
	Children []uint64 // internal child page offsets
}

// NewLeaf returns a fresh, empty leaf node.
func NewLeaf() *Node {
	return &Node{Kind: KindLeaf}
}

// IsFull reports whether node holds the maximum occupancy for its kind and
// must be split before a new entry is inserted into it. Per the B-parameter
// invariants, a leaf is full at exactly 2b pairs and an internal node is
// full at exactly 2b-1 keys.
func (n *Node) IsFull(b int) bool {
	switch n.Kind {
	case KindLeaf:
		return len(n.Pairs) >= 2*b
	case KindInternal:
		return len(n.Keys) >= 2*b-1
	default:
		return false
	}
}

// IsUnderflow reports whether a non-root node has fallen below the minimum
// occupancy (b-1 keys/pairs). A root is never considered underflowed - it
// may legitimately hold fewer than b-1 keys/pairs - so this always returns
// false when IsRoot is set, regardless of occupancy.
func (n *Node) IsUnderflow(b int) bool {
	if n.IsRoot {
		return false
	}
	switch n.Kind {
	case KindLeaf:
		return len(n.Pairs) < b-1
	case KindInternal:
		return len(n.Keys) < b-1
	default:
		return false
	}
}

// searchInsertionPoint returns the first index i with key <= keys[i] (ties
// go to the lower index), or len(keys) if key is greater than every
// separator. This single rule drives both internal-node descent (the
// returned index is the child to follow) and leaf insertion position.
func searchInsertionPoint(keys []Key, key Key) int {
	return sort.Search(len(keys), func(i int) bool {
		return key.Compare(keys[i]) <= 0
	})
}

// searchLeaf returns (index, true) when key is present among pairs, or
// (insertion point, false) on a miss.
func searchLeaf(pairs []KeyValuePair, key Key) (int, bool) {
	idx := sort.Search(len(pairs), func(i int) bool {
		return key.Compare(pairs[i].Key) <= 0
	})
	if idx < len(pairs) && pairs[idx].Key.Compare(key) == 0 {
		return idx, true
	}
	return idx, false
}

// Split splits n at index b. n is mutated in place to hold the lower half
// and its IsRoot flag is cleared; the returned sibling holds the upper half,
// inherits n's (pre-split) parent offset, and also has IsRoot cleared. The
// returned Key is the median to promote into the parent.
//
// For a leaf, pairs [0,b) stay in n, pairs [b,2b) move to the sibling, and
// the median is a copy of the sibling's first key - keys stay in leaves in
// a B+tree, so the median is not removed from either node.
//
// For an internal node, keys [0,b-1) stay in n, keys [b,2b-1) move to the
// sibling, and the key at index b-1 is promoted to the parent without being
// kept in either child. Children [0,b) stay in n, children [b,2b) move to
// the sibling.
func (n *Node) Split(b int) (Key, *Node, error) {
	sibling := &Node{Kind: n.Kind, ParentOffset: n.ParentOffset}

	switch n.Kind {
	case KindLeaf:
		if len(n.Pairs) < 2*b {
			return Key{}, nil, common.UnexpectedWithReason("split called on a leaf that is not full")
		}
		sibling.Pairs = append([]KeyValuePair{}, n.Pairs[b:]...)
		n.Pairs = n.Pairs[:b]
		n.IsRoot = false
		return sibling.Pairs[0].Key, sibling, nil

	case KindInternal:
		if len(n.Keys) < 2*b-1 {
			return Key{}, nil, common.UnexpectedWithReason("split called on an internal node that is not full")
		}
		median := n.Keys[b-1]
		sibling.Keys = append([]Key{}, n.Keys[b:]...)
		sibling.Children = append([]uint64{}, n.Children[b:]...)
		n.Keys = n.Keys[:b-1]
		n.Children = n.Children[:b]
		n.IsRoot = false
		return median, sibling, nil

	default:
		return Key{}, nil, common.UnexpectedWithReason("split called on a non-leaf, non-internal node")
	}
}

// insertKeyChild inserts separator at idx and child at idx+1 into an
// internal node - the shape produced by a child split at position idx: the
// existing child at idx keeps the lower half, and the new child at idx+1
// is the freshly split-off sibling.
func (n *Node) insertKeyChild(idx int, separator Key, child uint64) {
	n.Keys = append(n.Keys, Key{})
	copy(n.Keys[idx+1:], n.Keys[idx:])
	n.Keys[idx] = separator

	n.Children = append(n.Children, 0)
	copy(n.Children[idx+2:], n.Children[idx+1:])
	n.Children[idx+1] = child
}

// mergeLeaves concatenates two sibling leaves in key order. The result
// keeps IsRoot and ParentOffset from left.
func mergeLeaves(left, right *Node) *Node {
	merged := &Node{Kind: KindLeaf, IsRoot: left.IsRoot, ParentOffset: left.ParentOffset}
	merged.Pairs = append(append([]KeyValuePair{}, left.Pairs...), right.Pairs...)
	return merged
}

// mergeInternals concatenates two sibling internal nodes, re-inserting the
// separator key that used to live in their parent between the two runs of
// keys (the present design must not drop it - see the node-model merge
// notes on why a naive concatenation loses a separator). The result keeps
// IsRoot and ParentOffset from left.
func mergeInternals(left, right *Node, separator Key) *Node {
	merged := &Node{Kind: KindInternal, IsRoot: left.IsRoot, ParentOffset: left.ParentOffset}
	merged.Keys = append(append([]Key{}, left.Keys...), append([]Key{separator}, right.Keys...)...)
	merged.Children = append(append([]uint64{}, left.Children...), right.Children...)
	return merged
}
