package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/storage-engines/common"
)

func TestSearchInsertionPoint(t *testing.T) {
	keys := []common.Key{common.KeyOf([]byte("b")), common.KeyOf([]byte("d")), common.KeyOf([]byte("f"))}

	require.Equal(t, 0, searchInsertionPoint(keys, common.KeyOf([]byte("a"))))
	require.Equal(t, 0, searchInsertionPoint(keys, common.KeyOf([]byte("b"))))
	require.Equal(t, 1, searchInsertionPoint(keys, common.KeyOf([]byte("c"))))
	require.Equal(t, 3, searchInsertionPoint(keys, common.KeyOf([]byte("z"))))
}

func TestSearchLeaf(t *testing.T) {
	pairs := []common.KeyValuePair{
		{Key: common.KeyOf([]byte("b")), Value: "2"},
		{Key: common.KeyOf([]byte("d")), Value: "4"},
	}

	idx, found := searchLeaf(pairs, common.KeyOf([]byte("d")))
	require.True(t, found)
	require.Equal(t, 1, idx)

	idx, found = searchLeaf(pairs, common.KeyOf([]byte("c")))
	require.False(t, found)
	require.Equal(t, 1, idx)
}

func TestLeafSplit(t *testing.T) {
	b := 2
	leaf := &Node{Kind: KindLeaf, IsRoot: true}
	for _, k := range []string{"a", "b", "c", "d"} {
		leaf.Pairs = append(leaf.Pairs, common.KeyValuePair{Key: common.KeyOf([]byte(k)), Value: k})
	}
	require.True(t, leaf.IsFull(b))

	median, sibling, err := leaf.Split(b)
	require.NoError(t, err)
	require.Len(t, leaf.Pairs, b)
	require.Len(t, sibling.Pairs, b)
	require.False(t, leaf.IsRoot)
	require.False(t, sibling.IsRoot)
	require.Equal(t, sibling.Pairs[0].Key, median)
}

func TestLeafSplitNotFullFails(t *testing.T) {
	leaf := &Node{Kind: KindLeaf, Pairs: []common.KeyValuePair{{Key: common.KeyOf([]byte("a"))}}}
	_, _, err := leaf.Split(2)
	require.ErrorIs(t, err, common.ErrUnexpected)
}

func TestInternalSplit(t *testing.T) {
	b := 2
	node := &Node{
		Kind:     KindInternal,
		Keys:     []common.Key{common.KeyOf([]byte("a")), common.KeyOf([]byte("b")), common.KeyOf([]byte("c"))},
		Children: []uint64{0, 1, 2, 3},
	}
	require.True(t, node.IsFull(b))

	median, sibling, err := node.Split(b)
	require.NoError(t, err)
	require.Equal(t, common.KeyOf([]byte("b")), median)
	require.Equal(t, []common.Key{common.KeyOf([]byte("a"))}, node.Keys)
	require.Equal(t, []uint64{0, 1}, node.Children)
	require.Equal(t, []common.Key{common.KeyOf([]byte("c"))}, sibling.Keys)
	require.Equal(t, []uint64{2, 3}, sibling.Children)
}

func TestInsertKeyChild(t *testing.T) {
	node := &Node{
		Kind:     KindInternal,
		Keys:     []common.Key{common.KeyOf([]byte("m"))},
		Children: []uint64{10, 20},
	}
	node.insertKeyChild(0, common.KeyOf([]byte("g")), 99)

	require.Equal(t, []common.Key{common.KeyOf([]byte("g")), common.KeyOf([]byte("m"))}, node.Keys)
	require.Equal(t, []uint64{10, 99, 20}, node.Children)
}

func TestMergeLeaves(t *testing.T) {
	left := &Node{Kind: KindLeaf, IsRoot: false, ParentOffset: 42, Pairs: []common.KeyValuePair{{Key: common.KeyOf([]byte("a"))}}}
	right := &Node{Kind: KindLeaf, Pairs: []common.KeyValuePair{{Key: common.KeyOf([]byte("b"))}}}

	merged := mergeLeaves(left, right)
	require.Equal(t, uint64(42), merged.ParentOffset)
	require.Len(t, merged.Pairs, 2)
}

func TestMergeInternalsKeepsSeparator(t *testing.T) {
	left := &Node{Kind: KindInternal, Keys: []common.Key{common.KeyOf([]byte("a"))}, Children: []uint64{1, 2}}
	right := &Node{Kind: KindInternal, Keys: []common.Key{common.KeyOf([]byte("z"))}, Children: []uint64{3, 4}}
	separator := common.KeyOf([]byte("m"))

	merged := mergeInternals(left, right, separator)
	require.Equal(t, []common.Key{common.KeyOf([]byte("a")), separator, common.KeyOf([]byte("z"))}, merged.Keys)
	require.Equal(t, []uint64{1, 2, 3, 4}, merged.Children)
}
