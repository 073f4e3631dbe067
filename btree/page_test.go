package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/storage-engines/common"
)

func TestEncodeDecodeLeafRoundTrip(t *testing.T) {
	node := &Node{
		Kind:         KindLeaf,
		IsRoot:       true,
		ParentOffset: 0,
		Pairs: []common.KeyValuePair{
			{Key: common.KeyOf([]byte("alpha")), Value: "one"},
			{Key: common.KeyOf([]byte("beta")), Value: "two, with a longer value to exercise the length prefix"},
		},
	}

	raw, err := EncodeNode(node)
	require.NoError(t, err)
	require.Len(t, raw, PageSize)

	decoded, err := DecodeNode(raw)
	require.NoError(t, err)
	require.Equal(t, KindLeaf, decoded.Kind)
	require.True(t, decoded.IsRoot)
	require.Equal(t, node.Pairs, decoded.Pairs)
}

func TestEncodeDecodeInternalRoundTrip(t *testing.T) {
	node := &Node{
		Kind:         KindInternal,
		ParentOffset: 4096,
		Keys:         []common.Key{common.KeyOf([]byte("m")), common.KeyOf([]byte("z"))},
		Children:     []uint64{0, 4096, 8192},
	}

	raw, err := EncodeNode(node)
	require.NoError(t, err)

	decoded, err := DecodeNode(raw)
	require.NoError(t, err)
	require.Equal(t, KindInternal, decoded.Kind)
	require.Equal(t, uint64(4096), decoded.ParentOffset)
	require.Equal(t, node.Keys, decoded.Keys)
	require.Equal(t, node.Children, decoded.Children)
}

func TestEncodeInternalMismatchedChildrenFails(t *testing.T) {
	node := &Node{
		Kind:     KindInternal,
		Keys:     []common.Key{common.KeyOf([]byte("a"))},
		Children: []uint64{0, 1, 2},
	}
	_, err := EncodeNode(node)
	require.ErrorIs(t, err, common.ErrUnexpected)
}

func TestEncodeLeafOverflowFails(t *testing.T) {
	node := &Node{Kind: KindLeaf}
	huge := make([]byte, PageSize)
	for i := 0; i < 10; i++ {
		node.Pairs = append(node.Pairs, common.KeyValuePair{
			Key:   common.KeyOf([]byte{byte(i)}),
			Value: string(huge),
		})
	}
	_, err := EncodeNode(node)
	require.ErrorIs(t, err, common.ErrUnexpected)
}

func TestDecodeRejectsWrongSize(t *testing.T) {
	_, err := DecodeNode(make([]byte, PageSize-1))
	require.ErrorIs(t, err, common.ErrUnexpected)
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	raw := make([]byte, PageSize)
	raw[headerOffsetTag] = 0xFF
	_, err := DecodeNode(raw)
	require.ErrorIs(t, err, common.ErrUnexpected)
}
