package btree

import (
	"encoding/binary"
	"fmt"

	"github.com/intellect4all/storage-engines/common"
)

// PageSize is the fixed size of every page in the tree file.
const PageSize = 4096

// MaxBranchingFactor bounds the number of children an internal node may
// carry so that its keys and child offsets are guaranteed to fit a page:
// 2b-1 keys plus 2b child offsets must fit in PageSize-header bytes. See
// Config.validate for the b-parameter check this ceiling drives.
const MaxBranchingFactor = 154

// Page type tags, stored at byte 0 of every encoded page.
const (
	pageTagInternal byte = 0x01
	pageTagLeaf     byte = 0x02
)

// Page header layout (all integers little-endian):
//
//	offset 0  (1 byte)  type tag
//	offset 1  (1 byte)  is_root flag
//	offset 2  (8 bytes) parent offset, 0 = none
//	offset 10 (2 bytes) element count, followed by variant payload
const (
	headerOffsetTag    = 0
	headerOffsetRoot   = 1
	headerOffsetParent = 2
	headerOffsetCount  = 10
	headerSize         = 12
)

const (
	childOffsetSize = 8
	valueLenSize    = 4
)

// EncodeNode serialises node into an exactly-PageSize byte slice. It fails
// with an ErrUnexpected-wrapped error when the node's declared shape would
// overflow the page, instead of silently truncating it.
func EncodeNode(node *Node) ([]byte, error) {
	buf := make([]byte, PageSize)

	switch node.Kind {
	case KindInternal:
		buf[headerOffsetTag] = pageTagInternal
		if len(node.Children) != len(node.Keys)+1 {
			return nil, common.UnexpectedWithReason("internal node has |children| != |keys|+1")
		}
		if len(node.Keys) > MaxBranchingFactor-1 {
			return nil, common.UnexpectedWithReason("internal node exceeds MaxBranchingFactor")
		}
		n := len(node.Keys)
		size := headerSize + childOffsetSize*(n+1) + common.KeySize*n
		if size > PageSize {
			return nil, common.UnexpectedWithReason("internal node does not fit a page")
		}
		binary.LittleEndian.PutUint16(buf[headerOffsetCount:], uint16(n))
		off := headerSize
		for _, child := range node.Children {
			binary.LittleEndian.PutUint64(buf[off:], child)
			off += childOffsetSize
		}
		for _, key := range node.Keys {
			copy(buf[off:], key[:])
			off += common.KeySize
		}

	case KindLeaf:
		buf[headerOffsetTag] = pageTagLeaf
		n := len(node.Pairs)
		binary.LittleEndian.PutUint16(buf[headerOffsetCount:], uint16(n))
		off := headerSize
		for _, pair := range node.Pairs {
			valueBytes := []byte(pair.Value)
			need := common.KeySize + valueLenSize + len(valueBytes)
			if off+need > PageSize {
				return nil, common.UnexpectedWithReason("leaf node does not fit a page")
			}
			copy(buf[off:], pair.Key[:])
			off += common.KeySize
			binary.LittleEndian.PutUint32(buf[off:], uint32(len(valueBytes)))
			off += valueLenSize
			copy(buf[off:], valueBytes)
			off += len(valueBytes)
		}

	default:
		return nil, common.UnexpectedWithReason(fmt.Sprintf("cannot encode node kind %d", node.Kind))
	}

	if node.IsRoot {
		buf[headerOffsetRoot] = 1
	}
	binary.LittleEndian.PutUint64(buf[headerOffsetParent:], node.ParentOffset)

	return buf, nil
}

// DecodeNode parses a PageSize byte slice produced by EncodeNode. On
// failure it returns a KindUnexpected sentinel node alongside the error, so
// a caller that wants to inspect the raw page after a decode failure still
// has somewhere to hang that inspection.
func DecodeNode(data []byte) (*Node, error) {
	if len(data) != PageSize {
		return &Node{Kind: KindUnexpected}, common.UnexpectedWithReason("page is not PageSize bytes")
	}

	tag := data[headerOffsetTag]
	if tag != pageTagInternal && tag != pageTagLeaf {
		return &Node{Kind: KindUnexpected}, common.UnexpectedWithReason("unknown page type tag")
	}

	node := &Node{
		IsRoot:       data[headerOffsetRoot] == 1,
		ParentOffset: binary.LittleEndian.Uint64(data[headerOffsetParent:]),
	}
	count := int(binary.LittleEndian.Uint16(data[headerOffsetCount:]))

	switch tag {
	case pageTagInternal:
		node.Kind = KindInternal
		need := headerSize + childOffsetSize*(count+1) + common.KeySize*count
		if need > len(data) {
			return &Node{Kind: KindUnexpected}, common.UnexpectedWithReason("internal node declared count exceeds page")
		}
		off := headerSize
		node.Children = make([]uint64, count+1)
		for i := range node.Children {
			node.Children[i] = binary.LittleEndian.Uint64(data[off:])
			off += childOffsetSize
		}
		node.Keys = make([]Key, count)
		for i := range node.Keys {
			copy(node.Keys[i][:], data[off:off+common.KeySize])
			off += common.KeySize
		}

	case pageTagLeaf:
		node.Kind = KindLeaf
		off := headerSize
		node.Pairs = make([]common.KeyValuePair, count)
		for i := 0; i < count; i++ {
			if off+common.KeySize+valueLenSize > len(data) {
				return &Node{Kind: KindUnexpected}, common.UnexpectedWithReason("leaf node declared count exceeds page")
			}
			var key Key
			copy(key[:], data[off:off+common.KeySize])
			off += common.KeySize
			valLen := int(binary.LittleEndian.Uint32(data[off:]))
			off += valueLenSize
			if off+valLen > len(data) {
				return &Node{Kind: KindUnexpected}, common.UnexpectedWithReason("leaf value length exceeds page")
			}
			node.Pairs[i] = common.KeyValuePair{Key: key, Value: string(data[off : off+valLen])}
			off += valLen
		}
	}

	return node, nil
}
