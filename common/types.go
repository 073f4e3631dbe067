package common

import "bytes"

// KeySize is the fixed width of every key in the tree, in bytes. Fixing the
// width lets every key occupy the same slot on a page, which is what makes
// the page codec's offset arithmetic a closed-form computation instead of a
// scan.
const KeySize = 16

// Key is a fixed-width, unsigned-byte-order comparable key.
type Key [KeySize]byte

// Compare returns -1, 0 or 1 as k is less than, equal to, or greater than
// other, comparing raw bytes in unsigned order (Go's byte comparison already
// is unsigned, so this is a direct bytes.Compare).
func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}

// KeyOf copies up to KeySize bytes of b into a Key, zero-padding on the
// right if b is shorter. Callers that need exact control over padding
// should build a Key directly.
func KeyOf(b []byte) Key {
	var k Key
	copy(k[:], b)
	return k
}

// KeyValuePair is a single record stored in a leaf. Value is a UTF-8 string;
// the B-tree never interprets its bytes, only its length.
type KeyValuePair struct {
	Key   Key
	Value string
}

// Engine is implemented by BTree and by anything standing in for it in the
// benchmark harness.
type Engine interface {
	Insert(kv KeyValuePair) error
	Search(key Key) (KeyValuePair, error)
	Delete(key Key) error
	Close() error
	Sync() error
	Stats() Stats
}

// Stats reports point-in-time metrics about an open tree. Because the tree
// file grows monotonically (no page reclamation), SpaceAmp trends upward
// over the life of a heavily mutated tree; that is expected, not a bug.
type Stats struct {
	NumKeys       int64
	NumPages      int64
	TotalDiskSize int64

	WriteCount int64
	ReadCount  int64

	// Both ratios divide by a logical size of KeySize+1 bytes per live key;
	// value bytes are not counted.
	WriteAmp float64 // bytes written to the tree file / logical size
	SpaceAmp float64 // tree file size / logical size
}
