package btree

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/intellect4all/storage-engines/common"
)

// walRecordSize is the entire WAL file format: a single little-endian
// uint64 root offset. There is no header, no magic, no checksum - the spec
// fixes this layout exactly, leaving no room for the framing the tree
// file's own WAL-style durability story might otherwise want.
const walRecordSize = 8

// WAL is the durable, crash-safe record of the tree's current root offset.
// It is the commit point of every mutating operation: structural changes
// made by Insert/Delete are not visible to a reopened tree until SetRoot
// succeeds.
type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// walPath derives the WAL's path from the tree file path: same directory,
// suffixed with ".wal". Falls back to /tmp if path has no parent directory.
func walPath(treePath string) string {
	dir := filepath.Dir(treePath)
	if dir == "" || dir == "." {
		dir = os.TempDir()
	}
	return filepath.Join(dir, filepath.Base(treePath)+".wal")
}

// NewWAL opens (creating if necessary) the root-pointer WAL alongside the
// given tree file path.
func NewWAL(treePath string) (*WAL, error) {
	path := walPath(treePath)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL: %w", err)
	}
	return &WAL{file: file}, nil
}

// GetRoot returns the most recently committed root offset. It fails with
// ErrUnexpected if the WAL is uninitialised (empty file) - callers must
// call SetRoot once, at tree creation, before GetRoot can succeed.
func (w *WAL) GetRoot() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := make([]byte, walRecordSize)
	n, err := w.file.ReadAt(buf, 0)
	if n == 0 {
		return 0, common.UnexpectedWithReason("WAL is uninitialised")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read WAL: %w", err)
	}
	if n != walRecordSize {
		return 0, common.UnexpectedWithReason("WAL record is truncated")
	}

	return binary.LittleEndian.Uint64(buf), nil
}

// SetRoot atomically records offset as the new root and fsyncs the WAL
// file before returning. A process restart after this call observes either
// the new offset or whatever was committed before it - never a torn value,
// since walRecordSize fits a single disk sector on every platform this
// targets.
func (w *WAL) SetRoot(offset uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	buf := make([]byte, walRecordSize)
	binary.LittleEndian.PutUint64(buf, offset)

	if _, err := w.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("failed to write WAL root: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync WAL: %w", err)
	}

	return nil
}

// Sync fsyncs the WAL file without changing its content. Exposed so the
// engine's own Sync can make the ordering guarantee explicit even when no
// mutation is pending.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Close closes the WAL file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
