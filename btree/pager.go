package btree

import (
	"fmt"
	"os"
	"sync"
)

// Pager owns the tree file and performs plain positioned I/O on it: no
// caching, no buffering. Durability is delegated entirely to the WAL's
// fsync at commit (see WAL.SetRoot); the pager itself never calls Sync
// except when the engine explicitly asks it to via Sync, ahead of a WAL
// fsync.
type Pager struct {
	file *os.File
	mu   sync.Mutex
	size int64 // current end-of-file offset; always a multiple of PageSize

	stats struct {
		pageReads    int64
		pageWrites   int64
		bytesWritten int64
	}
}

// NewPager opens (creating if necessary) the tree file at path.
func NewPager(path string) (*Pager, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open tree file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat tree file: %w", err)
	}

	return &Pager{file: file, size: info.Size()}, nil
}

// GetPage reads the PageSize bytes at offset.
func (p *Pager) GetPage(offset uint64) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int64(offset)+PageSize > p.size {
		return nil, fmt.Errorf("offset %d out of bounds (file size %d)", offset, p.size)
	}

	data := make([]byte, PageSize)
	n, err := p.file.ReadAt(data, int64(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to read page at offset %d: %w", offset, err)
	}
	if n != PageSize {
		return nil, fmt.Errorf("incomplete page read at offset %d: got %d bytes", offset, n)
	}

	p.stats.pageReads++
	return data, nil
}

// WritePage appends page at the current end of file and returns the offset
// it was written at. Offsets returned by WritePage are always multiples of
// PageSize and strictly increasing within this pager's lifetime.
func (p *Pager) WritePage(page []byte) (uint64, error) {
	if len(page) != PageSize {
		return 0, fmt.Errorf("page must be exactly %d bytes, got %d", PageSize, len(page))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	offset := p.size
	n, err := p.file.WriteAt(page, offset)
	if err != nil {
		return 0, fmt.Errorf("failed to append page: %w", err)
	}
	if n != PageSize {
		return 0, fmt.Errorf("incomplete page write: wrote %d bytes", n)
	}

	p.size += PageSize
	p.stats.pageWrites++
	p.stats.bytesWritten += PageSize

	return uint64(offset), nil
}

// WritePageAtOffset overwrites the PageSize bytes at offset in place. Per
// the copy-on-write discipline (see the engine's traversal code), this must
// only ever be called with an offset the same operation itself obtained
// from WritePage moments earlier - never with an offset reachable from the
// currently-committed root.
func (p *Pager) WritePageAtOffset(page []byte, offset uint64) error {
	if len(page) != PageSize {
		return fmt.Errorf("page must be exactly %d bytes, got %d", PageSize, len(page))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if int64(offset)+PageSize > p.size {
		return fmt.Errorf("offset %d out of bounds (file size %d)", offset, p.size)
	}

	n, err := p.file.WriteAt(page, int64(offset))
	if err != nil {
		return fmt.Errorf("failed to overwrite page at offset %d: %w", offset, err)
	}
	if n != PageSize {
		return fmt.Errorf("incomplete page overwrite at offset %d: wrote %d bytes", offset, n)
	}

	p.stats.pageWrites++
	p.stats.bytesWritten += PageSize

	return nil
}

// NumPages reports how many PageSize pages have been appended so far,
// including logically unreachable ones - the file grows monotonically and
// the pager has no reclamation strategy.
func (p *Pager) NumPages() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size / PageSize
}

// BytesWritten reports total bytes written to the tree file, for write
// amplification accounting.
func (p *Pager) BytesWritten() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.bytesWritten
}

// Sync flushes the tree file to stable storage. The engine must call this
// before the WAL's own fsync on every mutating operation: the ordering
// guarantee is that every WritePage is durable by the time SetRoot is
// called.
func (p *Pager) Sync() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Sync()
}

// Close closes the tree file.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Close()
}
