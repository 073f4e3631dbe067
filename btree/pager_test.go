package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/storage-engines/common/testutil"
)

func TestPagerWriteAndRead(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "tree")
	pager, err := NewPager(path)
	require.NoError(t, err)
	defer pager.Close()

	page := make([]byte, PageSize)
	page[0] = 0x02
	offset, err := pager.WritePage(page)
	require.NoError(t, err)
	require.Equal(t, uint64(0), offset)
	require.Equal(t, int64(1), pager.NumPages())

	read, err := pager.GetPage(offset)
	require.NoError(t, err)
	require.Equal(t, page, read)
}

func TestPagerAppendOffsetsIncrease(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "tree")
	pager, err := NewPager(path)
	require.NoError(t, err)
	defer pager.Close()

	page := make([]byte, PageSize)
	o1, err := pager.WritePage(page)
	require.NoError(t, err)
	o2, err := pager.WritePage(page)
	require.NoError(t, err)

	require.Equal(t, o1+PageSize, o2)
}

func TestPagerWritePageAtOffsetOverwritesInPlace(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "tree")
	pager, err := NewPager(path)
	require.NoError(t, err)
	defer pager.Close()

	page := make([]byte, PageSize)
	offset, err := pager.WritePage(page)
	require.NoError(t, err)
	require.Equal(t, int64(1), pager.NumPages())

	updated := make([]byte, PageSize)
	updated[0] = 0x01
	require.NoError(t, pager.WritePageAtOffset(updated, offset))
	require.Equal(t, int64(1), pager.NumPages(), "overwrite must not grow the file")

	read, err := pager.GetPage(offset)
	require.NoError(t, err)
	require.Equal(t, updated, read)
}

func TestPagerGetPageOutOfBounds(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "tree")
	pager, err := NewPager(path)
	require.NoError(t, err)
	defer pager.Close()

	_, err = pager.GetPage(PageSize * 10)
	require.Error(t, err)
}

func TestPagerReopenPreservesSize(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "tree")
	pager, err := NewPager(path)
	require.NoError(t, err)

	page := make([]byte, PageSize)
	_, err = pager.WritePage(page)
	require.NoError(t, err)
	require.NoError(t, pager.Sync())
	require.NoError(t, pager.Close())

	reopened, err := NewPager(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, int64(1), reopened.NumPages())
}
