package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/storage-engines/common"
	"github.com/intellect4all/storage-engines/common/testutil"
)

func TestWALUninitialisedGetRootFails(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "tree")
	wal, err := NewWAL(path)
	require.NoError(t, err)
	defer wal.Close()

	_, err = wal.GetRoot()
	require.ErrorIs(t, err, common.ErrUnexpected)
}

func TestWALSetAndGetRoot(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "tree")
	wal, err := NewWAL(path)
	require.NoError(t, err)
	defer wal.Close()

	require.NoError(t, wal.SetRoot(4096))
	got, err := wal.GetRoot()
	require.NoError(t, err)
	require.Equal(t, uint64(4096), got)

	require.NoError(t, wal.SetRoot(8192))
	got, err = wal.GetRoot()
	require.NoError(t, err)
	require.Equal(t, uint64(8192), got)
}

func TestWALPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "tree")
	wal, err := NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, wal.SetRoot(123456))
	require.NoError(t, wal.Close())

	reopened, err := NewWAL(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetRoot()
	require.NoError(t, err)
	require.Equal(t, uint64(123456), got)
}

func TestWALPathSiblingsTreeFile(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, "mytree.db")
	require.Equal(t, filepath.Join(dir, "mytree.db.wal"), walPath(path))
}
