package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig("/tmp/whatever").validate())
}

func TestDefaultBParameterAtCapacityCeiling(t *testing.T) {
	// 2*77-1 = 153 = MaxBranchingFactor-1: the default sits exactly at the
	// ceiling the page codec enforces, not comfortably below it.
	require.Equal(t, MaxBranchingFactor-1, 2*DefaultBParameter-1)
}

func TestValidateRejectsEmptyPath(t *testing.T) {
	err := Config{Path: "", BParameter: 2}.validate()
	require.Error(t, err)
}

func TestValidateRejectsTooSmallB(t *testing.T) {
	err := Config{Path: "x", BParameter: 1}.validate()
	require.Error(t, err)
}

func TestValidateRejectsBExceedingCapacityCeiling(t *testing.T) {
	err := Config{Path: "x", BParameter: (MaxBranchingFactor / 2) + 10}.validate()
	require.Error(t, err)
}
