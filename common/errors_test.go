package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnexpectedWrapsErrUnexpected(t *testing.T) {
	err := Unexpected("page is not PageSize bytes")
	require.ErrorIs(t, err, ErrUnexpected)
	require.Contains(t, err.Error(), "page is not PageSize bytes")
}

func TestUnexpectedWithReasonIsAnAlias(t *testing.T) {
	a := Unexpected("same reason")
	b := UnexpectedWithReason("same reason")
	require.Equal(t, a.Error(), b.Error())
}

func TestUnexpectedDoesNotMatchOtherSentinels(t *testing.T) {
	err := Unexpected("boom")
	require.False(t, errors.Is(err, ErrKeyNotFound))
}
