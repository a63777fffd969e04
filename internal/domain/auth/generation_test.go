package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneration_CommitAfterAdvanceIsDropped(t *testing.T) {
	var g Generation
	gen := g.Current()

	writes := 0
	require.NoError(t, g.Commit(gen, func() error { writes++; return nil }))
	require.Equal(t, 1, writes)

	boom := errors.New("boom")
	require.ErrorIs(t, g.Advance(func() error { return boom }), boom)
	require.NotEqual(t, gen, g.Current())

	require.ErrorIs(t, g.Commit(gen, func() error { writes++; return nil }), ErrSessionChanged)
	require.Equal(t, 1, writes)
	require.NoError(t, g.Commit(g.Current(), func() error { writes++; return nil }))
	require.Equal(t, 2, writes)
}
