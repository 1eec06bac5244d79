package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwHC-gko/ipipe"
)

func TestResolvePath(t *testing.T) {
	t.Run("bare name resolves to platform path", func(t *testing.T) {
		got, err := resolvePath("applog")
		require.NoError(t, err)
		want, err := ipipe.PipePath("applog")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("paths pass through verbatim", func(t *testing.T) {
		for _, path := range []string{"/tmp/applog", `\\.\pipe\applog`, "./relative"} {
			got, err := resolvePath(path)
			require.NoError(t, err)
			assert.Equal(t, path, got)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := resolvePath("")
		assert.ErrorIs(t, err, ipipe.ErrInvalidName)
	})
}
