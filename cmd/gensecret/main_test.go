package main

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_generate(t *testing.T) {
	t.Run("hex of requested size", func(t *testing.T) {
		key, err := generate(32)

		require.NoError(t, err)
		decoded, err := hex.DecodeString(key)
		require.NoError(t, err, "key must be hex encoded")
		require.Len(t, decoded, 32)
	})

	t.Run("keys differ", func(t *testing.T) {
		first, err := generate(32)
		require.NoError(t, err)
		second, err := generate(32)
		require.NoError(t, err)

		require.NotEqual(t, first, second)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := generate(8)

		require.Error(t, err)
	})
}
