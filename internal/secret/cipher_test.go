package secret

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Cipher(t *testing.T) {
	t.Parallel()

	c, err := NewCipher("test-secret-key")
	require.NoError(t, err)

	t.Run("encrypt decrypt ok", func(t *testing.T) {
		encrypted, err := c.Encrypt([]byte("access-token"))
		require.NoError(t, err)
		require.NotContains(t, encrypted, "access-token", "ciphertext must not contain plaintext")

		got, err := c.Decrypt(encrypted)

		require.NoError(t, err)
		require.Equal(t, "access-token", string(got))
	})

	t.Run("same plaintext different ciphertext", func(t *testing.T) {
		first, err := c.Encrypt([]byte("token"))
		require.NoError(t, err)
		second, err := c.Encrypt([]byte("token"))
		require.NoError(t, err)

		require.NotEqual(t, first, second, "random nonce should be used on every call")
	})

	t.Run("other key could not decrypt", func(t *testing.T) {
		other, err := NewCipher("other-secret-key")
		require.NoError(t, err)
		encrypted, err := c.Encrypt([]byte("token"))
		require.NoError(t, err)

		_, err = other.Decrypt(encrypted)

		require.Error(t, err)
	})

	t.Run("garbage could not be decrypted", func(t *testing.T) {
		for _, value := range []string{"", "not base64 at all!", "c2hvcnQ="} {
			_, err := c.Decrypt(value)
			require.Error(t, err, "value %q must not be decrypted", value)
		}
	})

	t.Run("empty secret key fails", func(t *testing.T) {
		_, err := NewCipher("")

		require.Error(t, err)
	})
}
