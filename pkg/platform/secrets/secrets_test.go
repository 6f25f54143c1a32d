package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "museion/pkg/domain-errors"
)

func TestGenerate(t *testing.T) {
	t.Run("produces unique url-safe values", func(t *testing.T) {
		a, err := Generate()
		require.NoError(t, err)
		b, err := Generate()
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
		assert.NotContains(t, a, "+")
		assert.NotContains(t, a, "/")
		assert.NotContains(t, a, "=")
		// 32 random bytes, base64url without padding.
		assert.Len(t, a, 43)
	})
}

func TestHashAndVerify(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		secret, err := Generate()
		require.NoError(t, err)

		hash, err := Hash(secret)
		require.NoError(t, err)
		assert.NotEqual(t, secret, hash)

		require.NoError(t, Verify(secret, hash))
	})

	t.Run("rejects wrong secret", func(t *testing.T) {
		hash, err := Hash("correct-secret")
		require.NoError(t, err)

		err = Verify("wrong-secret", hash)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("rejects empty secret on hash", func(t *testing.T) {
		_, err := Hash("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("rejects overlong secret on hash", func(t *testing.T) {
		_, err := Hash(strings.Repeat("x", 100))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}
