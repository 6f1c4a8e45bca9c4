package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hashed)

	assert.True(t, CheckPassword("s3cret-password", hashed))
	assert.False(t, CheckPassword("wrong-password", hashed))
	assert.False(t, CheckPassword("s3cret-password", "not a bcrypt hash"))
}
