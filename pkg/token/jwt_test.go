package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	manager := NewJWTManager("test-secret", 1)

	tokenString, err := manager.GenerateToken(42, "alice", "USER")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := manager.VerifyToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "USER", claims.Role)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret", 1)
	other := NewJWTManager("another-secret", 1)

	tokenString, err := manager.GenerateToken(42, "alice", "USER")
	require.NoError(t, err)

	_, err = other.VerifyToken(tokenString)
	assert.Error(t, err)
}

func TestVerifyToken_Garbage(t *testing.T) {
	manager := NewJWTManager("test-secret", 1)

	_, err := manager.VerifyToken("not.a.token")
	assert.Error(t, err)
}
