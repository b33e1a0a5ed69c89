package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAgentJWTManager_RoundTrip(t *testing.T) {
	m := NewAgentJWTManager(testSecret, "escaner-red", time.Hour)

	token, issued, err := m.GenerateToken("", "scanner-01")
	require.NoError(t, err)
	require.NotEmpty(t, issued.AgentID)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, issued.AgentID, claims.AgentID)
	assert.Equal(t, "scanner-01", claims.Hostname)
}

func TestAgentJWTManager_Rejects(t *testing.T) {
	m := NewAgentJWTManager(testSecret, "escaner-red", time.Hour)
	token, _, err := m.GenerateToken("agent-1", "h")
	require.NoError(t, err)

	_, err = m.ValidateToken("")
	assert.True(t, errors.Is(err, ErrMissingToken))

	other := NewAgentJWTManager("ffffffffffffffffffffffffffffffff", "escaner-red", time.Hour)
	_, err = other.ValidateToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	wrongIssuer := NewAgentJWTManager(testSecret, "someone-else", time.Hour)
	_, err = wrongIssuer.ValidateToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	expired := NewAgentJWTManager(testSecret, "escaner-red", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestAgentJWTManager_RejectsOtherAudience(t *testing.T) {
	claims := &AgentClaims{
		AgentID: "agent-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "escaner-red",
			Audience:  []string{"web"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewAgentJWTManager(testSecret, "escaner-red", time.Hour).ValidateToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}
