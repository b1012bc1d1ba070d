package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nicoirigoyen/e-commerce/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	u := &domain.User{ID: "u1", Name: "Ana", Email: "ana@test.com", IsAdmin: true}

	token, err := issuer.Issue(u)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "ana@test.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, domain.Actor{UserID: "u1", IsAdmin: true}, claims.Actor())
}

func TestParse_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	u := &domain.User{ID: "u1"}
	good, err := issuer.Issue(u)
	require.NoError(t, err)

	expired := NewTokenIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(u)
	require.NoError(t, err)

	otherKey, err := NewTokenIssuer("other", time.Hour).Issue(u)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"expired", old},
		{"wrong key", otherKey},
		{"alg none", none},
		{"garbage", "not-a-token"},
		{"tampered", good[:len(good)-2] + "xx"},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)

	assert.True(t, CheckPassword(hash, "123456"))
	assert.False(t, CheckPassword(hash, "654321"))
	assert.False(t, CheckPassword("not-a-hash", "123456"))
}
