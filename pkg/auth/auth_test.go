package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("s", 32))

func createTestJWKS(t *testing.T, keyID string) (jwk.Set, jwk.Key) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	publicKey, err := jwk.Import(&privateKey.PublicKey)
	require.NoError(t, err)
	require.NoError(t, publicKey.Set(jwk.KeyIDKey, keyID))
	require.NoError(t, publicKey.Set(jwk.AlgorithmKey, jwa.ES256()))
	require.NoError(t, publicKey.Set(jwk.KeyUsageKey, "sig"))

	publicSet := jwk.NewSet()
	require.NoError(t, publicSet.AddKey(publicKey))

	signingKey, err := jwk.Import(privateKey)
	require.NoError(t, err)
	require.NoError(t, signingKey.Set(jwk.KeyIDKey, keyID))
	require.NoError(t, signingKey.Set(jwk.AlgorithmKey, jwa.ES256()))

	return publicSet, signingKey
}

func createSignedJWT(t *testing.T, signingKey jwk.Key, issuer, audience string, exp time.Time) string {
	tok, err := jwt.NewBuilder().
		Subject("relayer-1").
		Issuer(issuer).
		Audience([]string{audience}).
		Expiration(exp).
		Claim(ScopeClaim, "sign read").
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), signingKey))
	require.NoError(t, err)
	return string(signed)
}

func Test_HMACVerifier(t *testing.T) {
	ctx := context.Background()

	t.Run("Should accept a token it issued", func(t *testing.T) {
		v, err := NewHMACVerifier(testSecret, "near-signer", "signers")
		require.NoError(t, err)

		token, err := IssueHMACToken(testSecret, "relayer-1", "near-signer", "signers", []string{ScopeSign, ScopeRead}, time.Hour)
		require.NoError(t, err)

		claims, err := v.VerifyToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "relayer-1", claims.Subject)
		assert.True(t, claims.HasScope(ScopeSign))
		assert.False(t, claims.HasScope(ScopeVerify))
		assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
	})

	t.Run("Should reject short secrets", func(t *testing.T) {
		_, err := NewHMACVerifier([]byte("short"), "", "")
		require.Error(t, err)
	})

	t.Run("Should reject a token signed with another secret", func(t *testing.T) {
		v, err := NewHMACVerifier(testSecret, "", "")
		require.NoError(t, err)

		token, err := IssueHMACToken([]byte(strings.Repeat("x", 32)), "relayer-1", "", "", nil, time.Hour)
		require.NoError(t, err)

		_, err = v.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Should reject expired tokens", func(t *testing.T) {
		v, err := NewHMACVerifier(testSecret, "", "")
		require.NoError(t, err)

		token, err := IssueHMACToken(testSecret, "relayer-1", "", "", nil, -time.Hour)
		require.NoError(t, err)

		_, err = v.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Should enforce issuer and audience", func(t *testing.T) {
		v, err := NewHMACVerifier(testSecret, "near-signer", "signers")
		require.NoError(t, err)

		wrongIssuer, err := IssueHMACToken(testSecret, "relayer-1", "someone-else", "signers", nil, time.Hour)
		require.NoError(t, err)
		_, err = v.VerifyToken(ctx, wrongIssuer)
		require.ErrorIs(t, err, ErrUnauthorized)

		wrongAudience, err := IssueHMACToken(testSecret, "relayer-1", "near-signer", "others", nil, time.Hour)
		require.NoError(t, err)
		_, err = v.VerifyToken(ctx, wrongAudience)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Should reject empty and garbage tokens", func(t *testing.T) {
		v, err := NewHMACVerifier(testSecret, "", "")
		require.NoError(t, err)

		_, err = v.VerifyToken(ctx, "")
		require.ErrorIs(t, err, ErrUnauthorized)
		_, err = v.VerifyToken(ctx, "not.a.jwt")
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func Test_JWKSVerifier(t *testing.T) {
	ctx := context.Background()

	t.Run("Should accept a token signed by a key in the set", func(t *testing.T) {
		set, signingKey := createTestJWKS(t, "key-1")
		v := NewJWKSVerifierFromSet(set, "https://issuer.example.com", "near-signer", nil)

		token := createSignedJWT(t, signingKey, "https://issuer.example.com", "near-signer", time.Now().Add(time.Hour))
		claims, err := v.VerifyToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "relayer-1", claims.Subject)
		assert.Equal(t, []string{"sign", "read"}, claims.Scopes)
	})

	t.Run("Should reject a token from an unknown key", func(t *testing.T) {
		set, _ := createTestJWKS(t, "key-1")
		_, otherKey := createTestJWKS(t, "key-1")
		v := NewJWKSVerifierFromSet(set, "", "", nil)

		token := createSignedJWT(t, otherKey, "https://issuer.example.com", "near-signer", time.Now().Add(time.Hour))
		_, err := v.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("Should reject a token whose algorithm is not in the set", func(t *testing.T) {
		set, _ := createTestJWKS(t, "key-1")
		v := NewJWKSVerifierFromSet(set, "", "", nil)

		token, err := IssueHMACToken(testSecret, "relayer-1", "", "", nil, time.Hour)
		require.NoError(t, err)
		_, err = v.VerifyToken(ctx, token)
		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Contains(t, err.Error(), "no keys found")
	})

	t.Run("Should fetch the key set over HTTP", func(t *testing.T) {
		set, signingKey := createTestJWKS(t, "key-1")
		body, err := json.Marshal(set)
		require.NoError(t, err)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(body)
		}))
		defer srv.Close()

		cacheCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		v, err := NewJWKSVerifier(cacheCtx, srv.URL, time.Minute, "", "", nil)
		require.NoError(t, err)

		token := createSignedJWT(t, signingKey, "https://issuer.example.com", "near-signer", time.Now().Add(time.Hour))
		_, err = v.VerifyToken(ctx, token)
		require.NoError(t, err)
	})
}

func Test_ClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{Subject: "relayer-1"})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "relayer-1", claims.Subject)
}
