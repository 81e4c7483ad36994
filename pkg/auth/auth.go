package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"go.uber.org/zap"
)

const (
	// ScopeClaim carries space separated scopes, as in OAuth 2.0
	ScopeClaim = "scope"

	ScopeSign   = "sign"
	ScopeVerify = "verify"
	ScopeRead   = "read"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims are the verified parts of a bearer token the service acts on.
type Claims struct {
	Subject   string
	TokenID   string
	Scopes    []string
	ExpiresAt time.Time
}

func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ITokenVerifier checks a compact JWT and returns its claims.
type ITokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Claims, error)
}

type claimsContextKey struct{}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns the claims stored by the auth middleware, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok
}

// HMACVerifier accepts HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

var _ ITokenVerifier = (*HMACVerifier)(nil)

func NewHMACVerifier(secret []byte, issuer, audience string) (*HMACVerifier, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("hmac secret must be at least 32 bytes, got %d", len(secret))
	}
	return &HMACVerifier{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
	}, nil
}

func (h *HMACVerifier) VerifyToken(_ context.Context, token string) (*Claims, error) {
	opts := append(validationOptions(h.issuer, h.audience), jwt.WithKey(jwa.HS256(), h.secret))
	return parseToken(token, opts)
}

// JWKSVerifier accepts tokens signed by any key in a remote, periodically refreshed JWKS.
type JWKSVerifier struct {
	logger   *zap.Logger
	keySet   jwk.Set
	issuer   string
	audience string
}

var _ ITokenVerifier = (*JWKSVerifier)(nil)

// NewJWKSVerifier fetches the key set once and keeps refreshing it until ctx is done.
func NewJWKSVerifier(ctx context.Context, jwksURL string, refreshInterval time.Duration, issuer, audience string, logger *zap.Logger) (*JWKSVerifier, error) {
	keySet, err := NewJWKCache(ctx, jwksURL, refreshInterval)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Sugar().Infow("JWKS verifier initialized", "jwks_url", jwksURL, "refresh_interval", refreshInterval)
	return NewJWKSVerifierFromSet(keySet, issuer, audience, logger), nil
}

func NewJWKSVerifierFromSet(keySet jwk.Set, issuer, audience string, logger *zap.Logger) *JWKSVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWKSVerifier{
		logger:   logger,
		keySet:   keySet,
		issuer:   issuer,
		audience: audience,
	}
}

func (j *JWKSVerifier) VerifyToken(_ context.Context, token string) (*Claims, error) {
	filtered, err := filterKeySetForToken(token, j.keySet, j.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	opts := append(validationOptions(j.issuer, j.audience), jwt.WithKeySet(filtered))
	return parseToken(token, opts)
}

// NewJWKCache registers jwkUrl with a refreshing cache and fetches it once up front.
func NewJWKCache(ctx context.Context, jwkUrl string, refreshInterval time.Duration) (jwk.Set, error) {
	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create jwk cache: %w", err)
	}

	err = cache.Register(ctx, jwkUrl, jwk.WithConstantInterval(refreshInterval))
	if err != nil {
		return nil, fmt.Errorf("failed to register jwk location: %w", err)
	}

	_, err = cache.Refresh(ctx, jwkUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch on startup: %w", err)
	}

	return cache.CachedSet(jwkUrl)
}

// IssueHMACToken mints an HS256 token for operators and tests.
func IssueHMACToken(secret []byte, subject, issuer, audience string, scopes []string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("hmac secret is required")
	}
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(ttl))
	if issuer != "" {
		builder = builder.Issuer(issuer)
	}
	if audience != "" {
		builder = builder.Audience([]string{audience})
	}
	if len(scopes) > 0 {
		builder = builder.Claim(ScopeClaim, strings.Join(scopes, " "))
	}
	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), nil
}

func validationOptions(issuer, audience string) []jwt.ParseOption {
	opts := []jwt.ParseOption{
		jwt.WithValidate(true),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithAcceptableSkew(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return opts
}

func parseToken(token string, opts []jwt.ParseOption) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims := &Claims{}
	if sub, ok := parsed.Subject(); ok {
		claims.Subject = sub
	}
	if jti, ok := parsed.JwtID(); ok {
		claims.TokenID = jti
	}
	if exp, ok := parsed.Expiration(); ok {
		claims.ExpiresAt = exp
	}
	var scope string
	if err := parsed.Get(ScopeClaim, &scope); err == nil {
		claims.Scopes = strings.Fields(scope)
	}
	return claims, nil
}

// filterKeySetForToken keeps only the keys whose algorithm matches the token header, so
// providers that publish one kid under several algorithms still verify.
func filterKeySetForToken(token string, keySet jwk.Set, logger *zap.Logger) (jwk.Set, error) {
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWS message: %w", err)
	}
	if len(msg.Signatures()) == 0 {
		return nil, fmt.Errorf("token has no signatures")
	}
	header := msg.Signatures()[0].ProtectedHeaders()

	tokenAlg, ok := header.Algorithm()
	if !ok {
		return nil, fmt.Errorf("token does not specify an algorithm")
	}
	keyID, _ := header.KeyID()

	filtered := jwk.NewSet()
	for i := 0; i < keySet.Len(); i++ {
		key, ok := keySet.Key(i)
		if !ok {
			continue
		}
		if keyAlg, ok := key.Algorithm(); !ok || keyAlg.String() != tokenAlg.String() {
			continue
		}
		if kid, ok := key.KeyID(); keyID != "" && ok && kid != keyID {
			continue
		}
		_ = filtered.AddKey(key)
	}

	if filtered.Len() == 0 {
		return nil, fmt.Errorf("no keys found in JWKS matching algorithm %s", tokenAlg)
	}
	logger.Debug("Filtered JWKS",
		zap.String("kid", keyID),
		zap.Int("original_count", keySet.Len()),
		zap.Int("filtered_count", filtered.Len()))

	return filtered, nil
}
