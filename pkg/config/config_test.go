package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *SignerServerConfig {
	cfg := NewDefaultSignerServerConfig()
	cfg.Signer.SecretKey = "ed25519:3hoMW1HvnRLSFCLZnvPzWeoGwtdHzke34B2cTHM8rhcbG3TbuLKtShTv3DvyejnXKXKBiV7YPkLeqUHN1ghnqpFv"
	return cfg
}

func Test_ParseEnums(t *testing.T) {
	t.Run("Should parse known values", func(t *testing.T) {
		b, err := ParseSignerBackend("awsKms")
		require.NoError(t, err)
		assert.Equal(t, SignerBackendAWSKMS, b)

		p, err := ParsePersistenceType("badger")
		require.NoError(t, err)
		assert.Equal(t, PersistenceTypeBadger, p)

		a, err := ParseAuthMode("jwks")
		require.NoError(t, err)
		assert.Equal(t, AuthModeJWKS, a)
	})

	t.Run("Should reject unknown values", func(t *testing.T) {
		_, err := ParseSignerBackend("vault")
		require.Error(t, err)
		_, err = ParsePersistenceType("postgres")
		require.Error(t, err)
		_, err = ParseAuthMode("basic")
		require.Error(t, err)
	})
}

func Test_SignerServerConfig_Validate(t *testing.T) {
	t.Run("Should accept the defaults with a secret key", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("Should require a secret key for the in-memory backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.Signer.SecretKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signer.secretKey")
	})

	t.Run("Should require a key id for the KMS backend", func(t *testing.T) {
		cfg := validConfig()
		cfg.Signer.Backend = SignerBackendAWSKMS
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "signer.kmsKeyId")
	})

	t.Run("Should report every invalid section at once", func(t *testing.T) {
		cfg := validConfig()
		cfg.Persistence.Type = PersistenceTypeRedis
		cfg.Server.Port = 0
		cfg.Auth.Mode = AuthModeHMAC
		cfg.Auth.HMACSecret = "short"

		err := cfg.Validate()
		require.Error(t, err)
		msg := err.Error()
		assert.Contains(t, msg, "persistence.redis.address")
		assert.Contains(t, msg, "server.port")
		assert.Contains(t, msg, "auth.hmacSecret")
		assert.NotContains(t, msg, "short")
	})

	t.Run("Should reject unsupported enum values", func(t *testing.T) {
		cfg := validConfig()
		cfg.Persistence.Type = "postgres"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "persistence.type")
	})
}

func Test_PersistenceConfig_Validate(t *testing.T) {
	t.Run("Should require a data path for badger", func(t *testing.T) {
		pc := &PersistenceConfig{Type: PersistenceTypeBadger}
		require.Error(t, pc.Validate())
		pc.DataPath = "/var/lib/near-signer"
		require.NoError(t, pc.Validate())
	})

	t.Run("Should bound the redis db", func(t *testing.T) {
		pc := &PersistenceConfig{Type: PersistenceTypeRedis, Redis: RedisConfig{Address: "localhost:6379", DB: 16}}
		err := pc.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "persistence.redis.db")
	})
}

func Test_ServerConfig_Validate(t *testing.T) {
	t.Run("Should allow disabling the rate limiter", func(t *testing.T) {
		sc := &ServerConfig{Port: 8080, MaxBodyBytes: 1024}
		require.NoError(t, sc.Validate())
	})

	t.Run("Should require a burst when rate limiting", func(t *testing.T) {
		sc := &ServerConfig{Port: 8080, RateLimitRPS: 5, MaxBodyBytes: 1024}
		err := sc.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.rateLimitBurst")
	})
}

func Test_AuthConfig_Validate(t *testing.T) {
	t.Run("Should accept a long enough HMAC secret", func(t *testing.T) {
		ac := &AuthConfig{Mode: AuthModeHMAC, HMACSecret: strings.Repeat("k", MinHMACSecretLength)}
		require.NoError(t, ac.Validate())
	})

	t.Run("Should require an http JWKS url", func(t *testing.T) {
		ac := &AuthConfig{Mode: AuthModeJWKS}
		require.Error(t, ac.Validate())

		ac.JWKSURL = "file:///etc/jwks.json"
		require.Error(t, ac.Validate())

		ac.JWKSURL = "https://issuer.example.com/.well-known/jwks.json"
		require.NoError(t, ac.Validate())
	})
}
