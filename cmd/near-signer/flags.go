package main

import (
	"github.com/Layr-Labs/near-signer-go/internal/aws"
	"github.com/Layr-Labs/near-signer-go/pkg/config"
	"github.com/urfave/cli/v2"
)

func messageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "message",
			Usage:    "Message text",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "nonce",
			Usage:    "32 byte nonce as base64",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "recipient",
			Usage:    "Recipient the message is intended for",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "callback-url",
			Usage: "Optional callback url",
		},
	}
}

func authFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "auth-mode",
			Usage:   "Bearer token verification: none, hmac or jwks",
			Value:   config.AuthModeNone.String(),
			EnvVars: []string{config.EnvSignerAuthMode},
		},
		&cli.StringFlag{
			Name:    "auth-hmac-secret",
			Usage:   "Shared HS256 secret, at least 32 bytes",
			EnvVars: []string{config.EnvSignerAuthHMACSecret},
		},
		&cli.StringFlag{
			Name:    "auth-jwks-url",
			Usage:   "JWKS endpoint for jwks auth",
			EnvVars: []string{config.EnvSignerAuthJWKSURL},
		},
		&cli.DurationFlag{
			Name:    "auth-jwks-refresh",
			Usage:   "JWKS refresh interval",
			Value:   config.DefaultJWKSRefreshInterval,
			EnvVars: []string{config.EnvSignerAuthJWKSRefresh},
		},
		&cli.StringFlag{
			Name:    "auth-issuer",
			Usage:   "Required token issuer",
			EnvVars: []string{config.EnvSignerAuthIssuer},
		},
		&cli.StringFlag{
			Name:    "auth-audience",
			Usage:   "Required token audience",
			EnvVars: []string{config.EnvSignerAuthAudience},
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   config.DefaultPort,
			Usage:   "HTTP server port",
			EnvVars: []string{config.EnvSignerPort},
		},
		&cli.Float64Flag{
			Name:    "rate-limit-rps",
			Value:   config.DefaultRateLimitRPS,
			Usage:   "Sustained requests per second across all clients, 0 disables the limiter",
			EnvVars: []string{config.EnvSignerRateLimitRPS},
		},
		&cli.IntFlag{
			Name:    "rate-limit-burst",
			Value:   config.DefaultRateLimitBurst,
			Usage:   "Rate limiter burst",
			EnvVars: []string{config.EnvSignerRateLimitBurst},
		},
		&cli.Int64Flag{
			Name:    "max-body-bytes",
			Value:   config.DefaultMaxBodyBytes,
			Usage:   "Maximum request body size",
			EnvVars: []string{config.EnvSignerMaxBodyBytes},
		},
		&cli.BoolFlag{
			Name:    "enable-metrics",
			Usage:   "Serve Prometheus metrics on /metrics",
			EnvVars: []string{config.EnvSignerEnableMetrics},
		},
		&cli.StringFlag{
			Name:    "persistence-type",
			Value:   config.PersistenceTypeMemory.String(),
			Usage:   "Signature journal backend: memory, badger or redis",
			EnvVars: []string{config.EnvSignerPersistenceType},
		},
		&cli.StringFlag{
			Name:    "data-path",
			Usage:   "Badger data directory",
			EnvVars: []string{config.EnvSignerPersistenceDataPath},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis host:port",
			EnvVars: []string{config.EnvSignerRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{config.EnvSignerRedisPassword},
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			EnvVars: []string{config.EnvSignerRedisDB},
		},
		&cli.StringFlag{
			Name:    "redis-key-prefix",
			Usage:   "Prefix for every journal key",
			EnvVars: []string{config.EnvSignerRedisKeyPrefix},
		},
	}
}

func parseSignerConfig(c *cli.Context) *config.SignerConfig {
	return &config.SignerConfig{
		Backend:     config.SignerBackend(c.String("backend")),
		SecretKey:   c.String("secret-key"),
		KMSKeyId:    c.String("kms-key-id"),
		AWSRegion:   c.String("aws-region"),
		AWSProfile:  c.String("aws-profile"),
		KMSEndpoint: c.String("kms-endpoint"),
	}
}

func awsOptions(cfg *config.SignerConfig) *aws.Options {
	return &aws.Options{
		Region:   cfg.AWSRegion,
		Profile:  cfg.AWSProfile,
		Endpoint: cfg.KMSEndpoint,
	}
}

func parseAuthConfig(c *cli.Context) *config.AuthConfig {
	return &config.AuthConfig{
		Mode:                config.AuthMode(c.String("auth-mode")),
		HMACSecret:          c.String("auth-hmac-secret"),
		JWKSURL:             c.String("auth-jwks-url"),
		JWKSRefreshInterval: c.Duration("auth-jwks-refresh"),
		Issuer:              c.String("auth-issuer"),
		Audience:            c.String("auth-audience"),
	}
}

func parseServerConfig(c *cli.Context) *config.SignerServerConfig {
	return &config.SignerServerConfig{
		Signer: *parseSignerConfig(c),
		Persistence: config.PersistenceConfig{
			Type:     config.PersistenceType(c.String("persistence-type")),
			DataPath: c.String("data-path"),
			Redis: config.RedisConfig{
				Address:   c.String("redis-address"),
				Password:  c.String("redis-password"),
				DB:        c.Int("redis-db"),
				KeyPrefix: c.String("redis-key-prefix"),
			},
		},
		Server: config.ServerConfig{
			Port:           c.Int("port"),
			RateLimitRPS:   c.Float64("rate-limit-rps"),
			RateLimitBurst: c.Int("rate-limit-burst"),
			MaxBodyBytes:   c.Int64("max-body-bytes"),
			EnableMetrics:  c.Bool("enable-metrics"),
		},
		Auth:  *parseAuthConfig(c),
		Debug: c.Bool("verbose"),
	}
}
