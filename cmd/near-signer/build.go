package main

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/near-signer-go/internal/aws"
	"github.com/Layr-Labs/near-signer-go/pkg/auth"
	"github.com/Layr-Labs/near-signer-go/pkg/clients/signerClient"
	"github.com/Layr-Labs/near-signer-go/pkg/config"
	"github.com/Layr-Labs/near-signer-go/pkg/logger"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence/badger"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence/memory"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence/redis"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/Layr-Labs/near-signer-go/pkg/signer/awsKmsSigner"
	"github.com/Layr-Labs/near-signer-go/pkg/signer/inMemorySigner"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// buildSigner creates a local signer for the configured key backend
func buildSigner(ctx context.Context, cfg *config.SignerConfig, l *zap.Logger) (*signer.Signer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid signer configuration: %w", err)
	}

	switch cfg.Backend {
	case config.SignerBackendInMemory:
		return inMemorySigner.NewSigner(cfg.SecretKey, l)
	case config.SignerBackendAWSKMS:
		awsCfg, err := aws.LoadAWSConfig(ctx, awsOptions(cfg))
		if err != nil {
			return nil, err
		}
		return awsKmsSigner.NewSigner(awsCfg, cfg.KMSKeyId, l), nil
	}
	return nil, fmt.Errorf("unsupported signer backend: %s", cfg.Backend)
}

// signerFor returns the remote signer when --url is set, the local one otherwise
func signerFor(c *cli.Context, l *zap.Logger) (signer.ISigner, error) {
	if url := c.String("url"); url != "" {
		return remoteClient(c, l)
	}
	return buildSigner(c.Context, parseSignerConfig(c), l)
}

func remoteClient(c *cli.Context, l *zap.Logger) (*signerClient.Client, error) {
	cfg := signerClient.DefaultConfig()
	cfg.BaseURL = c.String("url")
	cfg.Token = c.String("token")
	return signerClient.NewClient(cfg, l)
}

func buildJournal(cfg *config.PersistenceConfig, l *zap.Logger) (persistence.ISignatureJournal, error) {
	switch cfg.Type {
	case config.PersistenceTypeMemory:
		l.Sugar().Warnw("Using in-memory signature journal, records are lost on restart")
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		return badger.NewBadgerPersistence(cfg.DataPath, l)
	case config.PersistenceTypeRedis:
		return redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
	}
	return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
}

// buildVerifier returns nil when auth is disabled
func buildVerifier(ctx context.Context, cfg *config.AuthConfig, l *zap.Logger) (auth.ITokenVerifier, error) {
	switch cfg.Mode {
	case config.AuthModeNone:
		l.Sugar().Warnw("Bearer token auth is disabled, every client may sign")
		return nil, nil
	case config.AuthModeHMAC:
		return auth.NewHMACVerifier([]byte(cfg.HMACSecret), cfg.Issuer, cfg.Audience)
	case config.AuthModeJWKS:
		return auth.NewJWKSVerifier(ctx, cfg.JWKSURL, cfg.JWKSRefreshInterval, cfg.Issuer, cfg.Audience, l)
	}
	return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
}
