package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixSignature   = "near:sig:"
	keySchemaVersion     = "near:metadata:schema_version"
	currentSchemaVersion = "v1"

	// digests scored by CreatedAt in unix milliseconds, so listing comes back in signing order
	keyIndexByTime = "near:sigs:by_time"
)

// RedisPersistence is a signature journal shared by every signer pointed at the same Redis.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ISignatureJournal = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is prepended to every key, e.g. "signer-a:" gives "signer-a:near:sig:<digest>".
	KeyPrefix string
}

// NewRedisPersistence connects to Redis and initializes the schema version.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized",
		"address", cfg.Address,
		"db", cfg.DB,
		"key_prefix", cfg.KeyPrefix,
	)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisPersistence) recordKey(digest string) string {
	return r.prefixKey(keyPrefixSignature + digest)
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// SaveRecord stores the record and indexes its digest in one pipeline
func (r *RedisPersistence) SaveRecord(record *persistence.SignatureRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil SignatureRecord")
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid SignatureRecord: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrJournalClosed
	}

	ctx := context.Background()

	data, err := persistence.MarshalSignatureRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SignatureRecord: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.recordKey(record.Digest), data, 0)
	pipe.ZAdd(ctx, r.prefixKey(keyIndexByTime), redis.Z{
		Score:  float64(record.CreatedAt.UnixMilli()),
		Member: record.Digest,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save SignatureRecord: %w", err)
	}

	return nil
}

// LoadRecord retrieves a record by digest
func (r *RedisPersistence) LoadRecord(digest string) (*persistence.SignatureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrJournalClosed
	}

	data, err := r.client.Get(context.Background(), r.recordKey(digest)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load SignatureRecord: %w", err)
	}

	record, err := persistence.UnmarshalSignatureRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal SignatureRecord: %w", err)
	}

	return record, nil
}

// ListRecords walks the time index oldest first and fetches the records with MGET
func (r *RedisPersistence) ListRecords(filter *persistence.RecordFilter) ([]*persistence.SignatureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrJournalClosed
	}

	ctx := context.Background()
	indexKey := r.prefixKey(keyIndexByTime)

	digests, err := r.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list SignatureRecord digests: %w", err)
	}

	if len(digests) == 0 {
		return []*persistence.SignatureRecord{}, nil
	}

	keys := make([]string, len(digests))
	for i, digest := range digests {
		keys[i] = r.recordKey(digest)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch SignatureRecords: %w", err)
	}

	var records []*persistence.SignatureRecord
	for i, val := range values {
		if val == nil {
			// indexed but missing, drop the stale index entry
			r.client.ZRem(ctx, indexKey, digests[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for SignatureRecord", "key", keys[i])
			continue
		}

		record, err := persistence.UnmarshalSignatureRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal SignatureRecord, skipping",
				"key", keys[i], "error", err)
			continue
		}

		if filter.Matches(record) {
			records = append(records, record)
		}
	}

	return persistence.SortAndLimit(records, filter), nil
}

// DeleteRecord removes a record and its index entry
func (r *RedisPersistence) DeleteRecord(digest string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrJournalClosed
	}

	ctx := context.Background()
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.recordKey(digest))
	pipe.ZRem(ctx, r.prefixKey(keyIndexByTime), digest)

	_, err := pipe.Exec(ctx)
	return err
}

// Close shuts down the persistence layer
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck pings Redis and checks the schema version is present
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrJournalClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	if err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}

	return nil
}
