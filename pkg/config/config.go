package config

import (
	"fmt"
	"net/url"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for signer configuration
const (
	EnvSignerBackend     = "NEAR_SIGNER_BACKEND"
	EnvSignerSecretKey   = "NEAR_SIGNER_SECRET_KEY"
	EnvSignerKMSKeyId    = "NEAR_SIGNER_KMS_KEY_ID"
	EnvSignerAWSRegion   = "NEAR_SIGNER_AWS_REGION"
	EnvSignerAWSProfile  = "NEAR_SIGNER_AWS_PROFILE"
	EnvSignerKMSEndpoint = "NEAR_SIGNER_KMS_ENDPOINT"

	EnvSignerPersistenceType     = "NEAR_SIGNER_PERSISTENCE_TYPE"
	EnvSignerPersistenceDataPath = "NEAR_SIGNER_PERSISTENCE_DATA_PATH"
	EnvSignerRedisAddress        = "NEAR_SIGNER_REDIS_ADDRESS"
	EnvSignerRedisPassword       = "NEAR_SIGNER_REDIS_PASSWORD"
	EnvSignerRedisDB             = "NEAR_SIGNER_REDIS_DB"
	EnvSignerRedisKeyPrefix      = "NEAR_SIGNER_REDIS_KEY_PREFIX"

	EnvSignerPort           = "NEAR_SIGNER_PORT"
	EnvSignerRateLimitRPS   = "NEAR_SIGNER_RATE_LIMIT_RPS"
	EnvSignerRateLimitBurst = "NEAR_SIGNER_RATE_LIMIT_BURST"
	EnvSignerMaxBodyBytes   = "NEAR_SIGNER_MAX_BODY_BYTES"
	EnvSignerEnableMetrics  = "NEAR_SIGNER_ENABLE_METRICS"

	EnvSignerAuthMode        = "NEAR_SIGNER_AUTH_MODE"
	EnvSignerAuthHMACSecret  = "NEAR_SIGNER_AUTH_HMAC_SECRET"
	EnvSignerAuthJWKSURL     = "NEAR_SIGNER_AUTH_JWKS_URL"
	EnvSignerAuthJWKSRefresh = "NEAR_SIGNER_AUTH_JWKS_REFRESH"
	EnvSignerAuthIssuer      = "NEAR_SIGNER_AUTH_ISSUER"
	EnvSignerAuthAudience    = "NEAR_SIGNER_AUTH_AUDIENCE"
	EnvSignerServerURL       = "NEAR_SIGNER_URL"
	EnvSignerServerToken     = "NEAR_SIGNER_TOKEN"
	EnvSignerVerbose         = "NEAR_SIGNER_VERBOSE"
)

// SignerBackend selects where the signing key lives.
type SignerBackend string

func (s SignerBackend) String() string {
	return string(s)
}

const (
	SignerBackendInMemory SignerBackend = "inMemory"
	SignerBackendAWSKMS   SignerBackend = "awsKms"
)

func ParseSignerBackend(s string) (SignerBackend, error) {
	switch SignerBackend(s) {
	case SignerBackendInMemory, SignerBackendAWSKMS:
		return SignerBackend(s), nil
	default:
		return "", fmt.Errorf("unsupported signer backend: %s", s)
	}
}

// PersistenceType selects the signature journal backend.
type PersistenceType string

func (p PersistenceType) String() string {
	return string(p)
}

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

func ParsePersistenceType(s string) (PersistenceType, error) {
	switch PersistenceType(s) {
	case PersistenceTypeMemory, PersistenceTypeBadger, PersistenceTypeRedis:
		return PersistenceType(s), nil
	default:
		return "", fmt.Errorf("unsupported persistence type: %s", s)
	}
}

// AuthMode selects how bearer tokens are verified.
type AuthMode string

func (a AuthMode) String() string {
	return string(a)
}

const (
	AuthModeNone AuthMode = "none"
	AuthModeHMAC AuthMode = "hmac"
	AuthModeJWKS AuthMode = "jwks"
)

func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case AuthModeNone, AuthModeHMAC, AuthModeJWKS:
		return AuthMode(s), nil
	default:
		return "", fmt.Errorf("unsupported auth mode: %s", s)
	}
}

// Defaults
const (
	DefaultPort                = 8080
	DefaultRateLimitRPS        = 50.0
	DefaultRateLimitBurst      = 100
	DefaultMaxBodyBytes        = 1 << 20
	DefaultJWKSRefreshInterval = 15 * time.Minute
	MinHMACSecretLength        = 32
)

type SignerConfig struct {
	Backend SignerBackend `json:"backend"`
	// SecretKey is "<keytype>:<base58>" for the inMemory backend.
	SecretKey string `json:"-"`
	// KMSKeyId is a key id, ARN or alias for the awsKms backend.
	KMSKeyId   string `json:"kmsKeyId"`
	AWSRegion  string `json:"awsRegion"`
	AWSProfile string `json:"awsProfile"`
	// KMSEndpoint overrides the KMS endpoint, mostly for localstack
	KMSEndpoint string `json:"kmsEndpoint"`
}

func (sc *SignerConfig) Validate() error {
	return aggregate(sc.validate(field.NewPath("signer")))
}

func (sc *SignerConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch sc.Backend {
	case SignerBackendInMemory:
		if sc.SecretKey == "" {
			allErrors = append(allErrors, field.Required(path.Child("secretKey"), "secretKey is required for the inMemory backend"))
		}
	case SignerBackendAWSKMS:
		if sc.KMSKeyId == "" {
			allErrors = append(allErrors, field.Required(path.Child("kmsKeyId"), "kmsKeyId is required for the awsKms backend"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("backend"), sc.Backend,
			[]string{SignerBackendInMemory.String(), SignerBackendAWSKMS.String()}))
	}
	return allErrors
}

type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"-"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"keyPrefix"`
}

type PersistenceConfig struct {
	Type     PersistenceType `json:"type"`
	DataPath string          `json:"dataPath"`
	Redis    RedisConfig     `json:"redis"`
}

func (pc *PersistenceConfig) Validate() error {
	return aggregate(pc.validate(field.NewPath("persistence")))
}

func (pc *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch pc.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if pc.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if pc.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("redis", "address"), "address is required for redis persistence"))
		}
		if pc.Redis.DB < 0 || pc.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(path.Child("redis", "db"), pc.Redis.DB, "must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), pc.Type,
			[]string{PersistenceTypeMemory.String(), PersistenceTypeBadger.String(), PersistenceTypeRedis.String()}))
	}
	return allErrors
}

type ServerConfig struct {
	Port           int     `json:"port"`
	RateLimitRPS   float64 `json:"rateLimitRps"`
	RateLimitBurst int     `json:"rateLimitBurst"`
	MaxBodyBytes   int64   `json:"maxBodyBytes"`
	EnableMetrics  bool    `json:"enableMetrics"`
}

func (sc *ServerConfig) Validate() error {
	return aggregate(sc.validate(field.NewPath("server")))
}

func (sc *ServerConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if sc.Port < 1 || sc.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(path.Child("port"), sc.Port, "must be between 1-65535"))
	}
	if sc.RateLimitRPS < 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("rateLimitRps"), sc.RateLimitRPS, "must not be negative"))
	}
	if sc.RateLimitRPS > 0 && sc.RateLimitBurst < 1 {
		allErrors = append(allErrors, field.Invalid(path.Child("rateLimitBurst"), sc.RateLimitBurst, "must be positive when rate limiting is enabled"))
	}
	if sc.MaxBodyBytes <= 0 {
		allErrors = append(allErrors, field.Invalid(path.Child("maxBodyBytes"), sc.MaxBodyBytes, "must be positive"))
	}
	return allErrors
}

type AuthConfig struct {
	Mode                AuthMode      `json:"mode"`
	HMACSecret          string        `json:"-"`
	JWKSURL             string        `json:"jwksUrl"`
	JWKSRefreshInterval time.Duration `json:"jwksRefreshInterval"`
	Issuer              string        `json:"issuer"`
	Audience            string        `json:"audience"`
}

func (ac *AuthConfig) Validate() error {
	return aggregate(ac.validate(field.NewPath("auth")))
}

func (ac *AuthConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch ac.Mode {
	case AuthModeNone:
	case AuthModeHMAC:
		if len(ac.HMACSecret) < MinHMACSecretLength {
			allErrors = append(allErrors, field.Invalid(path.Child("hmacSecret"), "<redacted>",
				fmt.Sprintf("must be at least %d bytes", MinHMACSecretLength)))
		}
	case AuthModeJWKS:
		if ac.JWKSURL == "" {
			allErrors = append(allErrors, field.Required(path.Child("jwksUrl"), "jwksUrl is required for jwks auth"))
		} else if u, err := url.Parse(ac.JWKSURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			allErrors = append(allErrors, field.Invalid(path.Child("jwksUrl"), ac.JWKSURL, "must be an http(s) URL"))
		}
		if ac.JWKSRefreshInterval < 0 {
			allErrors = append(allErrors, field.Invalid(path.Child("jwksRefreshInterval"), ac.JWKSRefreshInterval.String(), "must not be negative"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("mode"), ac.Mode,
			[]string{AuthModeNone.String(), AuthModeHMAC.String(), AuthModeJWKS.String()}))
	}
	return allErrors
}

// SignerServerConfig is the complete configuration of the signing service
type SignerServerConfig struct {
	Signer      SignerConfig      `json:"signer"`
	Persistence PersistenceConfig `json:"persistence"`
	Server      ServerConfig      `json:"server"`
	Auth        AuthConfig        `json:"auth"`
	Debug       bool              `json:"debug"`
}

// NewDefaultSignerServerConfig returns a config with every optional field defaulted.
func NewDefaultSignerServerConfig() *SignerServerConfig {
	return &SignerServerConfig{
		Signer:      SignerConfig{Backend: SignerBackendInMemory},
		Persistence: PersistenceConfig{Type: PersistenceTypeMemory},
		Server: ServerConfig{
			Port:           DefaultPort,
			RateLimitRPS:   DefaultRateLimitRPS,
			RateLimitBurst: DefaultRateLimitBurst,
			MaxBodyBytes:   DefaultMaxBodyBytes,
		},
		Auth: AuthConfig{
			Mode:                AuthModeNone,
			JWKSRefreshInterval: DefaultJWKSRefreshInterval,
		},
	}
}

// Validate reports every problem across all sections at once
func (c *SignerServerConfig) Validate() error {
	var allErrors field.ErrorList
	allErrors = append(allErrors, c.Signer.validate(field.NewPath("signer"))...)
	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)
	allErrors = append(allErrors, c.Server.validate(field.NewPath("server"))...)
	allErrors = append(allErrors, c.Auth.validate(field.NewPath("auth"))...)
	return aggregate(allErrors)
}

func aggregate(allErrors field.ErrorList) error {
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
