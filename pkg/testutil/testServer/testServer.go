package testServer

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/auth"
	"github.com/Layr-Labs/near-signer-go/pkg/config"
	"github.com/Layr-Labs/near-signer-go/pkg/logger"
	"github.com/Layr-Labs/near-signer-go/pkg/metrics"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence/memory"
	"github.com/Layr-Labs/near-signer-go/pkg/server"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/Layr-Labs/near-signer-go/pkg/signer/inMemorySigner"
	"github.com/Layr-Labs/near-signer-go/pkg/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// HMACSecret signs the tokens the harness hands out
var HMACSecret = []byte("near-signer-test-secret-0123456789abcdef")

const (
	Issuer   = "near-signer-test"
	Audience = "near-signer"
)

// Options tweak the harness. The zero value gives an authenticated server with a
// journal, metrics and no rate limit, signing with the transfer vector key.
type Options struct {
	SecretKey      string
	DisableAuth    bool
	DisableJournal bool
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

// TestSigningService is a signing server on an httptest listener
type TestSigningService struct {
	Server   *server.Server
	HTTP     *httptest.Server
	URL      string
	Journal  *memory.MemoryPersistence
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewTestSigningService starts a server and closes it when the test ends
func NewTestSigningService(t *testing.T, opts *Options) *TestSigningService {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	secretKey := opts.SecretKey
	if secretKey == "" {
		secretKey = testutil.TransferSecretKey
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	base, err := inMemorySigner.NewSigner(secretKey, l)
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}

	svc := &TestSigningService{
		Registry: prometheus.NewRegistry(),
		Logger:   l,
	}
	svc.Metrics = metrics.NewMetrics(svc.Registry)

	deps := &server.Dependencies{
		Signer:   base,
		Metrics:  svc.Metrics,
		Gatherer: svc.Registry,
	}
	if !opts.DisableJournal {
		svc.Journal = memory.NewMemoryPersistence()
		deps.Journal = svc.Journal
		deps.Signer = signer.NewRecordingSigner(base, svc.Journal, l)
	}
	if !opts.DisableAuth {
		verifier, err := auth.NewHMACVerifier(HMACSecret, Issuer, Audience)
		if err != nil {
			t.Fatalf("Failed to create verifier: %v", err)
		}
		deps.Verifier = verifier
	}

	cfg := &config.ServerConfig{
		Port:           config.DefaultPort,
		RateLimitRPS:   opts.RateLimitRPS,
		RateLimitBurst: opts.RateLimitBurst,
		MaxBodyBytes:   opts.MaxBodyBytes,
		EnableMetrics:  true,
	}
	svc.Server, err = server.NewServer(cfg, deps, l)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	svc.HTTP = httptest.NewServer(svc.Server.GetHandler())
	svc.URL = svc.HTTP.URL
	t.Cleanup(svc.Close)

	return svc
}

// Token issues a valid token carrying scopes. No scopes means unrestricted.
func (s *TestSigningService) Token(t *testing.T, scopes ...string) string {
	t.Helper()
	token, err := auth.IssueHMACToken(HMACSecret, "test-client", Issuer, Audience, scopes, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

func (s *TestSigningService) Close() {
	s.HTTP.Close()
	if s.Journal != nil {
		_ = s.Journal.Close()
	}
}
