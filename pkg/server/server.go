package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/auth"
	"github.com/Layr-Labs/near-signer-go/pkg/config"
	"github.com/Layr-Labs/near-signer-go/pkg/metrics"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

/*
Server exposes one signer over HTTP.

  GET  /healthz              liveness, 503 when the journal is unhealthy
  GET  /pubkey               the signer's public key
  POST /sign/transaction     { transaction: base64 borsh Transaction }
  POST /sign/delegate        { delegateAction: base64 borsh DelegateAction }
  POST /sign/message         NEP-413 { accountId, message, nonce, recipient, callbackUrl? }
  POST /verify/message       { signedMessage, message, nonce, recipient, callbackUrl? }
  GET  /signatures/{digest}  journal lookup
  GET  /signatures/root      merkle root over the journal
  GET  /signatures/{digest}/proof
                             inclusion proof for one journaled signature
  GET  /metrics              Prometheus, when a gatherer is configured

Requests pass through request id + access log, then the rate limiter, then bearer
token auth. /healthz and /metrics skip the limiter and auth.
*/

// Dependencies are the collaborators a Server is built from. Only Signer is required.
type Dependencies struct {
	Signer   signer.ISigner
	Journal  persistence.ISignatureJournal
	Verifier auth.ITokenVerifier
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

type Server struct {
	signer       signer.ISigner
	journal      persistence.ISignatureJournal
	verifier     auth.ITokenVerifier
	metrics      *metrics.Metrics
	limiter      *rate.Limiter
	logger       *zap.Logger
	maxBodyBytes int64
	httpServer   *http.Server
}

func NewServer(cfg *config.ServerConfig, deps *Dependencies, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if deps == nil || deps.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		signer:       deps.Signer,
		journal:      deps.Journal,
		verifier:     deps.Verifier,
		metrics:      deps.Metrics,
		logger:       logger,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = config.DefaultMaxBodyBytes
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /pubkey", s.handleGetPublicKey)

	mux.HandleFunc("POST /sign/transaction", s.handleSignTransaction)
	mux.HandleFunc("POST /sign/delegate", s.handleSignDelegate)
	mux.HandleFunc("POST /sign/message", s.handleSignMessage)
	mux.HandleFunc("POST /verify/message", s.handleVerifyMessage)

	mux.HandleFunc("GET /signatures/root", s.handleGetJournalRoot)
	mux.HandleFunc("GET /signatures/{digest}", s.handleGetSignature)
	mux.HandleFunc("GET /signatures/{digest}/proof", s.handleGetSignatureProof)

	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.withRequestLogging(s.withRateLimit(s.withAuth(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return s, nil
}

// Start serves in the background
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Stop() error {
	return s.httpServer.Close()
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
