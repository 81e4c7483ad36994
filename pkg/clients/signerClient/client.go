package signerClient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/merkle"
	"github.com/Layr-Labs/near-signer-go/pkg/nep413"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/Layr-Labs/near-signer-go/pkg/util"
	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 4 << 20

var errBadSignature = errors.New("signer returned a signature that does not verify")

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      2 * time.Second,
	BackoffMultiple: 2.0,
}

type Config struct {
	BaseURL string
	// Token is sent as a bearer token when set
	Token   string
	Timeout time.Duration
	Retry   RetryConfig
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:8080",
		Timeout: 30 * time.Second,
		Retry:   DefaultRetryConfig,
	}
}

// APIError is a non-2xx response the client could not map onto a signer error
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("signer returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("signer returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to a near-signer server over HTTP
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *zap.Logger
}

func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	retry := config.Retry
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		token:       config.Token,
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retry,
		logger:      logger,
	}, nil
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) GetPublicKey(ctx context.Context) (*types.PublicKey, error) {
	var resp types.PublicKeyResponse
	if err := c.do(ctx, http.MethodGet, "/pubkey", nil, &resp); err != nil {
		return nil, err
	}
	pk, err := types.ParsePublicKey(resp.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("signer returned an invalid public key: %w", err)
	}
	return pk, nil
}

// SignTransaction sends the borsh encoding of tx and checks that the returned digest
// and signed transaction are for the same transaction.
func (c *Client) SignTransaction(ctx context.Context, tx *types.Transaction) (types.CryptoHash, *types.SignedTransaction, error) {
	if tx == nil {
		return types.CryptoHash{}, nil, fmt.Errorf("%w: transaction is required", signer.ErrInvalidRequest)
	}
	body, err := encoding.EncodeTransaction(tx)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	var resp types.SignTransactionResponse
	if err := c.do(ctx, http.MethodPost, "/sign/transaction", &types.SignTransactionRequest{Transaction: body}, &resp); err != nil {
		return types.CryptoHash{}, nil, err
	}

	digest, err := checkDigest(resp.Digest, body)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	signed, err := encoding.DecodeSignedTransaction(resp.SignedTransaction)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("signer returned an invalid signed transaction: %w", err)
	}
	returned, err := encoding.EncodeTransaction(&signed.Transaction)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	if !bytes.Equal(returned, body) {
		return types.CryptoHash{}, nil, fmt.Errorf("signer returned a signed transaction for a different transaction")
	}
	if !signed.Transaction.PublicKey.Verify(digest[:], &signed.Signature) {
		return types.CryptoHash{}, nil, errBadSignature
	}
	return digest, signed, nil
}

// SignDelegateAction sends the delegate action body and checks the returned digest and
// signature against the NEP-366 prefixed encoding.
func (c *Client) SignDelegateAction(ctx context.Context, action *types.DelegateAction) (types.CryptoHash, *types.SignedDelegate, error) {
	if action == nil {
		return types.CryptoHash{}, nil, fmt.Errorf("%w: delegate action is required", signer.ErrInvalidRequest)
	}
	body, err := encoding.EncodeDelegateActionBody(action)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	message, err := encoding.EncodeDelegateAction(action)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}

	var resp types.SignDelegateResponse
	if err := c.do(ctx, http.MethodPost, "/sign/delegate", &types.SignDelegateRequest{DelegateAction: body}, &resp); err != nil {
		return types.CryptoHash{}, nil, err
	}

	digest, err := checkDigest(resp.Digest, message)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	signed, err := encoding.DecodeSignedDelegate(resp.SignedDelegate)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("signer returned an invalid signed delegate: %w", err)
	}
	returned, err := encoding.EncodeDelegateActionBody(&signed.DelegateAction)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	if !bytes.Equal(returned, body) {
		return types.CryptoHash{}, nil, fmt.Errorf("signer returned a signed delegate for a different delegate action")
	}
	if !signed.DelegateAction.PublicKey.Verify(digest[:], &signed.Signature) {
		return types.CryptoHash{}, nil, errBadSignature
	}
	return digest, signed, nil
}

func (c *Client) SignNep413Message(ctx context.Context, accountID string, params *types.SignMessageParams) (types.CryptoHash, *types.SignedMessage, error) {
	if params == nil {
		return types.CryptoHash{}, nil, fmt.Errorf("%w: message params are required", signer.ErrInvalidRequest)
	}
	req := &types.SignMessageRequest{
		AccountID:   accountID,
		Message:     params.Message,
		Nonce:       params.Nonce,
		Recipient:   params.Recipient,
		CallbackURL: params.CallbackURL,
	}

	var resp types.SignMessageResponse
	if err := c.do(ctx, http.MethodPost, "/sign/message", req, &resp); err != nil {
		return types.CryptoHash{}, nil, err
	}
	digest, err := types.ParseCryptoHash(resp.Digest)
	if err != nil {
		return types.CryptoHash{}, nil, fmt.Errorf("signer returned an invalid digest: %w", err)
	}
	expected, err := nep413.HashPayload(params)
	if err != nil {
		return types.CryptoHash{}, nil, err
	}
	if digest != expected {
		return types.CryptoHash{}, nil, fmt.Errorf("signer returned digest %s, expected %s", digest, expected)
	}
	signed := resp.SignedMessage
	if !signed.PublicKey.Verify(digest[:], &signed.Signature) {
		return types.CryptoHash{}, nil, errBadSignature
	}
	return digest, &signed, nil
}

func (c *Client) VerifyMessage(ctx context.Context, signed *types.SignedMessage, params *types.SignMessageParams) (bool, error) {
	if signed == nil || params == nil {
		return false, fmt.Errorf("%w: signed message and params are required", signer.ErrInvalidRequest)
	}
	req := &types.VerifyMessageRequest{
		SignedMessage: *signed,
		Message:       params.Message,
		Nonce:         params.Nonce,
		Recipient:     params.Recipient,
		CallbackURL:   params.CallbackURL,
	}
	var resp types.VerifyMessageResponse
	if err := c.do(ctx, http.MethodPost, "/verify/message", req, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

func (c *Client) GetSignatureRecord(ctx context.Context, digest types.CryptoHash) (*persistence.SignatureRecord, error) {
	var rec persistence.SignatureRecord
	err := c.do(ctx, http.MethodGet, "/signatures/"+digest.String(), nil, &rec)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) GetJournalRoot(ctx context.Context) (*types.JournalRootResponse, error) {
	var resp types.JournalRootResponse
	if err := c.do(ctx, http.MethodGet, "/signatures/root", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSignatureProof returns the proof and the root it verifies against. A proof that
// does not verify, or that is for another digest, is an error. The leaf itself is not
// recomputed here; callers holding the record can compare merkle.HashRecord with it.
func (c *Client) GetSignatureProof(ctx context.Context, digest types.CryptoHash) (*merkle.MerkleProof, types.CryptoHash, error) {
	var resp types.SignatureProofResponse
	if err := c.do(ctx, http.MethodGet, "/signatures/"+digest.String()+"/proof", nil, &resp); err != nil {
		return nil, types.CryptoHash{}, err
	}
	if resp.Digest != digest.String() {
		return nil, types.CryptoHash{}, fmt.Errorf("signer returned a proof for digest %q, expected %s", resp.Digest, digest)
	}
	proof := &merkle.MerkleProof{
		LeafIndex: resp.LeafIndex,
		Leaf:      resp.Leaf,
		Proof:     resp.Proof,
	}
	if !merkle.VerifyProof(proof, resp.Root) {
		return nil, types.CryptoHash{}, fmt.Errorf("signer returned a proof that does not verify against root %s", resp.Root)
	}
	return proof, resp.Root, nil
}

// Health returns the health report. A 503 is reported in the response, not as an error.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach signer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health types.HealthResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &health, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	backoff := c.retryConfig.InitialBackoff
	var lastErr error
	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}

		status, respBody, err := c.roundTrip(ctx, method, path, data)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			lastErr = err
			c.logger.Sugar().Debugw("Signer request failed, retrying", "path", path, "attempt", attempt+1, "error", err)
			continue
		}

		if status == http.StatusOK {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}

		lastErr = decodeError(status, respBody)
		if !retryable(status) {
			return lastErr
		}
		c.logger.Sugar().Debugw("Signer unavailable, retrying", "path", path, "attempt", attempt+1, "status", status)
	}

	return fmt.Errorf("signer request failed after %d attempts: %w", c.retryConfig.MaxAttempts, lastErr)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, data []byte) (int, []byte, error) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to reach signer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Sugar().Debugw("Signer returned an error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"request_id", resp.Header.Get("X-Request-Id"),
		)
	}
	return resp.StatusCode, respBody, nil
}

// retryable statuses are the ones a later attempt can succeed on without changing the request
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// decodeError maps the service error codes back onto the local sentinels
func decodeError(status int, body []byte) error {
	var errResp types.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Code == "" {
		return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
	}

	switch errResp.Code {
	case types.ErrorCodeKeyMismatch:
		declared, held := errResp.Details[types.DetailDeclaredKey], errResp.Details[types.DetailHeldKey]
		if declared != "" && held != "" {
			return &signer.KeyMismatchError{Declared: declared, Held: held}
		}
		return fmt.Errorf("%w: %s", signer.ErrKeyMismatch, errResp.Error)
	case types.ErrorCodeInvalidNonce:
		if length, err := strconv.Atoi(errResp.Details[types.DetailNonceLength]); err == nil {
			return &nep413.InvalidNonceError{Length: length}
		}
		return fmt.Errorf("%w: %s", nep413.ErrInvalidNonce, errResp.Error)
	case types.ErrorCodeBadRequest:
		return fmt.Errorf("%w: %s", signer.ErrInvalidRequest, errResp.Error)
	}
	return &APIError{StatusCode: status, Code: errResp.Code, Message: errResp.Error}
}

// checkDigest rejects a response whose digest is not sha256 of what was sent
func checkDigest(returned string, message []byte) (types.CryptoHash, error) {
	digest, err := types.ParseCryptoHash(returned)
	if err != nil {
		return types.CryptoHash{}, fmt.Errorf("signer returned an invalid digest: %w", err)
	}
	if expected := util.Sha256(message); digest != expected {
		return types.CryptoHash{}, fmt.Errorf("signer returned digest %s, expected %s", digest, expected)
	}
	return digest, nil
}
