package types

// Wire types of the signing service. Byte fields travel as standard base64.

type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
	KeyType   string `json:"keyType"`
}

type SignTransactionRequest struct {
	// Transaction is the borsh encoded unsigned transaction
	Transaction []byte `json:"transaction"`
}

type SignTransactionResponse struct {
	Digest            string `json:"digest"`
	SignedTransaction []byte `json:"signedTransaction"`
	Signature         string `json:"signature"`
}

type SignDelegateRequest struct {
	// DelegateAction is the borsh encoded delegate action, without the NEP-366 prefix
	DelegateAction []byte `json:"delegateAction"`
}

type SignDelegateResponse struct {
	Digest         string `json:"digest"`
	SignedDelegate []byte `json:"signedDelegate"`
	Signature      string `json:"signature"`
}

type SignMessageRequest struct {
	AccountID   string  `json:"accountId"`
	Message     string  `json:"message"`
	Nonce       []byte  `json:"nonce"`
	Recipient   string  `json:"recipient"`
	CallbackURL *string `json:"callbackUrl,omitempty"`
}

func (r *SignMessageRequest) Params() *SignMessageParams {
	return &SignMessageParams{
		Message:     r.Message,
		Nonce:       r.Nonce,
		Recipient:   r.Recipient,
		CallbackURL: r.CallbackURL,
	}
}

type SignMessageResponse struct {
	Digest        string        `json:"digest"`
	SignedMessage SignedMessage `json:"signedMessage"`
}

type VerifyMessageRequest struct {
	SignedMessage SignedMessage `json:"signedMessage"`
	Message       string        `json:"message"`
	Nonce         []byte        `json:"nonce"`
	Recipient     string        `json:"recipient"`
	CallbackURL   *string       `json:"callbackUrl,omitempty"`
}

func (r *VerifyMessageRequest) Params() *SignMessageParams {
	return &SignMessageParams{
		Message:     r.Message,
		Nonce:       r.Nonce,
		Recipient:   r.Recipient,
		CallbackURL: r.CallbackURL,
	}
}

// JournalRootResponse is the merkle root over every journaled signature
type JournalRootResponse struct {
	Root  CryptoHash `json:"root"`
	Count int        `json:"count"`
}

// SignatureProofResponse proves a journaled signature is included under Root
type SignatureProofResponse struct {
	Digest    string       `json:"digest"`
	Root      CryptoHash   `json:"root"`
	LeafIndex int          `json:"leafIndex"`
	Leaf      CryptoHash   `json:"leaf"`
	Proof     []CryptoHash `json:"proof"`
}

type VerifyMessageResponse struct {
	Valid bool `json:"valid"`
}

// Error codes carried in ErrorResponse.Code
const (
	ErrorCodeKeyMismatch  = "key_mismatch"
	ErrorCodeInvalidNonce = "invalid_nonce"
	ErrorCodeBadRequest   = "bad_request"
	ErrorCodeUnauthorized = "unauthorized"
	ErrorCodeForbidden    = "forbidden"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeRateLimited  = "rate_limited"
	ErrorCodeTooLarge     = "request_too_large"
	ErrorCodeUnavailable  = "unavailable"
	ErrorCodeInternal     = "internal"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// Details carries the fields of typed errors, e.g. declared and held for key_mismatch
	Details map[string]string `json:"details,omitempty"`
}

// Detail keys
const (
	DetailDeclaredKey = "declared"
	DetailHeldKey     = "held"
	DetailNonceLength = "length"
)

type HealthResponse struct {
	Status    string `json:"status"`
	PublicKey string `json:"publicKey,omitempty"`
	Error     string `json:"error,omitempty"`
}
