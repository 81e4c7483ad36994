package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/merkle"
	"github.com/Layr-Labs/near-signer-go/pkg/metrics"
	"github.com/Layr-Labs/near-signer-go/pkg/nep413"
	"github.com/Layr-Labs/near-signer-go/pkg/persistence"
	"github.com/Layr-Labs/near-signer-go/pkg/signer"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
)

// errDecode marks a request body whose borsh payload could not be parsed
var errDecode = errors.New("malformed payload")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{Status: "ok"}

	pk, err := s.signer.GetPublicKey(r.Context())
	if err != nil {
		s.logger.Sugar().Warnw("Health check failed to read public key", "error", err)
		resp.Status = "unavailable"
		resp.Error = "signer unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.PublicKey = pk.String()

	if s.journal != nil {
		if err := s.journal.HealthCheck(); err != nil {
			s.logger.Sugar().Warnw("Health check failed on journal", "error", err)
			resp.Status = "unavailable"
			resp.Error = "journal unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPublicKey(w http.ResponseWriter, r *http.Request) {
	pk, err := s.signer.GetPublicKey(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PublicKeyResponse{
		PublicKey: pk.String(),
		KeyType:   pk.KeyType().String(),
	})
}

func (s *Server) handleSignTransaction(w http.ResponseWriter, r *http.Request) {
	var req types.SignTransactionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	tx, err := encoding.DecodeTransaction(req.Transaction)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errDecode, err))
		return
	}

	start := time.Now()
	digest, signed, err := s.signer.SignTransaction(r.Context(), tx)
	s.metrics.ObserveSignature(string(persistence.ArtifactKindTransaction), signResult(err), time.Since(start))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := encoding.EncodeSignedTransaction(signed)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to encode signed transaction: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, types.SignTransactionResponse{
		Digest:            digest.String(),
		SignedTransaction: data,
		Signature:         signed.Signature.String(),
	})
}

func (s *Server) handleSignDelegate(w http.ResponseWriter, r *http.Request) {
	var req types.SignDelegateRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	action, err := encoding.DecodeDelegateAction(req.DelegateAction)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", errDecode, err))
		return
	}

	start := time.Now()
	digest, signed, err := s.signer.SignDelegateAction(r.Context(), action)
	s.metrics.ObserveSignature(string(persistence.ArtifactKindDelegate), signResult(err), time.Since(start))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := encoding.EncodeSignedDelegate(signed)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to encode signed delegate: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, types.SignDelegateResponse{
		Digest:         digest.String(),
		SignedDelegate: data,
		Signature:      signed.Signature.String(),
	})
}

func (s *Server) handleSignMessage(w http.ResponseWriter, r *http.Request) {
	var req types.SignMessageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	start := time.Now()
	digest, signed, err := s.signer.SignNep413Message(r.Context(), req.AccountID, req.Params())
	s.metrics.ObserveSignature(string(persistence.ArtifactKindMessage), signResult(err), time.Since(start))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.SignMessageResponse{
		Digest:        digest.String(),
		SignedMessage: *signed,
	})
}

func (s *Server) handleVerifyMessage(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyMessageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	valid, err := nep413.VerifySignedMessage(&req.SignedMessage, req.Params())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.VerifyMessageResponse{Valid: valid})
}

func (s *Server) handleGetSignature(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeErrorResponse(w, http.StatusNotFound, types.ErrorCodeNotFound, "signature journal is disabled")
		return
	}
	digest := r.PathValue("digest")
	if _, err := types.ParseCryptoHash(digest); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, types.ErrorCodeBadRequest, "digest must be a base58 hash")
		return
	}

	rec, err := s.journal.LoadRecord(digest)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to load signature record: %w", err))
		return
	}
	if rec == nil {
		writeErrorResponse(w, http.StatusNotFound, types.ErrorCodeNotFound, "no signature recorded for digest")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGetJournalRoot(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.journalTree(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.JournalRootResponse{Root: tree.Root, Count: len(tree.Leaves)})
}

func (s *Server) handleGetSignatureProof(w http.ResponseWriter, r *http.Request) {
	digest := r.PathValue("digest")
	if _, err := types.ParseCryptoHash(digest); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, types.ErrorCodeBadRequest, "digest must be a base58 hash")
		return
	}
	tree, ok := s.journalTree(w, r)
	if !ok {
		return
	}
	proof, err := tree.ProofForDigest(digest)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, types.ErrorCodeNotFound, "no signature recorded for digest")
		return
	}
	writeJSON(w, http.StatusOK, types.SignatureProofResponse{
		Digest:    digest,
		Root:      tree.Root,
		LeafIndex: proof.LeafIndex,
		Leaf:      proof.Leaf,
		Proof:     proof.Proof,
	})
}

// journalTree builds the merkle tree over the current journal contents, writing the
// error response when there is nothing to build it from
func (s *Server) journalTree(w http.ResponseWriter, r *http.Request) (*merkle.MerkleTree, bool) {
	if s.journal == nil {
		writeErrorResponse(w, http.StatusNotFound, types.ErrorCodeNotFound, "signature journal is disabled")
		return nil, false
	}
	records, err := s.journal.ListRecords(nil)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to list signature records: %w", err))
		return nil, false
	}
	if len(records) == 0 {
		writeErrorResponse(w, http.StatusNotFound, types.ErrorCodeNotFound, "signature journal is empty")
		return nil, false
	}
	tree, err := merkle.BuildMerkleTree(records)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("failed to build journal tree: %w", err))
		return nil, false
	}
	return tree, true
}

// decodeBody reads a size limited JSON body into dst, writing the error response on failure
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErrorResponse(w, http.StatusRequestEntityTooLarge, types.ErrorCodeTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeErrorResponse(w, http.StatusBadRequest, types.ErrorCodeBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeError maps signer errors onto status codes. Unclassified errors are logged and
// reported as internal without their message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var mismatch *signer.KeyMismatchError
	var badNonce *nep413.InvalidNonceError
	switch {
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusConflict, types.ErrorResponse{
			Error: mismatch.Error(),
			Code:  types.ErrorCodeKeyMismatch,
			Details: map[string]string{
				types.DetailDeclaredKey: mismatch.Declared,
				types.DetailHeldKey:     mismatch.Held,
			},
		})
	case errors.As(err, &badNonce):
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{
			Error:   badNonce.Error(),
			Code:    types.ErrorCodeInvalidNonce,
			Details: map[string]string{types.DetailNonceLength: strconv.Itoa(badNonce.Length)},
		})
	case errors.Is(err, nep413.ErrInvalidNonce):
		writeErrorResponse(w, http.StatusBadRequest, types.ErrorCodeInvalidNonce, err.Error())
	case errors.Is(err, signer.ErrInvalidRequest), errors.Is(err, errDecode):
		writeErrorResponse(w, http.StatusBadRequest, types.ErrorCodeBadRequest, err.Error())
	case errors.Is(err, persistence.ErrJournalClosed):
		writeErrorResponse(w, http.StatusServiceUnavailable, types.ErrorCodeUnavailable, "signature journal is unavailable")
	default:
		s.logger.Sugar().Errorw("Request failed",
			"path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeErrorResponse(w, http.StatusInternalServerError, types.ErrorCodeInternal, "internal error")
	}
}

func signResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, signer.ErrKeyMismatch):
		return metrics.ResultMismatch
	case errors.Is(err, signer.ErrInvalidRequest), errors.Is(err, nep413.ErrInvalidNonce):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, types.ErrorResponse{Error: message, Code: code})
}

// metricsPath collapses request paths into a bounded label set
func metricsPath(path string) string {
	switch path {
	case "/healthz", "/pubkey", "/sign/transaction", "/sign/delegate", "/sign/message", "/verify/message", "/metrics":
		return path
	}
	if path == "/signatures/root" {
		return path
	}
	if strings.HasPrefix(path, "/signatures/") {
		if strings.HasSuffix(path, "/proof") {
			return "/signatures/{digest}/proof"
		}
		return "/signatures/{digest}"
	}
	return "other"
}
