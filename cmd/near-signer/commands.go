package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Layr-Labs/near-signer-go/internal/aws"
	"github.com/Layr-Labs/near-signer-go/pkg/auth"
	"github.com/Layr-Labs/near-signer-go/pkg/config"
	"github.com/Layr-Labs/near-signer-go/pkg/encoding"
	"github.com/Layr-Labs/near-signer-go/pkg/merkle"
	"github.com/Layr-Labs/near-signer-go/pkg/nep413"
	"github.com/Layr-Labs/near-signer-go/pkg/signer/awsKmsSigner"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/Layr-Labs/near-signer-go/pkg/util"
	"github.com/urfave/cli/v2"
)

func publicKeyCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	s, err := signerFor(c, l)
	if err != nil {
		return err
	}
	pk, err := s.GetPublicKey(c.Context)
	if err != nil {
		return fmt.Errorf("failed to get public key: %w", err)
	}
	return printJSON(types.PublicKeyResponse{PublicKey: pk.String(), KeyType: pk.KeyType().String()})
}

func signTransactionCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	data, err := readBytesArg(c.String("transaction"))
	if err != nil {
		return err
	}
	tx, err := encoding.DecodeTransaction(data)
	if err != nil {
		return err
	}

	s, err := signerFor(c, l)
	if err != nil {
		return err
	}
	digest, signed, err := s.SignTransaction(c.Context, tx)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	out, err := encoding.EncodeSignedTransaction(signed)
	if err != nil {
		return err
	}
	return printJSON(types.SignTransactionResponse{
		Digest:            digest.String(),
		SignedTransaction: out,
		Signature:         signed.Signature.String(),
	})
}

func signDelegateCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	data, err := readBytesArg(c.String("delegate-action"))
	if err != nil {
		return err
	}
	action, err := encoding.DecodeDelegateAction(data)
	if err != nil {
		return err
	}

	s, err := signerFor(c, l)
	if err != nil {
		return err
	}
	digest, signed, err := s.SignDelegateAction(c.Context, action)
	if err != nil {
		return fmt.Errorf("failed to sign delegate action: %w", err)
	}
	out, err := encoding.EncodeSignedDelegate(signed)
	if err != nil {
		return err
	}
	return printJSON(types.SignDelegateResponse{
		Digest:         digest.String(),
		SignedDelegate: out,
		Signature:      signed.Signature.String(),
	})
}

func signMessageCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	params, err := parseMessageParams(c)
	if err != nil {
		return err
	}
	s, err := signerFor(c, l)
	if err != nil {
		return err
	}
	digest, signed, err := s.SignNep413Message(c.Context, c.String("account-id"), params)
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}
	return printJSON(types.SignMessageResponse{Digest: digest.String(), SignedMessage: *signed})
}

func verifyMessageCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	params, err := parseMessageParams(c)
	if err != nil {
		return err
	}
	raw, err := readTextArg(c.String("signed-message"))
	if err != nil {
		return err
	}
	var signed types.SignedMessage
	if err := json.Unmarshal(raw, &signed); err != nil {
		return fmt.Errorf("failed to parse signed message: %w", err)
	}

	var valid bool
	if c.String("url") != "" {
		client, err := remoteClient(c, l)
		if err != nil {
			return err
		}
		valid, err = client.VerifyMessage(c.Context, &signed, params)
		if err != nil {
			return err
		}
	} else {
		valid, err = nep413.VerifySignedMessage(&signed, params)
		if err != nil {
			return err
		}
	}
	return printJSON(types.VerifyMessageResponse{Valid: valid})
}

type decodedTransaction struct {
	SignerID   string   `json:"signerId"`
	PublicKey  string   `json:"publicKey"`
	Nonce      uint64   `json:"nonce"`
	ReceiverID string   `json:"receiverId"`
	BlockHash  string   `json:"blockHash"`
	Actions    []string `json:"actions"`
	Digest     string   `json:"digest"`
	Signature  string   `json:"signature,omitempty"`
}

func decodeTransactionCommand(c *cli.Context) error {
	data, err := readBytesArg(c.String("transaction"))
	if err != nil {
		return err
	}

	var tx *types.Transaction
	var sig *types.Signature
	if c.Bool("signed") {
		stx, err := encoding.DecodeSignedTransaction(data)
		if err != nil {
			return err
		}
		tx, sig = &stx.Transaction, &stx.Signature
	} else {
		tx, err = encoding.DecodeTransaction(data)
		if err != nil {
			return err
		}
	}

	body, err := encoding.EncodeTransaction(tx)
	if err != nil {
		return err
	}
	out := decodedTransaction{
		SignerID:   tx.SignerID,
		PublicKey:  tx.PublicKey.String(),
		Nonce:      tx.Nonce,
		ReceiverID: tx.ReceiverID,
		BlockHash:  tx.BlockHash.String(),
		Digest:     util.Sha256(body).String(),
	}
	for i := range tx.Actions {
		out.Actions = append(out.Actions, tx.Actions[i].Kind().String())
	}
	if sig != nil {
		out.Signature = sig.String()
	}
	return printJSON(out)
}

func getSignatureCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	if c.String("url") == "" {
		return fmt.Errorf("--url is required")
	}
	digest, err := types.ParseCryptoHash(c.String("digest"))
	if err != nil {
		return fmt.Errorf("failed to parse digest: %w", err)
	}
	client, err := remoteClient(c, l)
	if err != nil {
		return err
	}

	rec, err := client.GetSignatureRecord(c.Context, digest)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no signature recorded for %s", digest)
	}
	if !c.Bool("proof") {
		return printJSON(rec)
	}

	proof, root, err := client.GetSignatureProof(c.Context, digest)
	if err != nil {
		return err
	}
	if merkle.HashRecord(rec) != proof.Leaf {
		return fmt.Errorf("proof leaf does not match the returned record")
	}
	return printJSON(map[string]interface{}{
		"record": rec,
		"root":   root,
		"proof":  proof,
	})
}

func kmsInfoCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg := parseSignerConfig(c)
	if cfg.KMSKeyId == "" {
		return fmt.Errorf("--kms-key-id is required")
	}
	awsCfg, err := aws.LoadAWSConfig(c.Context, awsOptions(cfg))
	if err != nil {
		return err
	}

	identity, err := aws.GetCallerIdentity(c.Context, awsCfg)
	if err != nil {
		return err
	}
	l.Sugar().Debugw("Resolved AWS caller", "arn", identity.Arn, "account", identity.Account)

	info, err := awsKmsSigner.NewAWSKMSSigner(awsCfg, cfg.KMSKeyId, l).DescribeKey(c.Context)
	if err != nil {
		return err
	}

	out := map[string]interface{}{
		"keyId":    info.KeyId,
		"arn":      info.Arn,
		"keySpec":  info.KeySpec,
		"keyUsage": info.KeyUsage,
		"enabled":  info.Enabled,
		"caller":   identity.Arn,
		"account":  identity.Account,
	}
	if info.PublicKey != nil {
		out["publicKey"] = info.PublicKey.String()
	}
	return printJSON(out)
}

func issueTokenCommand(c *cli.Context) error {
	cfg := parseAuthConfig(c)
	if len(cfg.HMACSecret) < config.MinHMACSecretLength {
		return fmt.Errorf("--auth-hmac-secret must be at least %d bytes", config.MinHMACSecretLength)
	}
	token, err := auth.IssueHMACToken([]byte(cfg.HMACSecret), c.String("subject"), cfg.Issuer, cfg.Audience,
		c.StringSlice("scope"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, token)
	return err
}

func parseMessageParams(c *cli.Context) (*types.SignMessageParams, error) {
	nonce, err := base64.StdEncoding.DecodeString(c.String("nonce"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	params := &types.SignMessageParams{
		Message:   c.String("message"),
		Nonce:     nonce,
		Recipient: c.String("recipient"),
	}
	if c.IsSet("callback-url") {
		cb := c.String("callback-url")
		params.CallbackURL = &cb
	}
	return params, nil
}

// readBytesArg accepts base64 or @path to a file of raw bytes
func readBytesArg(arg string) ([]byte, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(arg))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 input: %w", err)
	}
	return data, nil
}

// readTextArg accepts an inline value or @path
func readTextArg(arg string) ([]byte, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, nil
	}
	return []byte(arg), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
