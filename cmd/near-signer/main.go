package main

import (
	"log"
	"os"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "near-signer",
		Usage: "NEAR transaction, delegate action and NEP-413 message signer",
		Description: `Signs NEAR payloads with a single key held in memory or in AWS KMS.

Signing commands run against a local key unless --url points them at a running
near-signer server. The serve command runs that server.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"debug"},
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvSignerVerbose},
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Key backend: inMemory or awsKms",
				Value:   config.SignerBackendInMemory.String(),
				EnvVars: []string{config.EnvSignerBackend},
			},
			&cli.StringFlag{
				Name:    "secret-key",
				Usage:   "Secret key as <keytype>:<base58> for the inMemory backend",
				EnvVars: []string{config.EnvSignerSecretKey},
			},
			&cli.StringFlag{
				Name:    "kms-key-id",
				Usage:   "AWS KMS key id, ARN or alias for the awsKms backend",
				EnvVars: []string{config.EnvSignerKMSKeyId},
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Usage:   "AWS region override",
				EnvVars: []string{config.EnvSignerAWSRegion},
			},
			&cli.StringFlag{
				Name:    "aws-profile",
				Usage:   "Shared config profile for AWS credentials",
				EnvVars: []string{config.EnvSignerAWSProfile},
			},
			&cli.StringFlag{
				Name:    "kms-endpoint",
				Usage:   "AWS endpoint override, e.g. a localstack URL",
				EnvVars: []string{config.EnvSignerKMSEndpoint},
			},
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Base URL of a near-signer server to sign with instead of a local key",
				EnvVars: []string{config.EnvSignerServerURL},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token for the near-signer server",
				EnvVars: []string{config.EnvSignerServerToken},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "public-key",
				Usage:  "Print the signer's public key",
				Action: publicKeyCommand,
			},
			{
				Name:  "sign-transaction",
				Usage: "Sign a borsh encoded transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "transaction",
						Aliases:  []string{"tx"},
						Usage:    "Borsh encoded transaction as base64, or @path to a raw file",
						Required: true,
					},
				},
				Action: signTransactionCommand,
			},
			{
				Name:  "sign-delegate",
				Usage: "Sign a borsh encoded delegate action (NEP-366)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "delegate-action",
						Usage:    "Borsh encoded delegate action as base64, or @path to a raw file",
						Required: true,
					},
				},
				Action: signDelegateCommand,
			},
			{
				Name:   "sign-message",
				Usage:  "Sign an off-chain message (NEP-413)",
				Flags:  append(messageFlags(), &cli.StringFlag{Name: "account-id", Usage: "Account the message is signed for", Required: true}),
				Action: signMessageCommand,
			},
			{
				Name:  "verify-message",
				Usage: "Verify a NEP-413 signed message",
				Flags: append(messageFlags(), &cli.StringFlag{
					Name:     "signed-message",
					Usage:    "Signed message JSON, or @path to a file",
					Required: true,
				}),
				Action: verifyMessageCommand,
			},
			{
				Name:  "decode-transaction",
				Usage: "Decode a borsh transaction or signed transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "transaction",
						Aliases:  []string{"tx"},
						Usage:    "Borsh bytes as base64, or @path to a raw file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "signed",
						Usage: "Input is a signed transaction",
					},
				},
				Action: decodeTransactionCommand,
			},
			{
				Name:  "get-signature",
				Usage: "Fetch a journaled signature from a near-signer server, optionally with a verified inclusion proof",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "digest",
						Usage:    "Base58 digest returned when signing",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "proof",
						Usage: "Also fetch and verify the merkle inclusion proof",
					},
				},
				Action: getSignatureCommand,
			},
			{
				Name:   "kms-info",
				Usage:  "Describe the AWS KMS key and the caller identity",
				Action: kmsInfoCommand,
			},
			{
				Name:  "issue-token",
				Usage: "Issue an HS256 bearer token for the server",
				Flags: append(authFlags(),
					&cli.StringFlag{
						Name:     "subject",
						Usage:    "Token subject",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "scope",
						Usage: "Scope to grant (sign, verify, read). Repeatable; none grants every route",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: 24 * time.Hour,
					},
				),
				Action: issueTokenCommand,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP signing service",
				Flags:  append(serverFlags(), authFlags()...),
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
