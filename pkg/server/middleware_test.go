package server

import (
	"testing"

	"github.com/Layr-Labs/near-signer-go/pkg/auth"
	"github.com/stretchr/testify/assert"
)

func Test_metricsPath(t *testing.T) {
	assert.Equal(t, "/sign/transaction", metricsPath("/sign/transaction"))
	assert.Equal(t, "/signatures/{digest}", metricsPath("/signatures/H4be6ioGzDeiGKork27na6Usw2Hzt4gNJfetJ7ag3LhP"))
	assert.Equal(t, "/signatures/{digest}/proof", metricsPath("/signatures/H4be6ioGzDeiGKork27na6Usw2Hzt4gNJfetJ7ag3LhP/proof"))
	assert.Equal(t, "/signatures/root", metricsPath("/signatures/root"))
	assert.Equal(t, "other", metricsPath("/wp-admin"))
}

func Test_requiredScope(t *testing.T) {
	assert.Equal(t, auth.ScopeSign, requiredScope("/sign/delegate"))
	assert.Equal(t, auth.ScopeVerify, requiredScope("/verify/message"))
	assert.Equal(t, auth.ScopeRead, requiredScope("/pubkey"))
	assert.Equal(t, auth.ScopeRead, requiredScope("/signatures/abc"))
}
