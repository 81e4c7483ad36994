package aws

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_resolveProfile(t *testing.T) {
	t.Run("Should default to the default profile", func(t *testing.T) {
		t.Setenv("AWS_PROFILE", "")
		assert.Equal(t, "default", resolveProfile("", false))
	})

	t.Run("Should honour AWS_PROFILE", func(t *testing.T) {
		t.Setenv("AWS_PROFILE", "signer")
		assert.Equal(t, "signer", resolveProfile("", false))
	})

	t.Run("Should prefer an explicit profile", func(t *testing.T) {
		t.Setenv("AWS_PROFILE", "signer")
		assert.Equal(t, "ops", resolveProfile("ops", true))
	})

	t.Run("Should leave the profile unset inside a cluster", func(t *testing.T) {
		t.Setenv("AWS_PROFILE", "signer")
		assert.Equal(t, "", resolveProfile("", true))
	})
}

// withSharedConfig points the SDK at a throwaway profile named "ci"
func withSharedConfig(t *testing.T, region string) {
	t.Helper()
	dir := t.TempDir()
	profile := "[profile ci]\n"
	if region != "" {
		profile += "region = " + region + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte(profile), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials"),
		[]byte("[ci]\naws_access_key_id = test\naws_secret_access_key = test\n"), 0o600))

	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
}

func Test_LoadAWSConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("Should apply region and endpoint overrides", func(t *testing.T) {
		withSharedConfig(t, "us-east-1")

		cfg, err := LoadAWSConfig(ctx, &Options{
			Region:   "eu-west-1",
			Profile:  "ci",
			Endpoint: "http://localhost:4566",
		})
		require.NoError(t, err)
		assert.Equal(t, "eu-west-1", cfg.Region)
		require.NotNil(t, cfg.BaseEndpoint)
		assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)
	})

	t.Run("Should take the region from the profile", func(t *testing.T) {
		withSharedConfig(t, "us-east-1")

		cfg, err := LoadAWSConfig(ctx, &Options{Profile: "ci"})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", cfg.Region)
		assert.Nil(t, cfg.BaseEndpoint)
	})

	t.Run("Should fail without a region", func(t *testing.T) {
		withSharedConfig(t, "")

		_, err := LoadAWSConfig(ctx, &Options{Profile: "ci"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "region")
	})

	t.Run("Should fail for an unknown profile", func(t *testing.T) {
		withSharedConfig(t, "us-east-1")

		_, err := LoadAWSConfig(ctx, &Options{Profile: "missing"})
		require.Error(t, err)
	})
}
