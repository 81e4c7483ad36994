package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_readBytesArg(t *testing.T) {
	t.Run("Should decode inline base64", func(t *testing.T) {
		data, err := readBytesArg(base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) + "\n")
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)
	})

	t.Run("Should read raw bytes from a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tx.bin")
		require.NoError(t, os.WriteFile(path, []byte{9, 8, 7}, 0o600))

		data, err := readBytesArg("@" + path)
		require.NoError(t, err)
		assert.Equal(t, []byte{9, 8, 7}, data)
	})

	t.Run("Should reject invalid base64", func(t *testing.T) {
		_, err := readBytesArg("not base64!")
		require.Error(t, err)
	})

	t.Run("Should report a missing file", func(t *testing.T) {
		_, err := readBytesArg("@" + filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
	})
}

func Test_readTextArg(t *testing.T) {
	data, err := readTextArg(`{"accountId":"alice.near"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"accountId":"alice.near"}`, string(data))
}
