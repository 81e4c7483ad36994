package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func Test_NewLogger(t *testing.T) {
	t.Run("Should build an info level logger by default", func(t *testing.T) {
		l, err := NewLogger(&LoggerConfig{Debug: false})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("Should enable debug level when requested", func(t *testing.T) {
		l, err := NewLogger(&LoggerConfig{Debug: true})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("Should tolerate a nil config", func(t *testing.T) {
		l, err := NewLogger(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})
}
