package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNewDevelopmentLogger verifies the development build succeeds and logs
// at debug level.
func TestNewDevelopmentLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.True(t, logger.Core().Enabled(-1)) // debug
	require.Equal(t, "pacer", logger.Name())
}

// TestNewProductionLogger verifies the production build succeeds and gates
// debug output.
func TestNewProductionLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.False(t, logger.Core().Enabled(-1))
	require.Equal(t, "pacer", logger.Name())
}
