package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/chat-share/internal/config"
)

func TestSetup_Level(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	_, closer, err := Setup(config.LoggingConfig{Level: "debug", Format: "json"}, true)
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	_, closer, err = Setup(config.LoggingConfig{Level: "nonsense"}, false)
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestSetup_RotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, closer, err := Setup(config.LoggingConfig{Level: "info", Format: "json", File: path}, true)
	require.NoError(t, err)

	logger.Info().Str("session_id", "s1").Msg("collaborative session created")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "collaborative session created")
}
