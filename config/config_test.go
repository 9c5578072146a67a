// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultWorkerAcquireTimeout, cfg.WorkerAcquireTimeout)
	assert.Equal(t, DefaultRetries, cfg.DefaultRetries)
	assert.Equal(t, int64(DefaultMaxInFlight), cfg.MaxInFlight)
	assert.Empty(t, cfg.RPCURL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc-url: "http://localhost:9000"
redis-url: "redis://localhost:6379/0"
log-level: "debug"
worker-acquire-timeout: "250ms"
default-retries: 5
max-inflight: 8
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.RPCURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.WorkerAcquireTimeout)
	assert.Equal(t, 5, cfg.DefaultRetries)
	assert.Equal(t, int64(8), cfg.MaxInFlight)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "chatty"
	require.Error(t, SetupLogger(cfg))
}

func TestSetupLoggerSilent(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "silent"
	require.NoError(t, SetupLogger(cfg))
}
