package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"services/"}, out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, []string{"services/"}, cfg.ServicePaths)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.Workers)
	assert.True(t, cfg.AutoResume)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Zero(t, cfg.WaitTimeout)
	assert.Equal(t, 30*time.Second, cfg.EnableTimeout)
	assert.False(t, cfg.Serve)
	assert.Equal(t, "/", cfg.BulletinNamespace)
}

func TestParse_Flags(t *testing.T) {
	cfg, _, err := Parse([]string{
		"-s", "a.hcl", "--services", "b.yaml,c.yml", "extra/",
		"--log-level", "DEBUG", "--log-format", "text",
		"--workers", "3", "--auto-resume=false",
		"--poll-interval", "10ms", "--wait-timeout", "2s", "--enable-timeout", "5s",
		"--serve", "--healthcheck-port", "8081",
		"--bulletin-url", "http://localhost:3000", "--bulletin-namespace", "/ops",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.hcl", "b.yaml", "c.yml", "extra/"}, cfg.ServicePaths)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 3, cfg.Workers)
	assert.False(t, cfg.AutoResume)
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 5*time.Second, cfg.EnableTimeout)
	assert.True(t, cfg.Serve)
	assert.Equal(t, 8081, cfg.HealthcheckPort)
	assert.Equal(t, "http://localhost:3000", cfg.BulletinURL)
	assert.Equal(t, "/ops", cfg.BulletinNamespace)
}

func TestParse_Environment(t *testing.T) {
	t.Setenv("SVCGRID_SERVICES", "env-a.hcl,env-b.hcl")
	t.Setenv("SVCGRID_WORKERS", "4")
	t.Setenv("SVCGRID_LOG_LEVEL", "warn")

	cfg, _, err := Parse([]string{"--log-level", "error"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, []string{"env-a.hcl", "env-b.hcl"}, cfg.ServicePaths)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "error", cfg.LogLevel, "flags win over the environment")
}

func TestParse_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SVCGRID_TEST_ENVFILE_WORKERS=7\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SVCGRID_TEST_ENVFILE_WORKERS") })

	_, _, err := Parse([]string{"--env-file", envFile, "x.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "7", os.Getenv("SVCGRID_TEST_ENVFILE_WORKERS"))

	_, _, err = Parse([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "x.hcl"}, &bytes.Buffer{})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestParse_ExitPaths(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse([]string{"-h"}, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("no paths prints usage", func(t *testing.T) {
		out := &bytes.Buffer{}
		_, exit, err := Parse(nil, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Contains(t, out.String(), "SVCGRID_LOG_LEVEL")
	})

	errorCases := map[string][]string{
		"unknown flag":  {"--nope"},
		"bad format":    {"--log-format", "xml", "a.hcl"},
		"bad level":     {"--log-level", "loud", "a.hcl"},
		"zero workers":  {"--workers", "0", "a.hcl"},
		"bad duration":  {"--poll-interval", "fast", "a.hcl"},
		"negative wait": {"--wait-timeout", "-1s", "a.hcl"},
	}
	for name, args := range errorCases {
		t.Run(name, func(t *testing.T) {
			_, exit, err := Parse(args, &bytes.Buffer{})
			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
