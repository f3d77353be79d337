package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("S3_BUCKET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4242", cfg.HTTPPort)
	assert.Equal(t, "ocds-testprefix-", cfg.OCIDPrefix)
	assert.Equal(t, "releases", cfg.RootListPath)
	assert.False(t, cfg.DatabaseEnabled())
	assert.False(t, cfg.S3Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OCID_PREFIX", "ocds-abc123-")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "cove")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("S3_BUCKET", "submissions")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ocds-abc123-", cfg.OCIDPrefix)
	assert.True(t, cfg.DatabaseEnabled())
	assert.True(t, cfg.S3Enabled())
	assert.Equal(t, "host=db user=cove password=secret dbname=silvereye port=6543 sslmode=disable", cfg.DSN())
}
