package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DQ_DATABASE", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("TOLERANCE_PCT", "")
	t.Setenv("GITHUB_SHA", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dqpipe.db", cfg.DatabasePath)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "0", cfg.TolerancePct)
	assert.Empty(t, cfg.BuildSHA)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DQ_DATABASE", "/var/lib/dq/pipeline.db")
	t.Setenv("DATA_DIR", "s3://lake/drops/latest")
	t.Setenv("TOLERANCE_PCT", "0.01")
	t.Setenv("GITHUB_SHA", "deadbeef")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/dq/pipeline.db", cfg.DatabasePath)
	assert.Equal(t, "s3://lake/drops/latest", cfg.DataDir)
	assert.Equal(t, "0.01", cfg.TolerancePct)
	assert.Equal(t, "deadbeef", cfg.BuildSHA)
	assert.Equal(t, "eu-west-1", cfg.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
}

func TestLoad_InvalidTolerance(t *testing.T) {
	t.Setenv("TOLERANCE_PCT", "one percent")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tolerance")
}

func TestValidate(t *testing.T) {
	valid := Config{DatabasePath: "x.db", DataDir: "data", TolerancePct: "0.005"}
	assert.NoError(t, valid.Validate())

	noDB := valid
	noDB.DatabasePath = ""
	assert.Error(t, noDB.Validate())

	noDir := valid
	noDir.DataDir = ""
	assert.Error(t, noDir.Validate())
}
