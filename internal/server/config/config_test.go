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
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":7071", cfg.EndpointAddr)
	assert.Equal(t, "instafeed.db", cfg.DatabasePath)
	assert.Equal(t, 24*time.Hour, cfg.TokenValidityDuration)
	assert.Equal(t, "disk", cfg.UploadBackend)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, "/static", cfg.StaticURLPrefix)
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"server",
		"-a", ":9000",
		"-d", "test.db",
		"-s", "flagsecret",
		"-t", "30",
		"-w", "s3",
		"-b", "pictures",
	}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":9000", cfg.EndpointAddr)
	assert.Equal(t, "test.db", cfg.DatabasePath)
	assert.Equal(t, "flagsecret", cfg.AppSecret)
	assert.Equal(t, 30*time.Minute, cfg.TokenValidityDuration)
	assert.Equal(t, "s3", cfg.UploadBackend)
	assert.Equal(t, "pictures", cfg.S3Bucket)

	// Untouched fields keep their defaults.
	assert.Equal(t, "uploads", cfg.UploadDir)
}

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"endpoint_addr": ":8088",
		"database_path": "json.db",
		"app_secret": "jsonsecret",
		"token_validity_duration": "15m",
		"upload_backend": "disk",
		"upload_dir": "files",
		"static_url_prefix": "/files",
		"s3_root_user": "root",
		"s3_root_password": "pw",
		"s3_bucket": "b",
		"s3_region": "r",
		"s3_base_endpoint": "http://localhost:9000/"
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	os.Args = []string{"server", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":8088", cfg.EndpointAddr)
	assert.Equal(t, "json.db", cfg.DatabasePath)
	assert.Equal(t, "jsonsecret", cfg.AppSecret)
	assert.Equal(t, 15*time.Minute, cfg.TokenValidityDuration)
	assert.Equal(t, "files", cfg.UploadDir)
	assert.Equal(t, "/files", cfg.StaticURLPrefix)
}

func TestParseJson_PartialFileOverwritesDefaults(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"endpoint_addr": ":8088"}`), 0o600))

	os.Args = []string{"server", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, ":8088", cfg.EndpointAddr)

	// The overlay copies the whole struct; keys missing from the file reset
	// the field, they do not keep the default.
	assert.Equal(t, "", cfg.DatabasePath)
	assert.Equal(t, time.Duration(0), cfg.TokenValidityDuration)
}
