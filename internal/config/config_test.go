package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigContent = `
[development]
host = "localhost"
port = 5000
log_level = "trace"
log_to_stdout = true
mongo_host = "localhost"
mongo_port = "27017"
mongo_db_name = "emon-blogs"
redis_host = "localhost"
redis_port = "6379"
prom_metrics_host = "localhost"
prom_metrics_port = "2112"
token_rate_limit_allowed_per_min = 15

[production]
host = ""
port = 5000
log_level = "debug"
logs_path = "/var/log/emon-blog-server/service.log"
mongo_host = "mongo"
mongo_port = "27017"
mongo_db_name = "emon-blogs"
redis_host = "redis"
redis_port = "6379"
prom_metrics_host = ""
prom_metrics_port = "2112"
sentry_enabled = true
token_rate_limit_allowed_per_min = 10
page_view_policy = "every-list"
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t, testConfigContent)

	cfg, err := Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "emon-blogs", cfg.MongoDBName)
	assert.Equal(t, 15, cfg.TokenRateLimitAllowedPerMin)
	// policy defaults when not set
	assert.Equal(t, PageViewPolicyEveryList, cfg.PageViewPolicy)

	cfg, err = Load("prod", path)
	require.NoError(t, err)
	assert.True(t, cfg.SentryEnabled)
	assert.Equal(t, PageViewPolicyEveryList, cfg.PageViewPolicy)
}

func TestLoad_unknownEnv(t *testing.T) {
	path := writeTestConfig(t, testConfigContent)

	cfg, err := Load("staging", path)
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_invalidPageViewPolicy(t *testing.T) {
	path := writeTestConfig(t, `
[development]
port = 5000
page_view_policy = "per-viewer"
`)

	cfg, err := Load("development", path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "unknown page view policy")
}
