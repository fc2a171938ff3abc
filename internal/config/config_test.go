// ABOUTME: Tests for config loading, env expansion, and validation
// ABOUTME: Writes temp YAML files per case

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadComplete(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8470"
database:
  path: /var/lib/pdguard/privacy.db
  mirror_dir: /var/lib/pdguard/mirror
auth:
  jwt_secret: super-secret
purge:
  interval: 6h
  installed_file: /var/lib/pdguard/installed.txt
watcher:
  enabled: true
logging:
  level: debug
  format: json
metrics:
  enabled: true
  path: /metrics
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8470", cfg.Server.HTTPAddr)
	assert.Equal(t, "/var/lib/pdguard/privacy.db", cfg.Database.Path)
	assert.Equal(t, 6*time.Hour, cfg.Purge.Interval)
	assert.True(t, cfg.Watcher.Enabled)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("PDGUARD_TEST_SECRET", "from-env")
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:0"
database:
  path: /tmp/p.db
  mirror_dir: /tmp/mirror
auth:
  jwt_secret: ${PDGUARD_TEST_SECRET}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing addr",
			content: `
database: {path: /tmp/p.db, mirror_dir: /tmp/m}
auth: {jwt_secret: s}
`,
			wantErr: "http_addr",
		},
		{
			name: "missing db path",
			content: `
server: {http_addr: "127.0.0.1:0"}
database: {mirror_dir: /tmp/m}
auth: {jwt_secret: s}
`,
			wantErr: "database.path",
		},
		{
			name: "missing mirror dir",
			content: `
server: {http_addr: "127.0.0.1:0"}
database: {path: /tmp/p.db}
auth: {jwt_secret: s}
`,
			wantErr: "mirror_dir",
		},
		{
			name: "missing secret",
			content: `
server: {http_addr: "127.0.0.1:0"}
database: {path: /tmp/p.db, mirror_dir: /tmp/m}
`,
			wantErr: "jwt_secret",
		},
		{
			name: "bad duration",
			content: `
server: {http_addr: "127.0.0.1:0"}
database: {path: /tmp/p.db, mirror_dir: /tmp/m}
auth: {jwt_secret: s}
purge: {interval: sometimes}
`,
			wantErr: "purge interval",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
