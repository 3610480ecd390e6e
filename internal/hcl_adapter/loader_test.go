package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/scenegrid/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHCL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_NoFilesYieldsDefaults(t *testing.T) {
	t.Parallel()

	model, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.hcl"))

	require.NoError(t, err)
	if diff := cmp.Diff(config.Default(), model); diff != "" {
		t.Errorf("model mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FullFile(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	path := writeHCL(t, dir, "scenegrid.hcl", `
executor {
  name_prefix             = "Studio"
  default_min_path_length = 4
  timeout                 = "45s"
}

validator {
  version_constraint = ">= 1.0.0, < 2.0.0"
}

host {
  url                  = "https://host.local:8443/socket.io/"
  namespace            = "/scene"
  insecure_skip_verify = true
  call_timeout         = "3s"
}

events {
  mqtt_broker = "tcp://broker:1883"
  buffer_size = 64
}

journal {
  postgres_dsn = env("SCENEGRID_DSN")
}

commit_lock {
  redis_addr = "redis:6379"
  ttl        = "10s"
}

s3 {
  region         = "eu-west-1"
  use_path_style = true
}
`)
	env := map[string]string{"SCENEGRID_DSN": "postgres://u:p@db/scenes"}
	loader := NewLoader(WithGetenv(func(k string) string { return env[k] }))

	// --- Act ---
	model, err := loader.Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	want := config.Default()
	want.Executor = config.Executor{NamePrefix: "Studio", DefaultMinPathLength: 4, Timeout: 45 * time.Second}
	want.Validator.VersionConstraint = ">= 1.0.0, < 2.0.0"
	want.Host = config.Host{
		URL:                "https://host.local:8443/socket.io/",
		Namespace:          "/scene",
		InsecureSkipVerify: true,
		CallTimeout:        3 * time.Second,
	}
	want.Events.MQTTBroker = "tcp://broker:1883"
	want.Events.BufferSize = 64
	want.Journal.PostgresDSN = "postgres://u:p@db/scenes"
	want.CommitLock = config.CommitLock{RedisAddr: "redis:6379", TTL: 10 * time.Second}
	want.S3 = config.S3{Region: "eu-west-1", UsePathStyle: true}
	if diff := cmp.Diff(want, model); diff != "" {
		t.Errorf("model mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DirectoryMergesInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeHCL(t, dir, "a.hcl", `executor { name_prefix = "First" }`)
	writeHCL(t, dir, "b.hcl", `executor { default_min_path_length = 2 }`)
	writeHCL(t, dir, "notes.txt", `not hcl`)

	model, err := NewLoader().Load(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, "First", model.Executor.NamePrefix)
	assert.Equal(t, 2, model.Executor.DefaultMinPathLength)
	assert.Equal(t, config.DefaultExecuteTimeout, model.Executor.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "syntax error", content: `executor {`, wantErr: "failed to parse"},
		{name: "unknown block", content: `workers { count = 3 }`, wantErr: "failed to decode"},
		{name: "bad duration", content: `commit_lock { ttl = "soon" }`, wantErr: "commit_lock.ttl"},
		{name: "invalid value", content: `events { buffer_size = 0 }`, wantErr: "buffer_size must be > 0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeHCL(t, t.TempDir(), "bad.hcl", tc.content)

			_, err := NewLoader().Load(context.Background(), path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
