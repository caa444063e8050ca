package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "northwind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "default.store", c.FileName)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
packaged_path: data/northwind.store
data_dir: /var/lib/northwind
file_name: orders.store
log_level: debug
log_format: json
`)
	c, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "northwind.store"), c.PackagedPath)
	assert.Equal(t, "/var/lib/northwind", c.DataDir)
	assert.Equal(t, "orders.store", c.FileName)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
}

func TestLoad_EmptyFile(t *testing.T) {
	c, err := Load(writeConfig(t, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, "default.store", c.FileName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "data_dir: /from/file\nlog_level: warn\n")
	c, err := Load(path, env(map[string]string{
		EnvDataDir:      "/from/env",
		EnvPackagedPath: "/opt/northwind.store",
	}))
	require.NoError(t, err)
	assert.Equal(t, "/from/env", c.DataDir)
	assert.Equal(t, "/opt/northwind.store", c.PackagedPath)
	assert.Equal(t, "warn", c.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{"unknown field", "data_directory: /tmp\n", nil, "field data_directory not found"},
		{"bad level", "log_level: loud\n", nil, "log_level"},
		{"bad format", "log_format: xml\n", nil, "log_format"},
		{"file name with directory", "file_name: a/b.store\n", nil, "file_name"},
		{"bad env level", "", map[string]string{EnvLogLevel: "loud"}, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), env(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	c := Default()
	c.LogFormat = "json"

	log := c.Logger(&buf, false)
	log.Debug("hidden")
	log.Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	c.LogFormat = "text"
	c.Logger(&buf, true).Debug("verbose")
	assert.True(t, strings.Contains(buf.String(), "msg=verbose"))
}

func TestProvision(t *testing.T) {
	c := Config{PackagedPath: "/p.store", DataDir: "/data", FileName: "x.store"}
	pc := c.Provision(nil, nil)
	assert.Equal(t, "/p.store", pc.PackagedPath)
	assert.Equal(t, "/data", pc.DefaultDir)
	assert.Equal(t, "x.store", pc.FileName)
}
