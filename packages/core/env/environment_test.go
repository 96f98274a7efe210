package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PublicEnvFile, `{
  "dev": {"host": "localhost:8080", "retries": 3, "debug": true, "SSLConfiguration": {"verifyHostCertificate": false}},
  "prod": {"host": "api.example.com"}
}`)
	writeFile(t, dir, PrivateEnvFile, `{"dev": {"token": "secret", "host": "127.0.0.1:8080"}}`)

	env, err := LoadEnvironment(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev", env.Name)
	assert.Equal(t, map[string]string{
		"host":    "127.0.0.1:8080",
		"retries": "3",
		"debug":   "true",
		"token":   "secret",
	}, env.Variables)

	files, err := LoadEnvironmentFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, files.Names())
}

func TestLoadEnvironment_UnknownNameSuggests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PublicEnvFile, `{"staging": {}, "prod": {}}`)

	_, err := LoadEnvironment(dir, "stagin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean staging?")
}

func TestLoadEnvironment_MissingFiles(t *testing.T) {
	files, err := LoadEnvironmentFiles(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLoadEnvironment_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PublicEnvFile, `{"dev": ["not", "an", "object"]}`)

	_, err := LoadEnvironmentFiles(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment file")
	assert.Contains(t, err.Error(), PublicEnvFile)
}

func TestLoadEnvironment_MalformedJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PublicEnvFile, `{"dev": `)

	_, err := LoadEnvironmentFiles(dir)
	assert.Error(t, err)
}

func TestMergeVariables(t *testing.T) {
	got := MergeVariables(
		map[string]string{"a": "1", "b": "1"},
		map[string]string{"b": "2"},
		nil,
	)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "did you mean host?", Suggest("hots", []string{"host", "token"}))
	assert.Equal(t, "", Suggest("zzzzzz", []string{"host"}))
	assert.Equal(t, "did you mean one of [bar baz]?", Suggest("bax", []string{"baz", "bar", "bar"}))
}

func TestLoadVariables(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PublicEnvFile, `{"dev": {"host": "localhost", "token": "from-env"}}`)
	writeFile(t, dir, ".env", "token=from-dotenv\nuser=alice\n")

	vars, err := LoadVariables(dir, Sources{
		Environment: "dev",
		EnvFile:     ".env",
		Overrides:   map[string]string{"user": "bob"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"host":  "localhost",
		"token": "from-dotenv",
		"user":  "bob",
	}, vars)

	t.Run("missing dotenv is ignored", func(t *testing.T) {
		vars, err := LoadVariables(dir, Sources{EnvFile: "nope.env"})
		require.NoError(t, err)
		assert.Empty(t, vars)
	})

	t.Run("no environment files", func(t *testing.T) {
		vars, err := LoadVariables(t.TempDir(), Sources{Environment: "dev"})
		require.NoError(t, err)
		assert.Empty(t, vars)
	})
}
