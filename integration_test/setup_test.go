package integration_test

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestMain provides setup and teardown for the integration test suite
func TestMain(m *testing.M) {
	for _, kv := range os.Environ() {
		if key, _, _ := strings.Cut(kv, "="); strings.HasPrefix(key, "STANDIN_") {
			os.Unsetenv(key)
		}
	}
	os.Setenv("STANDIN_LOG_LEVEL", "warn")

	exitCode := m.Run()

	os.Unsetenv("STANDIN_LOG_LEVEL")
	os.Exit(exitCode)
}

// testEnvironment is a scratch directory holding a config file and plugin
// manifests in every supported format
type testEnvironment struct {
	TempDir      string
	ConfigFile   string
	ManifestsDir string
}

func createTestEnvironment(t *testing.T) *testEnvironment {
	t.Helper()

	dir := t.TempDir()
	env := &testEnvironment{
		TempDir:      dir,
		ConfigFile:   filepath.Join(dir, "config.json"),
		ManifestsDir: filepath.Join(dir, "plugins"),
	}
	writeFile(t, filepath.Join(env.ManifestsDir, "01-plugin.json"), jsonManifest)
	writeFile(t, filepath.Join(env.ManifestsDir, "02-extra.yaml"), yamlManifest)
	writeFile(t, filepath.Join(env.ManifestsDir, "03-shop.hcl"), hclManifest)
	writeFile(t, env.ConfigFile, `{
  "host_namespace": "com.host.app",
  "containers": ["ContainerActivityA", "ContainerActivityB"],
  "manifests": ["`+env.ManifestsDir+`"]
}`)
	return env
}

// command runs the binary against this environment's config file
func (e *testEnvironment) command(ctx context.Context, binary string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = append(os.Environ(), "STANDIN_CONFIG_FILE="+e.ConfigFile)
	return cmd
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// freeAddress reserves a loopback port and releases it for the server under test
func freeAddress(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

// setupTestContext creates a test context with timeout
func setupTestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// Common test constants
const (
	TestTimeout      = 60 * time.Second
	ShortTestTimeout = 5 * time.Second
)

const jsonManifest = `{
  "namespace": "com.example.plugin",
  "activities": [
    {"class_name": "MainActivity", "attributes": {"theme": "Theme.Plugin"}},
    {"class_name": "SettingsActivity"}
  ]
}`

const yamlManifest = `namespace: com.example.extra
activities:
  - class_name: MainActivity
    category: singleTop
`

const hclManifest = `
plugin "com.example.shop" {
  activity "CartActivity" {
    category = "standard"
  }
}
`
