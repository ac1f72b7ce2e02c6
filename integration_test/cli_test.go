package integration_test

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	buildOnce  sync.Once
	binaryPath string
	buildErr   error
)

// buildCLIBinary compiles cmd/ once for the whole suite
func buildCLIBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping binary integration tests in short mode")
	}

	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "standin-integration")
		if err != nil {
			buildErr = err
			return
		}
		binaryPath = filepath.Join(dir, "standin")
		out, err := exec.Command("go", "build", "-o", binaryPath, "../cmd").CombinedOutput()
		if err != nil {
			buildErr = err
			binaryPath = string(out)
		}
	})
	require.NoError(t, buildErr, binaryPath)
	return binaryPath
}

type name struct {
	Namespace string `json:"namespace"`
	ClassName string `json:"class_name"`
}

func (n name) String() string { return n.Namespace + "/" + n.ClassName }

type binding struct {
	Logical   name `json:"logical"`
	Physical  name `json:"physical"`
	Reachable bool `json:"reachable"`
}

func TestCLI_RedirectWorkflow(t *testing.T) {
	cliPath := buildCLIBinary(t)
	env := createTestEnvironment(t)
	ctx, cancel := setupTestContext(TestTimeout)
	defer cancel()

	t.Run("bindings_lists_every_manifest_format", func(t *testing.T) {
		out, err := env.command(ctx, cliPath, "bindings", "--json").Output()
		require.NoError(t, err)

		var bindings []binding
		require.NoError(t, json.Unmarshal(out, &bindings))
		require.Len(t, bindings, 4)

		byLogical := make(map[string]binding, len(bindings))
		for _, b := range bindings {
			byLogical[b.Logical.String()] = b
		}
		assert.Equal(t, "com.host.app/ContainerActivityA", byLogical["com.example.plugin/MainActivity"].Physical.String())
		assert.Equal(t, "com.host.app/ContainerActivityB", byLogical["com.example.plugin/SettingsActivity"].Physical.String())
		assert.False(t, byLogical["com.example.plugin/MainActivity"].Reachable)
		assert.True(t, byLogical["com.example.extra/MainActivity"].Reachable)
		assert.True(t, byLogical["com.example.shop/CartActivity"].Reachable)
	})

	t.Run("resolve_follows_the_last_loaded_plugin", func(t *testing.T) {
		out, err := env.command(ctx, cliPath, "resolve", "MainActivity").Output()
		require.NoError(t, err)
		assert.Equal(t, "com.example.extra/MainActivity -> com.host.app/ContainerActivityA\n", string(out))
	})

	t.Run("convert_attaches_side_payload", func(t *testing.T) {
		out, err := env.command(ctx, cliPath, "convert", "com.example.plugin/SettingsActivity", "--extra", "user=42").Output()
		require.NoError(t, err)

		var conversion struct {
			Handled bool `json:"handled"`
			Request struct {
				Target name                       `json:"target"`
				Extras map[string]json.RawMessage `json:"extras"`
			} `json:"request"`
		}
		require.NoError(t, json.Unmarshal(out, &conversion))
		assert.True(t, conversion.Handled)
		assert.Equal(t, "ContainerActivityB", conversion.Request.Target.ClassName)
		assert.JSONEq(t, `"42"`, string(conversion.Request.Extras["user"]))

		var payload struct {
			ClassName string `json:"class_name"`
		}
		require.NoError(t, json.Unmarshal(conversion.Request.Extras["STANDIN_LOADER_PAYLOAD"], &payload))
		assert.Equal(t, "SettingsActivity", payload.ClassName)
	})

	t.Run("convert_leaves_unknown_components_alone", func(t *testing.T) {
		out, err := env.command(ctx, cliPath, "convert", "NotAPlugin").Output()
		require.NoError(t, err)
		assert.Contains(t, string(out), `"handled": false`)
	})

	t.Run("launch_for_result_is_journaled", func(t *testing.T) {
		out, err := env.command(ctx, cliPath, "launch", "CartActivity", "--request-code", "7").Output()
		require.NoError(t, err)

		var entry struct {
			ID          string `json:"id"`
			Kind        string `json:"kind"`
			RequestCode int    `json:"request_code"`
		}
		require.NoError(t, json.Unmarshal(out, &entry))
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "launch_for_result", entry.Kind)
		assert.Equal(t, 7, entry.RequestCode)
	})

	t.Run("flags_override_configuration", func(t *testing.T) {
		out, err := env.command(ctx, cliPath, "config", "show", "--policy", "hashed").Output()
		require.NoError(t, err)

		var cfg map[string]any
		require.NoError(t, json.Unmarshal(out, &cfg))
		assert.Equal(t, "hashed", cfg["policy"])
		assert.Equal(t, "com.host.app", cfg["host_namespace"])
	})

	t.Run("config_save_persists_flags", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "saved.json")
		require.NoError(t, env.command(ctx, cliPath, "config", "save", "--config", path, "--policy", "hashed").Run())

		out, err := env.command(ctx, cliPath, "config", "show", "--config", path).Output()
		require.NoError(t, err)
		var cfg map[string]any
		require.NoError(t, json.Unmarshal(out, &cfg))
		assert.Equal(t, "hashed", cfg["policy"])
	})

	t.Run("invalid_policy_fails", func(t *testing.T) {
		err := env.command(ctx, cliPath, "bindings", "--policy", "random").Run()
		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 1, exitErr.ExitCode())
	})
}

func TestCLI_ServeAnswersHTTP(t *testing.T) {
	cliPath := buildCLIBinary(t)
	env := createTestEnvironment(t)
	ctx, cancel := setupTestContext(TestTimeout)
	defer cancel()

	addr := freeAddress(t)
	cmd := env.command(ctx, cliPath, "serve", "--listen", addr)
	stderr, err := cmd.StderrPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	go io.Copy(io.Discard, bufio.NewReader(stderr))
	defer func() {
		_ = cmd.Process.Signal(os.Interrupt)
		_ = cmd.Wait()
	}()

	base := "http://" + addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, ShortTestTimeout, 50*time.Millisecond)

	resp, err := http.Get(base + "/v1/resolve/CartActivity")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"namespace":"com.example.shop"`)

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "standin_bindings 4")

	post := func(path, body string) int {
		t.Helper()
		resp, err := http.Post(base+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	const launchForResult = `{"request":{"target":{"class_name":"CartActivity"}},"request_code":3}`
	assert.Equal(t, http.StatusOK, post("/v1/launch", launchForResult))
	assert.Equal(t, http.StatusConflict, post("/v1/launch", launchForResult))
	assert.Equal(t, http.StatusOK, post("/v1/results/3", ""))
	assert.Equal(t, http.StatusOK, post("/v1/launch", launchForResult))
}
