package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kilometers.ai/standin/internal/core/descriptor"
)

const jsonManifest = `{
  "namespace": "com.example.plugin",
  "activities": [
    {"class_name": "MainActivity", "attributes": {"theme": "Theme.Plugin"}},
    {"class_name": "DetailActivity", "category": "singleTask"}
  ]
}`

const yamlManifest = `plugins:
  - namespace: com.example.a
    activities:
      - class_name: Main
  - namespace: com.example.b
    activities:
      - class_name: Main
        category: singleTop
        attributes:
          label: B
`

const hclManifest = `
plugin "com.example.hcl" {
  activity "MainActivity" {
    category   = "standard"
    attributes = {
      theme    = "Theme.Plugin"
      priority = 3
      exported = true
    }
  }

  activity "AboutActivity" {}
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.json":     FormatJSON,
		"a.YAML":     FormatYAML,
		"dir/a.yml":  FormatYAML,
		"plugin.hcl": FormatHCL,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("plugin.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoader_Decode(t *testing.T) {
	loader := NewLoader(nil)

	t.Run("json single set", func(t *testing.T) {
		sets, err := loader.Decode("inline.json", FormatJSON, []byte(jsonManifest))
		require.NoError(t, err)
		require.Len(t, sets, 1)

		assert.Equal(t, "com.example.plugin", sets[0].Namespace)
		assert.Equal(t, []descriptor.Activity{
			{ClassName: "MainActivity", Attributes: map[string]string{"theme": "Theme.Plugin"}},
			{ClassName: "DetailActivity", Category: "singleTask"},
		}, sets[0].Activities)
	})

	t.Run("yaml plugin list", func(t *testing.T) {
		sets, err := loader.Decode("inline.yaml", FormatYAML, []byte(yamlManifest))
		require.NoError(t, err)
		require.Len(t, sets, 2)

		assert.Equal(t, "com.example.a", sets[0].Namespace)
		assert.Equal(t, "com.example.b", sets[1].Namespace)
		assert.Equal(t, "singleTop", sets[1].Activities[0].Category)
		assert.Equal(t, "B", sets[1].Activities[0].Attributes["label"])
	})

	t.Run("hcl blocks", func(t *testing.T) {
		sets, err := loader.Decode("inline.hcl", FormatHCL, []byte(hclManifest))
		require.NoError(t, err)
		require.Len(t, sets, 1)

		set := sets[0]
		assert.Equal(t, "com.example.hcl", set.Namespace)
		require.Len(t, set.Activities, 2)
		assert.Equal(t, descriptor.Activity{
			ClassName: "MainActivity",
			Category:  "standard",
			Attributes: map[string]string{
				"theme":    "Theme.Plugin",
				"priority": "3",
				"exported": "true",
			},
		}, set.Activities[0])
		assert.Equal(t, "AboutActivity", set.Activities[1].ClassName)
		assert.Nil(t, set.Activities[1].Attributes)
	})

	t.Run("validation runs on decoded sets", func(t *testing.T) {
		_, err := loader.Decode("bad.json", FormatJSON, []byte(`{"namespace":"com.example","activities":[{"category":"x"}]}`))
		assert.ErrorIs(t, err, descriptor.ErrEmptyClassName)
	})

	t.Run("unknown json field", func(t *testing.T) {
		_, err := loader.Decode("bad.json", FormatJSON, []byte(`{"namespace":"com.example","services":[]}`))
		assert.ErrorContains(t, err, "failed to parse manifest bad.json")
	})

	t.Run("hcl syntax error", func(t *testing.T) {
		_, err := loader.Decode("bad.hcl", FormatHCL, []byte(`plugin "x" {`))
		assert.ErrorContains(t, err, "failed to parse manifest bad.hcl")
	})

	t.Run("hcl attributes must be an object", func(t *testing.T) {
		_, err := loader.Decode("bad.hcl", FormatHCL, []byte(`plugin "x" {
  activity "A" {
    attributes = "theme"
  }
}`))
		assert.ErrorContains(t, err, "attributes must be an object")
	})
}

func TestLoader_LoadPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b/second.yaml", yamlManifest)
	writeFile(t, dir, "a/first.json", jsonManifest)
	writeFile(t, dir, "c/third.hcl", hclManifest)
	writeFile(t, dir, "README.md", "# not a manifest")

	loader := NewLoader(nil)
	sets, err := loader.LoadPath(context.Background(), dir)
	require.NoError(t, err)

	var namespaces []string
	for _, s := range sets {
		namespaces = append(namespaces, s.Namespace)
	}
	assert.Equal(t, []string{"com.example.plugin", "com.example.a", "com.example.b", "com.example.hcl"}, namespaces)

	single, err := loader.LoadPath(context.Background(), filepath.Join(dir, "a/first.json"))
	require.NoError(t, err)
	assert.Len(t, single, 1)
}

func TestLoader_LoadPathErrors(t *testing.T) {
	loader := NewLoader(nil)

	_, err := loader.LoadPath(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "failed to stat manifest path")

	empty, err := loader.LoadPath(context.Background(), t.TempDir())
	assert.NoError(t, err)
	assert.Empty(t, empty)

	dir := t.TempDir()
	writeFile(t, dir, "plugin.json", jsonManifest)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.LoadPath(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
