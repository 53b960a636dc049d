package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	out, err := execute(t, "inspect")
	require.NoError(t, err)

	var doc struct {
		Element struct {
			Name       string   `yaml:"name"`
			Layouts    []string `yaml:"layouts"`
			Properties []struct {
				Name    string `yaml:"name"`
				Default any    `yaml:"default"`
			} `yaml:"properties"`
		} `yaml:"element"`
		SrcCaps string `yaml:"src_caps"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "scapsrc", doc.Element.Name)
	assert.Equal(t, []string{"RGB", "RGBx", "xBGR", "BGRx", "BGRA"}, doc.Element.Layouts)
	require.Len(t, doc.Element.Properties, 3)
	assert.Equal(t, "fps", doc.Element.Properties[0].Name)
	assert.Equal(t, 25, doc.Element.Properties[0].Default)
	assert.Equal(t, "video/x-raw, format={ RGB, RGBx, xBGR, BGRx, BGRA }", doc.SrcCaps)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "scapsrc v"+version)
}

func TestRun_PatternToFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "scapsrc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
backend: pattern
fps: 100
pattern:
  width: 8
  height: 4
  format: BGR0
stats_interval: 0s
log:
  level: error
`), 0o600))
	output := filepath.Join(dir, "out.raw")

	_, err := execute(t, "--config", cfgPath, "run", "-n", "4", "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, data, 4*8*4*4)
}

func TestRun_RejectsInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "scapsrc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: x11\n"), 0o600))

	_, err := execute(t, "--config", cfgPath, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRun_FlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "scapsrc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: portal\nlog:\n  level: error\n"), 0o600))

	_, err := execute(t, "--config", cfgPath, "run", "--backend", "pattern", "-n", "1", "--accept-caps", "video/x-raw, format=RGB")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "caps refused")
}
