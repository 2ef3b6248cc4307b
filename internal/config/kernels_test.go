package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/dyno.tune/internal/smooth"
	"github.com/banshee-data/dyno.tune/internal/testutil"
)

func TestLoadKernelConfig_Valid(t *testing.T) {
	path := testutil.WriteTempFile(t, "kernels.json", `{
		"defaults": {
			"k2": {"passes": 4, "clamp_lo": 5.5},
			"knock": {"gate_hi": 14}
		}
	}`)

	cfg, err := LoadKernelConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 4.0, cfg.Defaults["k2"]["passes"])
	assert.Equal(t, 5.5, cfg.Defaults["k2"]["clamp_lo"])
	assert.Equal(t, 14.0, cfg.Defaults["knock"]["gate_hi"])
}

func TestLoadKernelConfig_RejectsNonJSONExtension(t *testing.T) {
	path := testutil.WriteTempFile(t, "kernels.yaml", "defaults: {}")
	_, err := LoadKernelConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json extension")
}

func TestLoadKernelConfig_MissingFile(t *testing.T) {
	_, err := LoadKernelConfig("does/not/exist.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat config file")
}

func TestLoadKernelConfig_MalformedJSON(t *testing.T) {
	path := testutil.WriteTempFile(t, "bad.json", `{"defaults": {`)
	_, err := LoadKernelConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestKernelConfig_Apply(t *testing.T) {
	reg := smooth.DefaultRegistry()
	cfg := &KernelConfig{Defaults: map[string]map[string]float64{
		"k2": {"clamp_lo": 4.25, "new_param": 1},
	}}
	require.NoError(t, cfg.Apply(reg))

	binding, err := reg.Resolve("k2")
	require.NoError(t, err)
	assert.Equal(t, 4.25, binding.Defaults["clamp_lo"])
	assert.Equal(t, 1.0, binding.Defaults["new_param"])
	assert.Equal(t, 2.0, binding.Defaults["passes"], "untouched defaults keep their built-in values")

	// Aliases share the defaults map, so they see the override too.
	alias, err := reg.Resolve("coverage_clamp")
	require.NoError(t, err)
	assert.Equal(t, 4.25, alias.Defaults["clamp_lo"])
}

func TestKernelConfig_ApplyUnknownID(t *testing.T) {
	reg := smooth.DefaultRegistry()
	cfg := &KernelConfig{Defaults: map[string]map[string]float64{
		"no_such_kernel": {"passes": 1},
	}}
	err := cfg.Apply(reg)
	require.Error(t, err)
	var unknown *smooth.UnknownKernelError
	assert.ErrorAs(t, err, &unknown)
}

func TestKernelConfig_ApplyNilOrEmpty(t *testing.T) {
	reg := smooth.DefaultRegistry()
	var nilCfg *KernelConfig
	assert.NoError(t, nilCfg.Apply(reg))
	assert.NoError(t, (&KernelConfig{}).Apply(reg))
}
