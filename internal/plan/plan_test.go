package plan_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/signalnine/vadtune/internal/plan"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMinimal(t *testing.T) {
	path := writePlan(t, `{"config":{"vad_config":{}}}`)

	p, err := plan.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, p.Path())
	assert.Equal(t, filepath.Dir(path), p.BasePath())

	cfgs, err := p.AltConfigs()
	require.NoError(t, err)
	assert.Empty(t, cfgs)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"malformed json", `{"config":`, plan.ErrParse},
		{"root array", `[1,2,3]`, plan.ErrShape},
		{"missing vad_config", `{"config":{}}`, plan.ErrShape},
		{"vad_config not object", `{"config":{"vad_config":[]}}`, plan.ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plan.Load(writePlan(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := plan.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrParse)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSetAltConfigsPreservesOtherKeys(t *testing.T) {
	doc := `{
  "name": "baseline",
  "config": {
    "audio": {"files": ["a.wav", "b.wav"], "rate": 16000},
    "vad_config": {
      "speech_min_freq": 100,
      "alt_vad_machine_configs": [{"speech_max_freq": 1}]
    }
  },
  "labels": "labels/truth.json"
}`
	p, err := plan.Parse("tmp/plan.json", []byte(doc))
	require.NoError(t, err)

	require.NoError(t, p.SetAltConfigs([]plan.VadMachineConfig{
		{SpeechMaxFreq: plan.Float(1000)},
		{SpeechMaxFreq: plan.Float(1500)},
	}))

	var before, after map[string]any
	require.NoError(t, json.Unmarshal([]byte(doc), &before))
	require.NoError(t, json.Unmarshal(p.Bytes(), &after))

	vadBefore := before["config"].(map[string]any)["vad_config"].(map[string]any)
	vadAfter := after["config"].(map[string]any)["vad_config"].(map[string]any)
	delete(vadBefore, "alt_vad_machine_configs")
	alt := vadAfter["alt_vad_machine_configs"]
	delete(vadAfter, "alt_vad_machine_configs")

	assert.Equal(t, before, after)
	assert.Equal(t, []any{
		map[string]any{"speech_max_freq": 1000.0},
		map[string]any{"speech_max_freq": 1500.0},
	}, alt)
}

func TestSetAltConfigsCreatesKey(t *testing.T) {
	p, err := plan.Parse("plan.json", []byte(`{"config":{"vad_config":{}}}`))
	require.NoError(t, err)

	require.NoError(t, p.SetAltConfigs([]plan.VadMachineConfig{{SpeechMaxFreq: plan.Float(2000)}}))
	assert.JSONEq(t,
		`{"config":{"vad_config":{"alt_vad_machine_configs":[{"speech_max_freq":2000}]}}}`,
		string(p.Bytes()))

	// Replacing again overwrites instead of appending.
	require.NoError(t, p.SetAltConfigs(nil))
	assert.Equal(t, "[]", gjson.GetBytes(p.Bytes(), plan.AltConfigsPath).Raw)
}

func TestAltConfigsRoundTrip(t *testing.T) {
	p, err := plan.Parse("plan.json", []byte(`{"config":{"vad_config":{}}}`))
	require.NoError(t, err)

	full := plan.VadMachineConfig{
		SpeechMinFreq:         plan.Float(120),
		SpeechMaxFreq:         plan.Float(1800),
		LongTermSpeechAvgSec:  plan.Float(30),
		ShortTermSpeechAvgSec: plan.Float(0.25),
		SpeechThresholdFactor: plan.Float(12),
	}
	require.NoError(t, p.SetAltConfigs([]plan.VadMachineConfig{full}))

	cfgs, err := p.AltConfigs()
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, full, cfgs[0])
	assert.Equal(t,
		"{speech_min_freq=120 speech_max_freq=1800 long_term_speech_avg_sec=30 short_term_speech_avg_sec=0.25 speech_threshold_factor=12}",
		cfgs[0].String())
}

func TestVadMachineConfigOmitsUnset(t *testing.T) {
	data, err := json.Marshal(plan.VadMachineConfig{SpeechMaxFreq: plan.Float(1000)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"speech_max_freq":1000}`, string(data))
	assert.Equal(t, "{}", plan.VadMachineConfig{}.String())
}

func TestParseDoesNotAliasInput(t *testing.T) {
	data := []byte(`{"config":{"vad_config":{}}}`)
	p, err := plan.Parse("plan.json", data)
	require.NoError(t, err)
	require.NoError(t, p.SetAltConfigs([]plan.VadMachineConfig{{SpeechMaxFreq: plan.Float(1)}}))
	assert.Equal(t, `{"config":{"vad_config":{}}}`, string(data))
}
