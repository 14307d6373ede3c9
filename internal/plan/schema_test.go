package plan_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/vadtune/internal/plan"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantErrs bool
		contains string
	}{
		{"minimal", `{"config":{"vad_config":{}}}`, false, ""},
		{"with alt configs", `{"config":{"vad_config":{"alt_vad_machine_configs":[{"speech_max_freq":1000}]}}}`, false, ""},
		{"extra keys allowed", `{"config":{"vad_config":{"foo":1},"bar":true},"baz":null}`, false, ""},
		{"missing config", `{}`, true, "/"},
		{"missing vad_config", `{"config":{}}`, true, "/config"},
		{"alt not array", `{"config":{"vad_config":{"alt_vad_machine_configs":{}}}}`, true, "/config/vad_config/alt_vad_machine_configs"},
		{"param not number", `{"config":{"vad_config":{"alt_vad_machine_configs":[{"speech_max_freq":"high"}]}}}`, true, "/config/vad_config/alt_vad_machine_configs/0/speech_max_freq"},
		{"bad json", `{"config":`, true, "JSON parse error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := plan.Validate([]byte(tt.content))
			if !tt.wantErrs {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if strings.HasPrefix(e, tt.contains) {
					found = true
				}
			}
			assert.True(t, found, "expected an error starting with %q, got %v", tt.contains, errs)
		})
	}
}

func TestValidateFileMissing(t *testing.T) {
	_, err := plan.ValidateFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrParse)
}

func TestValidateFile(t *testing.T) {
	errs, err := plan.ValidateFile(writePlan(t, `{"config":{"vad_config":{}}}`))
	require.NoError(t, err)
	assert.Empty(t, errs)
}
