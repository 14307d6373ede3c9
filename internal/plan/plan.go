package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	// VadConfigPath is the gjson path of the object holding the VAD settings.
	VadConfigPath = "config.vad_config"
	// AltConfigsPath is the gjson path of the alternate configs evaluated per simulator call.
	AltConfigsPath = VadConfigPath + ".alt_vad_machine_configs"
)

var (
	ErrParse = errors.New("plan: parse error")
	ErrShape = errors.New("plan: unexpected shape")
)

// Plan is a run plan loaded from disk. Only the alternate configs are ever
// rewritten; every other byte of the document is kept as loaded.
type Plan struct {
	path string
	raw  []byte
}

// Load reads and parses the plan at path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrParse, path, err)
	}
	return Parse(path, data)
}

// Parse builds a plan from raw JSON. path is only used to derive the base path.
func Parse(path string, data []byte) (*Plan, error) {
	if !json.Valid(data) {
		var probe any
		err := json.Unmarshal(data, &probe)
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: %s: root is not an object", ErrShape, path)
	}
	if !gjson.GetBytes(data, VadConfigPath).IsObject() {
		return nil, fmt.Errorf("%w: %s: %s is missing or not an object", ErrShape, path, VadConfigPath)
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return &Plan{path: path, raw: raw}, nil
}

// Path returns the file the plan was loaded from.
func (p *Plan) Path() string { return p.path }

// BasePath is the directory the simulator resolves relative resources against.
func (p *Plan) BasePath() string { return filepath.Dir(p.path) }

// Bytes returns the current serialized plan. Callers must not modify it.
func (p *Plan) Bytes() []byte { return p.raw }

// SetAltConfigs replaces config.vad_config.alt_vad_machine_configs in place.
func (p *Plan) SetAltConfigs(cfgs []VadMachineConfig) error {
	if cfgs == nil {
		cfgs = []VadMachineConfig{}
	}
	out, err := sjson.SetBytes(p.raw, AltConfigsPath, cfgs)
	if err != nil {
		return fmt.Errorf("plan: setting %s: %w", AltConfigsPath, err)
	}
	p.raw = out
	return nil
}

// AltConfigs decodes the alternate configs currently in the plan. A plan
// without the key yields an empty slice.
func (p *Plan) AltConfigs() ([]VadMachineConfig, error) {
	res := gjson.GetBytes(p.raw, AltConfigsPath)
	if !res.Exists() {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: %s is not an array", ErrShape, AltConfigsPath)
	}
	var cfgs []VadMachineConfig
	if err := json.Unmarshal([]byte(res.Raw), &cfgs); err != nil {
		return nil, fmt.Errorf("plan: decoding %s: %w", AltConfigsPath, err)
	}
	return cfgs, nil
}
