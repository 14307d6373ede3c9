package simulator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/gjson"
)

// nanToken replaces the simulator's bare NaN spellings. It is a JSON string
// so the document stays valid; decoding turns it back into a float NaN.
const nanToken = `"NaN"`

// Result is a successful simulation: one entry per alternate config, in the
// order the configs were given.
type Result struct {
	Alt []AltResult `mapstructure:"alt"`
}

// AltResult holds the scores for one alternate config.
type AltResult struct {
	FScore float64        `mapstructure:"f_score"`
	Extra  map[string]any `mapstructure:",remain"`
}

// FScores returns the f-score of every alternate config.
func (r *Result) FScores() []float64 {
	scores := make([]float64, len(r.Alt))
	for i, a := range r.Alt {
		scores[i] = a.FScore
	}
	return scores
}

// ParseResult decodes raw simulator output.
func ParseResult(raw []byte) (*Result, error) {
	norm := NormalizeNaN(raw)
	if !gjson.ValidBytes(norm) {
		return nil, fmt.Errorf("%w: invalid JSON (%d bytes)", ErrMalformedResult, len(raw))
	}
	if e := gjson.GetBytes(norm, "error"); e.Exists() {
		return nil, &SimulationError{Message: e.String()}
	}

	var doc map[string]any
	if err := json.Unmarshal(norm, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}
	alt, ok := doc["alt"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing alt array", ErrMalformedResult)
	}
	for i, entry := range alt {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: alt[%d] is not an object", ErrMalformedResult, i)
		}
		if v, ok := m["f_score"]; !ok || v == nil {
			return nil, fmt.Errorf("%w: alt[%d] has no f_score", ErrMalformedResult, i)
		}
	}

	var res Result
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &res,
	})
	if err != nil {
		return nil, fmt.Errorf("simulator: building decoder: %w", err)
	}
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResult, err)
	}
	return &res, nil
}

// NormalizeNaN rewrites bare nan, -nan, NaN and -NaN tokens outside string
// literals to "NaN". The simulator prints C-style NaNs that are not JSON.
func NormalizeNaN(raw []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(raw) + 8)
	inString, escaped := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		default:
			if n := nanTokenLen(raw, i); n > 0 {
				buf.WriteString(nanToken)
				i += n - 1
				continue
			}
		}
		buf.WriteByte(c)
	}
	return buf.Bytes()
}

func nanTokenLen(raw []byte, i int) int {
	if i > 0 && isTokenByte(raw[i-1]) {
		return 0
	}
	j := i
	if raw[j] == '-' {
		j++
	}
	if len(raw)-j < 3 || !bytes.EqualFold(raw[j:j+3], []byte("nan")) {
		return 0
	}
	j += 3
	if j < len(raw) && isTokenByte(raw[j]) {
		return 0
	}
	return j - i
}

func isTokenByte(c byte) bool {
	return c == '_' || c == '.' || c == '+' || c == '-' ||
		'0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
