package runner

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/signalnine/vadtune/internal/result"
	"github.com/signalnine/vadtune/internal/simulator"
)

// FormatList renders floats the way the debug output has always printed
// them: [0.5, 0.8, 0.2], with nan for NaN.
func FormatList(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatFloat prints the shortest round-tripping form of f. Whole numbers
// keep a trailing .0 and very small or large magnitudes use an exponent.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func outputs(out io.Writer, logger *slog.Logger) (io.Writer, *slog.Logger) {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return out, logger
}

func fail(meta *result.RunMeta, err error) {
	meta.Status = result.StatusFailed
	var simErr *simulator.SimulationError
	if errors.As(err, &simErr) {
		meta.Status = result.StatusSimulationError
	}
	meta.Error = err.Error()
}

// createRunDir opens a run directory under resultsDir, or returns "" when
// the run is not recorded.
func createRunDir(resultsDir, kind string) (string, error) {
	if resultsDir == "" {
		return "", nil
	}
	return result.CreateRunDir(resultsDir, kind)
}

// finish writes meta into runDir when recording and passes runErr through.
func finish(runDir string, meta *result.RunMeta, logger *slog.Logger, runErr error) error {
	if runDir == "" {
		return runErr
	}
	if err := result.WriteRunMeta(runDir, meta); err != nil {
		if runErr != nil {
			logger.Warn("could not write run meta", "error", err)
			return runErr
		}
		return err
	}
	logger.Info("run recorded", "dir", runDir, "status", meta.Status)
	return runErr
}
