package cmd

import (
	"log/slog"

	"github.com/signalnine/vadtune/internal/config"
	"github.com/signalnine/vadtune/internal/simulator"
)

// newBackend opens the configured simulator backend. Tests swap it for a mock.
var newBackend = func(cfg *config.Config, logger *slog.Logger) (simulator.Backend, error) {
	if cfg.Simulator.Backend == config.BackendContainer {
		be, err := simulator.NewContainer(cfg.Simulator.Container.ContainerOpts(), logger)
		if err != nil {
			return nil, err
		}
		return be, nil
	}
	if !simulator.NativeAvailable() {
		return nil, simulator.ErrNativeUnavailable
	}
	path, err := simulator.ResolveLibraryPath(cfg.Simulator.Library)
	if err != nil {
		return nil, err
	}
	logger.Debug("loading simulator library", "path", path)
	return simulator.NewNative(path)
}

func openSimulator(cfg *config.Config, logger *slog.Logger) (*simulator.Client, error) {
	be, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return simulator.NewClient(be, logger), nil
}
