package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

const (
	containerIODir   = "/sim/io"
	containerBaseDir = "/sim/base"

	planFile   = "plan.json"
	resultFile = "result.json"

	DefaultContainerTimeout = 10 * time.Minute
)

// DefaultContainerCommand runs the simulator CLI shipped in the image.
var DefaultContainerCommand = []string{
	"simulate",
	containerIODir + "/" + planFile,
	containerBaseDir,
	containerIODir + "/" + resultFile,
}

var ErrContainerTimeout = errors.New("simulator: container timed out")

type ContainerOpts struct {
	Image       string
	Command     []string
	Env         map[string]string
	Timeout     time.Duration
	CPULimit    float64
	MemoryLimit int64
	UserID      string
}

// ContainerBackend runs each simulation in a fresh Docker container. The plan
// is mounted at /sim/io/plan.json, the base path read-only at /sim/base, and
// the command must leave its result in /sim/io/result.json.
type ContainerBackend struct {
	opts ContainerOpts
	cli  *client.Client
	log  *slog.Logger
}

// NewContainer connects to the Docker daemon configured in the environment.
func NewContainer(opts ContainerOpts, logger *slog.Logger) (*ContainerBackend, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("simulator: container image is required")
	}
	if len(opts.Command) == 0 {
		opts.Command = DefaultContainerCommand
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultContainerTimeout
	}
	if opts.UserID == "" {
		opts.UserID = fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	}
	if logger == nil {
		logger = slog.Default()
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &ContainerBackend{opts: opts, cli: cli, log: logger.With("component", "container")}, nil
}

func (b *ContainerBackend) Execute(ctx context.Context, plan []byte, basePath string) ([]byte, error) {
	if b.cli == nil {
		return nil, ErrClosed
	}
	baseAbs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolving base path: %w", err)
	}
	ioDir, err := os.MkdirTemp("", "vadtune-sim-*")
	if err != nil {
		return nil, fmt.Errorf("creating io dir: %w", err)
	}
	defer os.RemoveAll(ioDir)
	if err := os.WriteFile(filepath.Join(ioDir, planFile), plan, 0o644); err != nil {
		return nil, fmt.Errorf("writing plan: %w", err)
	}

	env := make([]string, 0, len(b.opts.Env))
	for k, v := range b.opts.Env {
		env = append(env, k+"="+v)
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: ioDir, Target: containerIODir},
			{Type: mount.TypeBind, Source: baseAbs, Target: containerBaseDir, ReadOnly: true},
		},
		Init: &initTrue,
	}
	if b.opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(b.opts.CPULimit * 1e9)
	}
	if b.opts.MemoryLimit > 0 {
		hostCfg.Memory = b.opts.MemoryLimit
	}

	createResp, err := b.cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: &container.Config{
			Image:      b.opts.Image,
			Cmd:        b.opts.Command,
			Env:        env,
			User:       b.opts.UserID,
			WorkingDir: containerBaseDir,
			Labels:     map[string]string{"vadtune": "true"},
		},
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		b.cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := b.cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	waitResult := b.cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err == nil {
				continue
			}
			b.cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			b.log.Warn("simulator container did not finish", "id", containerID, "error", err, "logs", b.tailLogs(containerID))
			if timeoutCtx.Err() != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("%w after %s", ErrContainerTimeout, b.opts.Timeout)
			}
			return nil, fmt.Errorf("waiting for container: %w", err)
		case status := <-waitResult.Result:
			b.log.Debug("simulator container exited",
				"id", containerID,
				"exit_code", status.StatusCode,
				"duration", time.Since(start),
			)
			if status.StatusCode != 0 {
				return nil, fmt.Errorf("simulator container exited with code %d: %s", status.StatusCode, b.tailLogs(containerID))
			}
			out, err := os.ReadFile(filepath.Join(ioDir, resultFile))
			if err != nil {
				return nil, fmt.Errorf("reading container result: %w", err)
			}
			return out, nil
		}
	}
}

func (b *ContainerBackend) tailLogs(containerID string) string {
	logReader, err := b.cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "100",
	})
	if err != nil || logReader == nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}

// Close releases the Docker client.
func (b *ContainerBackend) Close() error {
	if b.cli == nil {
		return nil
	}
	err := b.cli.Close()
	b.cli = nil
	return err
}
