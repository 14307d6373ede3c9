package simulator

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// LibraryFilename returns the platform-specific simulator library filename.
func LibraryFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libsimulator.dylib"
	case "windows":
		return "simulator.dll"
	default:
		return "libsimulator.so"
	}
}

// DefaultLibraryPath is where the simulator build drops the shared library,
// relative to the working directory.
func DefaultLibraryPath() string {
	return filepath.Join("zig-out", "lib", LibraryFilename())
}

// ResolveLibraryPath makes path absolute and checks that it names a file.
// An empty path selects DefaultLibraryPath.
func ResolveLibraryPath(path string) (string, error) {
	if path == "" {
		path = DefaultLibraryPath()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("simulator: resolving library path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("simulator: library %q not found (set simulator.library or VADTUNE_SIM_LIB): %w", abs, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("simulator: library %q is a directory, expected a file", abs)
	}
	return abs, nil
}
