//go:build simnative

// The native backend loads the simulator shared library at runtime with
// dlopen, so only libdl is needed at link time. The library must export
// `char* execute(char* plan, char* base_path)`.

package simulator

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef char* (*execute_fn)(char*, char*);

static char* call_execute(void* fn, char* plan, char* base_path) {
	return ((execute_fn)fn)(plan, base_path);
}
*/
import "C"

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
	"unsafe"
)

// NativeAvailable reports that the cgo backend is compiled in.
func NativeAvailable() bool { return true }

// NativeBackend calls the simulator in-process through its C interface.
type NativeBackend struct {
	path    string
	handle  unsafe.Pointer
	execute unsafe.Pointer
}

// NewNative opens the simulator library. An empty libPath selects
// DefaultLibraryPath.
func NewNative(libPath string) (Backend, error) {
	path, err := ResolveLibraryPath(libPath)
	if err != nil {
		return nil, err
	}

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	handle := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, fmt.Errorf("simulator: dlopen %s: %s", path, dlerror())
	}

	csym := C.CString("execute")
	defer C.free(unsafe.Pointer(csym))
	C.dlerror()
	sym := C.dlsym(handle, csym)
	if sym == nil {
		msg := dlerror()
		C.dlclose(handle)
		return nil, fmt.Errorf("simulator: resolving execute in %s: %s", path, msg)
	}

	return &NativeBackend{path: path, handle: handle, execute: sym}, nil
}

// Execute passes NUL-terminated copies of plan and basePath to the library
// and copies the returned string before returning. The returned buffer is
// owned by the library and is not freed here.
func (b *NativeBackend) Execute(ctx context.Context, plan []byte, basePath string) ([]byte, error) {
	if b.handle == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bytes.IndexByte(plan, 0) >= 0 || strings.IndexByte(basePath, 0) >= 0 {
		return nil, fmt.Errorf("simulator: input contains a NUL byte")
	}
	if !utf8.Valid(plan) || !utf8.ValidString(basePath) {
		return nil, fmt.Errorf("simulator: input is not valid UTF-8")
	}

	cplan := C.CString(string(plan))
	defer C.free(unsafe.Pointer(cplan))
	cbase := C.CString(basePath)
	defer C.free(unsafe.Pointer(cbase))

	out := C.call_execute(b.execute, cplan, cbase)
	if out == nil {
		return nil, fmt.Errorf("simulator: %s returned a null result", b.path)
	}
	return []byte(C.GoString(out)), nil
}

// Close unloads the library. Safe to call multiple times.
func (b *NativeBackend) Close() error {
	if b.handle == nil {
		return nil
	}
	rc := C.dlclose(b.handle)
	b.handle = nil
	b.execute = nil
	if rc != 0 {
		return fmt.Errorf("simulator: dlclose %s: %s", b.path, dlerror())
	}
	return nil
}

func dlerror() string {
	if msg := C.dlerror(); msg != nil {
		return C.GoString(msg)
	}
	return "unknown error"
}
