//go:build (linux || darwin) && (amd64 || arm64)

// Package engine loads the optional precompiled nkengine library and owns
// every purego crossing into it.
//
// The engine is OPTIONAL: when it is absent the client falls back to the
// in-process dispatcher and the module remains fully functional. Only
// deployments that ship the native engine get its storage/transport backend.
//
// The engine completes dispatched operations by invoking the completion
// callback installed at load time, on a thread of the engine's choosing.
// That callback is the module's single native callback site: it takes the
// pinned completion for the operation's handle and fires it exactly once.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"github.com/obinnaokechukwu/nativekit/internal/handles"
)

// ErrNotLoaded is returned when engine calls are made before a successful Load.
var ErrNotLoaded = errors.New("nativekit: engine library not loaded")

// ErrNotFound is returned when the engine library cannot be located.
var ErrNotFound = errors.New("nativekit: engine library not found")

var (
	libEngine uintptr
	loaded    bool
	loadOnce  sync.Once
	loadErr   error
	libPath   string

	// Function bindings
	nkVersion        func() uint32
	nkDispatch       func(op int32, path string, payload *byte, payloadLen int32, handle uintptr) int32
	nkSetCompletion  func(cb uintptr)
	nkSetLogCallback func(cb uintptr)
	nkSetLogLevel    func(level int32)

	completionCBPtr uintptr
	logCBPtr        uintptr

	logMu sync.Mutex
	logFn func(level int32, msg string)
)

// Load locates the engine library, loads it and installs the completion and
// log trampolines. Safe to call multiple times; later calls return the first
// outcome.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		if loadErr == nil {
			loaded = true
		}
	})
	return loadErr
}

// IsLoaded returns true if the engine library was successfully loaded.
func IsLoaded() bool {
	return loaded
}

// Path returns where the engine was loaded from, or "" if it was not.
func Path() string {
	return libPath
}

// Status returns a human-readable load status for diagnostics.
func Status() string {
	if loaded {
		return fmt.Sprintf("loaded from %s", libPath)
	}
	if loadErr != nil {
		return fmt.Sprintf("not loaded: %s", loadErr)
	}
	return "not loaded (Load not called)"
}

// Version returns the engine's version number, or 0 when not loaded.
func Version() uint32 {
	if !loaded {
		return 0
	}
	return nkVersion()
}

// Dispatch hands one operation to the engine. handle is the pin under which
// the operation's completion is registered; the engine calls back with it
// exactly once. A non-nil error means the operation was rejected
// synchronously and the caller still owns the pin.
func Dispatch(op int32, path string, payload []byte, handle uintptr) error {
	if !loaded {
		return ErrNotLoaded
	}
	var p *byte
	if len(payload) > 0 {
		p = &payload[0]
	}
	if rc := nkDispatch(op, path, p, int32(len(payload)), handle); rc != 0 {
		return fmt.Errorf("nativekit: engine rejected dispatch (rc %d)", rc)
	}
	return nil
}

// SetLogCallback routes the engine's native log stream to fn. Pass nil to
// drop engine logs.
func SetLogCallback(fn func(level int32, msg string)) {
	logMu.Lock()
	logFn = fn
	logMu.Unlock()
}

// SetLogLevel forwards the log threshold to the engine, if loaded.
func SetLogLevel(level int32) {
	if !loaded || nkSetLogLevel == nil {
		return
	}
	nkSetLogLevel(level)
}

func doLoad() error {
	path, err := findEngineLibrary()
	if err != nil {
		return err
	}

	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("nativekit: loading engine at %s: %w", path, err)
	}
	libEngine = lib
	libPath = path

	purego.RegisterLibFunc(&nkVersion, libEngine, "nk_engine_version")
	purego.RegisterLibFunc(&nkDispatch, libEngine, "nk_engine_dispatch")
	purego.RegisterLibFunc(&nkSetCompletion, libEngine, "nk_engine_set_completion_callback")
	registerOptionalLibFunc(&nkSetLogCallback, libEngine, "nk_engine_set_log_callback")
	registerOptionalLibFunc(&nkSetLogLevel, libEngine, "nk_engine_set_log_level")

	completionCBPtr = purego.NewCallback(completionTrampoline)
	nkSetCompletion(completionCBPtr)

	if nkSetLogCallback != nil {
		logCBPtr = purego.NewCallback(logTrampoline)
		nkSetLogCallback(logCBPtr)
	}
	return nil
}

// completionTrampoline is the engine's completion callback.
// Signature: void (*)(uintptr_t handle, int32_t code, const char *msg,
// const uint8_t *payload, int32_t payload_len)
//
// The engine may invoke it from any of its threads; exactly-once delivery is
// enforced by handles.Take, so even a misbehaving engine cannot double-fire
// a completion.
func completionTrampoline(_ purego.CDecl, handle uintptr, code int32, msg *byte, payload *byte, payloadLen int32) {
	fn := handles.Take(handle)
	if fn == nil {
		return
	}
	fn(code, goString(msg), goBytes(payload, payloadLen))
}

// logTrampoline forwards engine log lines.
// Signature: void (*)(int32_t level, const char *msg)
func logTrampoline(_ purego.CDecl, level int32, msg *byte) {
	logMu.Lock()
	fn := logFn
	logMu.Unlock()
	if fn == nil {
		return
	}
	fn(level, goString(msg))
}

// findEngineLibrary searches, in order: NATIVEKIT_ENGINE_DIR, the system
// loader (plain soname), standard library directories, the executable's
// directory, the working directory.
func findEngineLibrary() (string, error) {
	name := libraryName()

	if dir := os.Getenv("NATIVEKIT_ENGINE_DIR"); dir != "" {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s not in NATIVEKIT_ENGINE_DIR=%s", ErrNotFound, name, dir)
	}

	candidates := []string{
		name, // let the system loader resolve it
	}
	for _, dir := range []string{"/usr/local/lib", "/usr/lib", "/opt/nativekit/lib"} {
		candidates = append(candidates, filepath.Join(dir, name))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), name))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, name))
	}

	for _, c := range candidates {
		if c == name {
			// Bare soname: only Dlopen can tell; probe lazily in doLoad by
			// preferring explicit paths first when they exist.
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}

	// Fall back to the bare soname and let the loader's search path decide.
	if lib, err := purego.Dlopen(name, purego.RTLD_LAZY); err == nil && lib != 0 {
		return name, nil
	}
	return "", fmt.Errorf("%w: %s (searched standard paths; set NATIVEKIT_ENGINE_DIR)", ErrNotFound, name)
}

func libraryName() string {
	if runtime.GOOS == "darwin" {
		return "libnkengine.dylib"
	}
	return "libnkengine.so"
}

func registerOptionalLibFunc(fptr any, handle uintptr, name string) {
	defer func() {
		_ = recover() // purego.RegisterLibFunc panics if the symbol is missing
	}()
	purego.RegisterLibFunc(fptr, handle, name)
}

func goString(msg *byte) string {
	if msg == nil {
		return ""
	}
	ptr := unsafe.Pointer(msg)
	for i := 0; ; i++ {
		b := *(*byte)(unsafe.Pointer(uintptr(ptr) + uintptr(i)))
		if b == 0 || i > 4096 {
			return string(unsafe.Slice(msg, i))
		}
	}
}

func goBytes(p *byte, n int32) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice(p, n))
	return out
}
