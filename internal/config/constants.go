// Package config holds build-wide constants shared by the compiler, VM,
// and CLI driver.
package config

// Version is the current npz toolchain version. Set at build time via
// -ldflags.
var Version = "0.1.0"

const SourceFileExt = ".npz"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".npz"}

// BytecodeFileExt is the extension a compiled bytecode file conventionally
// carries.
const BytecodeFileExt = ".npzc"

// TrimSourceExt removes any recognized source extension from a filename.
// Returns the original string if no extension matches.
func TrimSourceExt(name string) string {
	for _, ext := range SourceFileExtensions {
		if len(name) >= len(ext) && name[len(name)-len(ext):] == ext {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// HasSourceExt returns true if the path ends with any recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// Exit codes for the CLI driver.
const (
	ExitOK           = 0
	ExitUsageError   = 2
	ExitUsageLegacy  = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitHostIOError  = 74
)

