// Command npz is the CLI driver for the npz compiler/VM: source → bytecode
// (-c/-o), bytecode → execution (-r/-R), and the help/version surface.
// It is a thin shell around internal/vm and internal/library -
// no compiler or interpreter logic lives here.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/Lemon-Chad/NupizLang/internal/config"
	"github.com/Lemon-Chad/NupizLang/internal/library"
	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// colorStderr reports whether stderr is a real terminal, so error output
// can be colorized only when a human is watching.
func colorStderr() bool { return isatty.IsTerminal(os.Stderr.Fd()) }

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

func errColor(s string) string {
	if !colorStderr() {
		return s
	}
	return ansiRed + s + ansiReset
}

func usage() string {
	return `npz - the npz compiler and virtual machine

Usage:
  npz -c <src> -o <out>     compile src to a bytecode file
  npz -r <bin>               load and run a compiled file
  npz -R <bin> [args...]     load and run, forwarding args to cmdargs()
  npz -d <bin>                dump a compiled file's chunk summary as YAML
  npz -h                     show this help
  npz -v                     show version
`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage())
		return config.ExitUsageError
	}

	switch args[0] {
	case "-h", "--help", "help":
		fmt.Print(usage())
		return config.ExitOK
	case "-v", "--version", "version":
		fmt.Printf("npz %s\n", config.Version)
		return config.ExitOK
	case "-c", "--compile":
		return cmdCompile(args[1:])
	case "-r", "--run":
		return cmdRun(args[1:], nil)
	case "-d", "--dump":
		return cmdDump(args[1:])
	case "-R":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: npz -R <bin> [args...]")
			return config.ExitUsageError
		}
		return cmdRun(args[1:2], args[2:])
	default:
		fmt.Fprintf(os.Stderr, "npz: unrecognized flag %q\n", args[0])
		fmt.Fprint(os.Stderr, usage())
		return config.ExitUsageError
	}
}

// cmdCompile implements `-c <src> -o <out>`: compile a source file to a
// canonical bytecode stream.
func cmdCompile(args []string) int {
	var srcPath, outPath string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "npz: -o requires a path")
				return config.ExitUsageError
			}
			i++
			outPath = args[i]
		default:
			if srcPath == "" {
				srcPath = args[i]
			}
		}
	}
	if srcPath == "" || outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: npz -c <src> -o <out>")
		return config.ExitUsageError
	}

	source, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "npz: cannot read %s: %s\n", srcPath, err)
		return config.ExitHostIOError
	}

	machine := vm.New()
	library.RegisterAll(machine)

	fn, err := vm.Compile(machine, string(source))
	if err != nil {
		return config.ExitCompileError
	}

	data, err := vm.Dump(fn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "npz: dump error: %s\n", err)
		return config.ExitCompileError
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "npz: cannot write %s: %s\n", outPath, err)
		return config.ExitHostIOError
	}
	return config.ExitOK
}

// cmdRun implements `-r <bin>` / `-R <bin> [args...]`: load a bytecode file
// and execute it to completion.
func cmdRun(args []string, cmdArgs []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: npz -r <bin>")
		return config.ExitUsageError
	}
	binPath := args[0]

	data, err := os.ReadFile(binPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "npz: cannot read %s: %s\n", binPath, err)
		return config.ExitHostIOError
	}

	machine := vm.New()
	library.RegisterAll(machine)
	machine.SetCmdArgs(cmdArgs)
	installFileImporter(machine, filepath.Dir(binPath))

	fn, err := vm.Load(machine.GC(), data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "npz: load error: %s\n", err)
		return config.ExitCompileError
	}

	_, result, err := machine.InterpretErr(fn)
	if result != vm.InterpretOK {
		printRuntimeError(err)
		return config.ExitRuntimeError
	}
	return config.ExitOK
}

// printRuntimeError writes a fatal runtime error's message and per-frame
// stack trace to stderr, as the driver prints what the interpreter itself
// only computes and returns.
func printRuntimeError(err error) {
	if err == nil {
		fmt.Fprintln(os.Stderr, errColor("npz: runtime error"))
		return
	}
	fmt.Fprintln(os.Stderr, errColor(fmt.Sprintf("npz: %s", err.Error())))
	if re, ok := err.(*vm.RuntimeError); ok {
		for _, line := range re.Trace {
			fmt.Fprintln(os.Stderr, errColor("  "+line))
		}
	}
}

// chunkSummary is the YAML-serializable shape `-d`/`--dump` prints: a
// development-tooling view of a compiled function's constant pool and
// code size, never consulted by the compiler or VM themselves.
type chunkSummary struct {
	Name         string         `yaml:"name"`
	Arity        int            `yaml:"arity"`
	UpvalueCount int            `yaml:"upvalues"`
	CodeBytes    int            `yaml:"code_bytes"`
	Constants    []string       `yaml:"constants"`
	Functions    []chunkSummary `yaml:"functions,omitempty"`
}

func summarizeFunction(fn *vm.ObjFunction) chunkSummary {
	name := "<script>"
	if fn.Name != nil {
		name = string(fn.Name.Chars)
	}
	s := chunkSummary{
		Name:         name,
		Arity:        fn.Arity,
		UpvalueCount: fn.UpvalueCount,
		CodeBytes:    len(fn.Chunk.Code),
	}
	for _, c := range fn.Chunk.Constants {
		s.Constants = append(s.Constants, c.String())
		if nested, ok := c.Obj.(*vm.ObjFunction); ok && c.Type == vm.ValObj {
			s.Functions = append(s.Functions, summarizeFunction(nested))
		}
	}
	return s
}

// cmdDump implements `-d <bin>`: load a compiled file and print its
// function/chunk shape as YAML, the only "dump" surface the driver offers.
func cmdDump(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: npz -d <bin>")
		return config.ExitUsageError
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "npz: cannot read %s: %s\n", args[0], err)
		return config.ExitHostIOError
	}

	machine := vm.New()
	fn, err := vm.Load(machine.GC(), data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "npz: load error: %s\n", err)
		return config.ExitCompileError
	}

	out, err := yaml.Marshal(summarizeFunction(fn))
	if err != nil {
		fmt.Fprintf(os.Stderr, "npz: dump error: %s\n", err)
		return config.ExitCompileError
	}
	os.Stdout.Write(out)
	return config.ExitOK
}

// installFileImporter wires IMPORT_FILE to the driver's own compile+run
// pipeline, resolving literal import paths relative to baseDir and
// re-homing the child VM's namespace into the parent's object list so
// outstanding references survive after the child VM is discarded.
func installFileImporter(parent *vm.VM, baseDir string) {
	parent.ImportFile = func(path string) (*vm.ObjNamespace, error) {
		full := path
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, path)
		}
		source, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %s", full, err)
		}

		child := vm.New()
		library.RegisterAll(child)
		installFileImporter(child, filepath.Dir(full))

		nsName := config.TrimSourceExt(filepath.Base(full))
		child.SetCurrentNamespace(nsName)

		fn, err := vm.Compile(child, string(source))
		if err != nil {
			return nil, fmt.Errorf("compile error in %s", full)
		}

		child.SetKeepTop(true)
		_, result := child.Interpret(fn)
		if result != vm.InterpretOK {
			return nil, fmt.Errorf("runtime error in %s", full)
		}

		return child.TakeNamespace(parent.GC(), nsName), nil
	}
}
