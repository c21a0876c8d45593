// Noodle CLI - compiles and runs Noodle programs.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/noodlelang/noodle/pkg/bytecode"
	"github.com/noodlelang/noodle/pkg/cache"
	"github.com/noodlelang/noodle/pkg/compiler"
	"github.com/noodlelang/noodle/pkg/config"
	"github.com/noodlelang/noodle/pkg/runtime"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: noodle <command> [options] <file>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  run      compile and execute a .ndl source file\n")
	fmt.Fprintf(os.Stderr, "  compile  compile a .ndl source file to a .nbci image\n")
	fmt.Fprintf(os.Stderr, "  disasm   print the instruction listing of a source file or image\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  noodle run program.ndl\n")
	fmt.Fprintf(os.Stderr, "  noodle compile -o program.nbci program.ndl\n")
	fmt.Fprintf(os.Stderr, "  noodle disasm program.nbci\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "compile":
		err = compileCmd(os.Args[2:])
	case "disasm":
		err = disasmCmd(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "noodle: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand.
type commonFlags struct {
	verbose *bool
	noCache *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		verbose: fs.Bool("v", false, "Verbose output"),
		noCache: fs.Bool("no-cache", false, "Skip the compile cache"),
	}
}

func (f commonFlags) configure() {
	verbosity := 0
	if *f.verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)
}

func sourceArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one file argument")
	}
	return fs.Arg(0), nil
}

func loadConfig(path string) *config.Config {
	cfg, err := config.FindAndLoad(filepath.Dir(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using defaults\n", err)
		return config.Default()
	}
	return cfg
}

// compileSource produces a program and its image, consulting the cache
// first when permitted.
func compileSource(path string, cfg *config.Config, useCache, verbose bool) (bytecode.Program, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	source := string(data)

	var store *cache.Store
	if useCache {
		store, err = cache.OpenDefault()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache unavailable: %v\n", err)
		} else {
			defer store.Close()
			if entry, err := store.Get(source); err == nil {
				program, err := bytecode.UnmarshalImage(entry.Image)
				if err == nil {
					if verbose {
						fmt.Fprintf(os.Stderr, "cache hit (%s)\n", entry.CompilationID)
					}
					return program, entry.Image, nil
				}
				// A stale or corrupt entry falls through to a fresh compile.
				store.Delete(source)
			} else if !errors.Is(err, cache.ErrMiss) {
				fmt.Fprintf(os.Stderr, "Warning: cache lookup failed: %v\n", err)
			}
		}
	}

	opts := compiler.Options{Optimize: cfg.Compiler.Optimize, Debug: cfg.Compiler.Debug}
	result, err := compiler.New(opts).Compile(source, path)
	if err != nil {
		var sb strings.Builder
		for _, diag := range result.Errors {
			fmt.Fprintf(&sb, "%s: %s\n", path, diag)
		}
		return nil, nil, fmt.Errorf("%s", strings.TrimSuffix(sb.String(), "\n"))
	}
	for _, diag := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s: %s\n", path, diag)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "compiled %d tokens, %d nodes, %d instructions in %s\n",
			result.Stats.Tokens, result.Stats.Nodes, result.Stats.Instructions, result.Stats.Duration)
	}

	image, err := bytecode.MarshalImage(result.Program, result.CompilationID)
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		if err := store.Put(source, result.CompilationID, image); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cache store failed: %v\n", err)
		}
	}
	return result.Program, image, nil
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(args)
	common.configure()

	path, err := sourceArg(fs)
	if err != nil {
		return err
	}
	cfg := loadConfig(path)

	program, _, err := compileSource(path, cfg, !*common.noCache, *common.verbose)
	if err != nil {
		return err
	}

	interp := runtime.New()
	if d := cfg.Runtime.MaxExecutionDuration(); d > 0 {
		interp.MaxExecutionTime = d
	}
	interp.SetStackCapacity(cfg.Runtime.StackCapacity)
	if err := interp.LoadProgram(program); err != nil {
		return err
	}
	result, err := interp.Execute()
	if err != nil {
		return err
	}
	if *common.verbose && result != nil {
		fmt.Fprintf(os.Stderr, "=> %s\n", runtime.Format(result))
	}
	return nil
}

func compileCmd(args []string) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	common := addCommonFlags(fs)
	output := fs.String("o", "", "Output image path (default: source with .nbci extension)")
	fs.Parse(args)
	common.configure()

	path, err := sourceArg(fs)
	if err != nil {
		return err
	}
	cfg := loadConfig(path)

	_, image, err := compileSource(path, cfg, !*common.noCache, *common.verbose)
	if err != nil {
		return err
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(path, filepath.Ext(path)) + ".nbci"
	}
	if err := os.WriteFile(out, image, 0o644); err != nil {
		return err
	}
	if *common.verbose {
		fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", out, len(image))
	}
	return nil
}

func disasmCmd(args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(args)
	common.configure()

	path, err := sourceArg(fs)
	if err != nil {
		return err
	}

	var program bytecode.Program
	if filepath.Ext(path) == ".nbci" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		program, err = bytecode.UnmarshalImage(data)
		if err != nil {
			return err
		}
	} else {
		cfg := loadConfig(path)
		program, _, err = compileSource(path, cfg, !*common.noCache, *common.verbose)
		if err != nil {
			return err
		}
	}

	fmt.Print(bytecode.DisassembleProgram(program))
	return nil
}
