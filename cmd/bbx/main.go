// Command bbx is the interpreter CLI: it loads a container produced by
// bbx-asm and runs it to completion, mirroring the program's own HALT
// exit code.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kestrelvm/bbx/config"
	"github.com/kestrelvm/bbx/interp"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("bbx", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.String("config", "", "path to a config.toml overriding the defaults")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s <program>\n", os.Args[0])
		return 1
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFrom(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bbx: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	opts := interp.Options{
		Registers:            cfg.Assembler.Registers,
		FileDescriptors:      cfg.Assembler.FileDescriptors,
		StackInitialCapacity: cfg.Interpreter.StackInitialCapacity,
		StackGrowthFactor:    cfg.Interpreter.StackGrowthFactor,
		MaxCallDepth:         cfg.Interpreter.MaxCallDepth,
	}

	code, err := interp.Interpret(rest[0], opts)
	if err != nil && code == 0 {
		code = 1
	}
	return code
}
