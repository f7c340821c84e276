// Command bbx-asm assembles bbx assembly source into the binary
// container the bbx interpreter runs. It is the CLI-facing wrapper
// around asmx.AssembleFile, mirroring how the teacher's main.go is a
// thin wrapper around its parser/loader/vm pipeline.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kestrelvm/bbx/asmx"
	"github.com/kestrelvm/bbx/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-d|--debug] <input> <output>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nAssembles bbx source into a bytecode container.\n")
	flag.PrintDefaults()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("bbx-asm", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var debug bool
	fs.BoolVar(&debug, "d", false, "enable assembler trace to stderr")
	fs.BoolVar(&debug, "debug", false, "enable assembler trace to stderr")
	var help bool
	fs.BoolVar(&help, "h", false, "show usage")
	fs.BoolVar(&help, "help", false, "show usage")
	configPath := fs.String("config", "", "path to a config.toml overriding the defaults")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if help {
		usage()
		return 1
	}

	rest := fs.Args()
	if len(rest) != 2 {
		usage()
		return 1
	}
	inputPath, outputPath := rest[0], rest[1]

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFrom(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bbx-asm: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	opts := asmx.Options{
		Registers:       cfg.Assembler.Registers,
		FileDescriptors: cfg.Assembler.FileDescriptors,
		MaxMacroDepth:   cfg.Assembler.MaxMacroDepth,
		MaxLabels:       cfg.Assembler.MaxLabels,
		Debug:           debug,
	}

	if err := asmx.AssembleFile(inputPath, outputPath, opts); err != nil {
		fmt.Fprintf(os.Stderr, "bbx-asm: %v\n", err)
		return 1
	}
	return 0
}
