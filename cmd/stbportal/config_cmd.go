// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/ManuGH/stbportal/internal/config"
)

func runConfigCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return exitOK
	}
	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return exitUsage
	}
}

func printConfigUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  stbportal config validate [-f config.yaml] [--env-file .env]")
	_, _ = fmt.Fprintln(w, "  stbportal config dump [-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stbportal config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if _, err := flags.load(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return exitError
	}
	_, _ = fmt.Fprintln(stdout, "configuration is valid")
	return exitOK
}

// runConfigDump prints the effective configuration with secrets masked.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("stbportal config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags commonFlags
	flags.register(fs)
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := flags.load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Configuration error:\n  %v\n", err)
		return exitError
	}

	switch *format {
	case "yaml":
		out, err := config.Dump(cfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "dump: %v\n", err)
			return exitError
		}
		_, _ = stdout.Write(out)
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(config.MaskSecrets(cfg)); err != nil {
			_, _ = fmt.Fprintf(stderr, "dump: %v\n", err)
			return exitError
		}
	default:
		_, _ = fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return exitUsage
	}
	return exitOK
}
