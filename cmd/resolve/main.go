// Package main provides a CLI for resolving chain tokens and CAIP-10 identifiers.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Aghostraa/oli-frontend/internal/chains"
)

const usage = `usage:
  resolve chain <token>            normalize a chain token to CAIP-2
  resolve parse <caip10>           split a CAIP-10 identifier
  resolve build <chain> <address>  join a chain and an address
  resolve list                     print the chain registry`

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	os.Exit(run(flag.Args(), os.Stdout, os.Stderr))
}

// run executes one command against the built-in registry and returns the exit code
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	resolver := chains.NewResolver(chains.DefaultRegistry())
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	switch args[0] {
	case "chain":
		if len(args) != 2 {
			break
		}
		caip2, ok := resolver.NormalizeChainToken(args[1])
		if !ok {
			fmt.Fprintf(stderr, "unknown chain: %s\n", args[1])
			return 1
		}
		fmt.Fprintln(stdout, caip2)
		return 0

	case "parse":
		if len(args) != 2 {
			break
		}
		parsed, ok := resolver.ParseCaip10(args[1])
		if !ok {
			fmt.Fprintf(stderr, "not a CAIP-10 identifier: %s\n", args[1])
			return 1
		}
		_ = enc.Encode(parsed)
		return 0

	case "build":
		if len(args) != 3 {
			break
		}
		fmt.Fprintln(stdout, resolver.BuildCaip10(args[1], args[2]))
		return 0

	case "list":
		_ = enc.Encode(resolver.Registry().All())
		return 0
	}

	fmt.Fprintln(stderr, usage)
	return 2
}
