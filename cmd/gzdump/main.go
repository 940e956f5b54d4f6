// gzdump disassembles a Z-Machine story file: every routine reachable
// from its initial PC, plus any found only by scanning high memory.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/skeptomai/gruesome/internal/disasm"
	"github.com/skeptomai/gruesome/internal/zcore"
)

func main() {
	flag.Parse()
	path := flag.Arg(0)
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: gzdump <story-file>")
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gzdump: %v\n", err)
		os.Exit(1)
	}

	mem, err := zcore.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gzdump: %v\n", err)
		os.Exit(1)
	}

	routines, err := disasm.Discover(mem)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gzdump: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("; %s: version %d, release %d, %d routines found\n\n", path, mem.Version, mem.ReleaseNumber, len(routines))
	for _, r := range routines {
		fmt.Print(disasm.Listing(r))
		fmt.Println()
	}
}
