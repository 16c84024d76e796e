// Command matmap loads, validates and queries the material card catalog
package main

import (
	"fmt"
	"os"

	"github.com/ppiankov/matmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
