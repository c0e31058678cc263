// isoscan - isotope envelope matching and noise filtering for spectral libraries
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/isoscan/cmd/isoscan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
