// Package main is the entry point for hbtap.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/hbtap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
