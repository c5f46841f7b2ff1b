// Package main is the entry point for the secanalytics service and CLI.
package main

import (
	"fmt"
	"os"

	"secanalytics/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
