package main

import (
	"fmt"
	"os"

	"github.com/safegate/safegate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "safegate: %v\n", err)
		os.Exit(1)
	}
}
