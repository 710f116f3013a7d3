// Command evalflowd serves the response evaluation pipeline over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/ahrav/go-evalflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
