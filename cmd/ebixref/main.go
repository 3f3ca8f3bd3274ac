package main

import (
	"fmt"
	"os"

	"github.com/temirov/ebixref/internal/cli"
	"github.com/temirov/ebixref/internal/utils"
)

// main is the entry point for the ebixref command.
func main() {
	if applicationExecutionError := cli.Execute(); applicationExecutionError != nil {
		fmt.Fprintf(os.Stderr, utils.ErrorLogFormat+"\n", applicationExecutionError)
		os.Exit(1)
	}
}
