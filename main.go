// ./main.go
package main

import (
	"github.com/devbot920-ux/DoorTelnet/cmd"
)

// main is the entry point for the DoorTelnet test agent.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
