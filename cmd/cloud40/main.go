package main

import (
	"os"

	"github.com/Dreamer0iQ/0x40-cloud/cmd/cloud40/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
