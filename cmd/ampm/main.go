package main

import (
	"os"

	"github.com/Wazzaps/ampm/cmd/ampm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
