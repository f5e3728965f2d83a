package main

import (
	"os"

	"github.com/arcledger/arcd/cmd/arcd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
