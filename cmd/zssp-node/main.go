package main

import (
	"os"

	"github.com/opd-ai/zssp/cmd/zssp-node/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
