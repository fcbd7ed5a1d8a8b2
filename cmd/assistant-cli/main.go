package main

import (
	"os"

	"github.com/kirillkom/graphrag-assistant/cmd/assistant-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
