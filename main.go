package main

import (
	"os"

	"github.com/deutschbot/deutschbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
