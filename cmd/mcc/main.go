package main

import (
	"os"

	"github.com/gomcc/go-mcc/cmd/mcc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
