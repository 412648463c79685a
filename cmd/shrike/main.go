package main

import (
	"os"

	"github.com/mlenstra/shrike/cmd/shrike/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
