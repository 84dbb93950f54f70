package main

import (
	"os"

	"github.com/PolarWolf314/keystash/cmd"
)

func main() {
	if err := cmd.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
