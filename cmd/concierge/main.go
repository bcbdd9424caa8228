package main

import (
	"os"

	"github.com/maisonlane/concierge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
