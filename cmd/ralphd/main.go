package main

import (
	"os"

	"github.com/daydemir/ralphd/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
