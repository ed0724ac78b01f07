package main

import (
	"os"

	"github.com/snapseek/snapseek/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
