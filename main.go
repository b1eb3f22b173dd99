package main

import (
	"os"

	"github.com/kerbrat/tripcast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
