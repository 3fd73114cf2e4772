package main

import (
	"os"

	"github.com/conneroisu/stitch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
