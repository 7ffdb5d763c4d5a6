package main

import (
	"os"

	"github.com/lkarlslund/usageguard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
