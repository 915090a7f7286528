package main

import (
	"os"

	"github.com/defistate/pool-factory-go/cmd/factoryd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
