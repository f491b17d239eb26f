package main

import (
	"os"

	"github.com/compralink/procura/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
