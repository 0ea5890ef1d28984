package main

import (
	"os"

	"github.com/mirrordna/ledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
