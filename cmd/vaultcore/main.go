package main

import (
	"os"

	"vaultcore/internal/cli"
)

const version = "v0.1.0"

func main() {
	os.Exit(cli.Execute(version))
}
