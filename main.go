package main

import (
	"os"

	"github.com/compozy/storagectl/cli"
)

func main() {
	os.Exit(cli.Execute())
}
