package main

import (
	"os"

	"github.com/logi-lang/logi/cli"
)

func main() {
	os.Exit(cli.Run())
}
