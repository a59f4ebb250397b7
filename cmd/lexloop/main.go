package main

import (
	"os"

	"github.com/lazypower/lexloop/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
