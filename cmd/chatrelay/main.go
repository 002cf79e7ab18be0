package main

import (
	"os"

	"github.com/dgallion1/chatrelay/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
