package main

import (
	"os"

	"github.com/DrSkyle/leastpriv/cmd/leastpriv/commands"
)

func main() {
	os.Exit(commands.Execute())
}
