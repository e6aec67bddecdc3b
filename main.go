package main

import (
	"os"

	"github.com/km-arc/go-bootstrap/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
