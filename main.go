package main

import (
	"fmt"
	"os"

	"github.com/mickamy/qbplan/cmd"
)

var version = "dev"

func main() {
	if err := cmd.Execute(version); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
