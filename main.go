package main

import (
	"os"

	"github.com/harrisonrobin/qplan/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
