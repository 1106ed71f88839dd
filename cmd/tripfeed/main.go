// Package main is the entry point for the tripfeed command line tool.
package main

import (
	"os"

	"github.com/tripfeed/tripfeed/cmd/tripfeed/commands"
)

func main() {
	os.Exit(commands.New().Run(os.Args[1:]))
}
