package main

import (
	"os"

	"github.com/geocoder89/favfilms/cmd/favfilms/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
