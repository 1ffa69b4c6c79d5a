package main

import (
	"os"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
