package main

import (
	"os"

	"github.com/valikhov/intervue/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
