package main

import (
	"os"

	"github.com/wayneeseguin/logevents/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
