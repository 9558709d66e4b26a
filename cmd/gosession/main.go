package main

import (
	"os"

	"github.com/MrEthical07/goSession/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
