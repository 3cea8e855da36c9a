package main

import (
	"os"

	"bedrock-loadtest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
