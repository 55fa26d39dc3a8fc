package main

import (
	"os"

	"github.com/rcliao/recordbook/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
