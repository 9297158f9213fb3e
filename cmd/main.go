package main

import (
	"os"

	"meetscribe/pkg/cli"
	"meetscribe/pkg/config"
)

func main() {
	cfg := config.Load()

	if err := cli.NewRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}
