package main

import (
	"os"

	"github.com/iMaginarParas/singapore-token-hackathon/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
