package main

import (
	"fmt"
	"os"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
