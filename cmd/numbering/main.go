// Command numbering manages document number patterns and counters.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"docnum/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
