package main

import (
	"os"

	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:           "polling-source",
	Short:         "poll a data supplier and stream its items to an output",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	if err := Command.Execute(); err != nil {
		os.Exit(1)
	}
}
