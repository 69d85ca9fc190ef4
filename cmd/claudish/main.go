// Command claudish runs the local Anchor↔OpenAI translating proxy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName    = "claudish"
	appVersion = "0.1.0"
)

func main() {
	root := &cobra.Command{
		Use:   appName,
		Short: "claudish translates Anchor streaming chat requests to OpenAI-compatible backends",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMonitorCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the claudish version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s v%s\n", appName, appVersion)
			return nil
		},
	}
}
