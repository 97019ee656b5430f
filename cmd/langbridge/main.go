// Command langbridge runs the language server bridge daemon and its
// companion lifecycle commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	controlAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "langbridge",
		Short: "Bridge language servers onto loopback sockets",
		Long: `langbridge spawns language analysis servers on demand, one per
language and project root, and exposes each over a loopback TCP port
using the protocol's Content-Length framing. Any editor that can speak
the framed protocol over a socket can use the bridged servers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	root.PersistentFlags().StringVar(&controlAddr, "addr", "", "control endpoint address (overrides config)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
