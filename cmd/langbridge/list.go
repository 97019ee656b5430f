package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"langbridge/internal/bridge"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured servers and whether they are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := bridge.DialControl(resolveControlAddr())
			if err != nil {
				return fmt.Errorf("is the daemon running? %w", err)
			}
			defer client.Close()

			resp, err := client.Do(bridge.ControlRequest{Command: "list"})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}

			installed := color.New(color.FgGreen)
			missing := color.New(color.FgRed)
			for _, srv := range resp.Servers {
				fmt.Printf("%-12s %-32s ", srv.LanguageID, srv.Command)
				if srv.Installed {
					installed.Printf("installed  %s\n", srv.Path)
				} else {
					missing.Println("not found")
				}
			}
			return nil
		},
	}
}
