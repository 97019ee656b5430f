package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"langbridge/internal/bridge"
	"langbridge/internal/config"
)

// resolveControlAddr picks the control address from the flag, then the
// config file, then the built-in default.
func resolveControlAddr() string {
	if controlAddr != "" {
		return controlAddr
	}
	if cfg, err := config.Load(configPath); err == nil {
		return cfg.ControlAddr
	}
	return config.DefaultControlAddr
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show running server instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := bridge.DialControl(resolveControlAddr())
			if err != nil {
				return fmt.Errorf("is the daemon running? %w", err)
			}
			defer client.Close()

			resp, err := client.Do(bridge.ControlRequest{Command: "status"})
			if err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}

			if len(resp.Instances) == 0 {
				fmt.Println("no servers running")
				return nil
			}

			bold := color.New(color.Bold)
			for _, inst := range resp.Instances {
				bold.Printf("%-12s", inst.LanguageID)
				fmt.Printf("  port %-6d pid %-7d clients %-3d up %-8s  %s\n",
					inst.Port, inst.PID, inst.Clients,
					(time.Duration(inst.UptimeSec) * time.Second).String(),
					inst.ProjectRoot)
			}
			return nil
		},
	}
}
