package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bambriz/diagsink/internal/config"
)

func checkCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a diagsink config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok\n")
			fmt.Fprintf(out, "  sink:     %s/%s (rotate at %d bytes, check every %ds)\n",
				cfg.Sink.Dir, cfg.Sink.BaseName, cfg.Sink.MaxFileBytes, cfg.Sink.CheckIntervalSeconds)
			switch {
			case cfg.Remote.Endpoint != "":
				fmt.Fprintf(out, "  remote:   %s container=%s prefix=%q\n",
					cfg.Remote.Endpoint, cfg.Remote.Container, cfg.Remote.Prefix)
			case cfg.Remote.LocalDir != "":
				fmt.Fprintf(out, "  remote:   local dir %s\n", cfg.Remote.LocalDir)
			default:
				fmt.Fprintf(out, "  remote:   disabled (segments stay local)\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}
