package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "mailrelay",
		Short:         "Relay transactional emails from a web frontend to a mail provider",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files loaded before the environment (default .env)")

	root.AddCommand(
		newServeCmd(&envFiles),
		newSendCmd(&envFiles),
		newEnvCmd(),
	)

	return root
}
