package main

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pure-golang/mailrelay/api"
	"github.com/pure-golang/mailrelay/config"
	"github.com/pure-golang/mailrelay/logger"
	"github.com/pure-golang/mailrelay/relay"
)

func newSendCmd(envFiles *[]string) *cobra.Command {
	var req relay.EmailRequest

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Make one relay attempt and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := api.ValidateEmailRequest(req); err != nil {
				return err
			}

			cfg, err := config.Load(*envFiles...)
			if err != nil {
				return err
			}
			logger.InitDefault(cfg.Logger)

			svc, sender, err := newRelay(cfg)
			if err != nil {
				return err
			}
			defer sender.Close()

			res := svc.Send(cmd.Context(), req)

			out, err := json.Marshal(res)
			if err != nil {
				return errors.Wrap(err, "failed to encode result")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !res.Success {
				return errors.New("send failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.To, "to", "", "recipient address")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&req.Message, "message", "", "plain text body")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables the service reads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.PrintUsage(cmd.OutOrStdout())
		},
	}
}
