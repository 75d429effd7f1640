package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/pkg/autofill"
)

func newAccountCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "account [pubkey]",
		Short: "Inspect a pump or pump AMM account (bonding curve, global, pool, global config)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := parsePubkey("account", args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}

			accounts, err := a.rpc.GetMultipleAccounts(cmd.Context(), pub)
			if err != nil {
				return fmt.Errorf("fetch account: %w", err)
			}
			if len(accounts) == 0 || accounts[0] == nil || accounts[0].Data == nil {
				return fmt.Errorf("account not found or empty")
			}
			acc := accounts[0]
			name, decoded, err := autofill.DecodeAccount(acc.Data.GetBinary())
			if err != nil {
				return err
			}
			bz, err := json.MarshalIndent(decoded, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account=%s program=%s\n%s\n", name, acc.Owner, string(bz))
			return nil
		},
	}
}
