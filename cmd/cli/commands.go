package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/internal/menu"
	"github.com/ninja0404/pump-bundler/pkg/keystore"
	"github.com/ninja0404/pump-bundler/pkg/sell"
)

func newKeysCmd(opts *globalOpts) *cobra.Command {
	var reuse bool
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Create the wallet pool (or record the existing one with --reuse)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			return a.Keypairs(cmd.Context(), reuse)
		},
	}
	cmd.Flags().BoolVar(&reuse, "reuse", false, "use the keypairs already on disk")
	return cmd
}

func newALTCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alt",
		Short: "Address lookup table stages",
	}
	cmd.AddCommand(newALTCreateCmd(opts), newALTExtendCmd(opts))
	return cmd
}

func newALTCreateCmd(opts *globalOpts) *cobra.Command {
	var tip string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the launch lookup table in a tipped bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, err := parseSOL("tip", tip)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			return a.CreateLookupTable(cmd.Context(), lamports)
		},
	}
	cmd.Flags().StringVar(&tip, "tip", "", "Jito tip in SOL, e.g. 0.01")
	_ = cmd.MarkFlagRequired("tip")
	return cmd
}

func newALTExtendCmd(opts *globalOpts) *cobra.Command {
	var (
		tip     string
		mintKey string
		grind   bool
	)
	cmd := &cobra.Command{
		Use:   "extend",
		Short: "Choose the mint and fill the lookup table with every launch address",
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, err := parseSOL("tip", tip)
			if err != nil {
				return err
			}
			source := menu.MintSource{Kind: menu.MintRandom}
			switch {
			case mintKey != "" && grind:
				return fmt.Errorf("--mint-key and --grind are mutually exclusive")
			case mintKey != "":
				key, err := keystore.ImportBase58(mintKey)
				if err != nil {
					return err
				}
				source = menu.MintSource{Kind: menu.MintImported, Key: key}
			case grind:
				source.Kind = menu.MintVanity
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			return a.ExtendLookupTable(cmd.Context(), lamports, source)
		},
	}
	cmd.Flags().StringVar(&tip, "tip", "", "Jito tip in SOL, e.g. 0.01")
	cmd.Flags().StringVar(&mintKey, "mint-key", "", "base58 private key of a vanity mint")
	cmd.Flags().BoolVar(&grind, "grind", false, "grind a mint ending in launch.vanity_suffix")
	_ = cmd.MarkFlagRequired("tip")
	return cmd
}

func newSellCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell a share of every wallet's tokens",
	}
	cmd.AddCommand(
		newSellVenueCmd(opts, "pump", "Sell on the pump.fun bonding curve", (*app).SellPump),
		newSellVenueCmd(opts, "amm", "Sell into the pump AMM pool", (*app).SellAMM),
	)
	return cmd
}

func newSellVenueCmd(opts *globalOpts, use, short string, run func(*app, context.Context, sell.Request) error) *cobra.Command {
	var (
		percent  float64
		slippage uint64
		tip      string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, err := parseSOL("tip", tip)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			req := sell.Request{Percent: percent, SlippageBps: a.cfg.Launch.SlippageBps, TipLamports: lamports, DryRun: dryRun}
			if cmd.Flags().Changed("slippage-bps") {
				req.SlippageBps = slippage
			}
			return run(a, cmd.Context(), req)
		},
	}
	cmd.Flags().Float64Var(&percent, "percent", 0, "share of each wallet's balance to sell, (0, 100]")
	cmd.Flags().Uint64Var(&slippage, "slippage-bps", 0, "slippage in basis points (default launch.slippage_bps)")
	cmd.Flags().StringVar(&tip, "tip", "0", "Jito tip in SOL")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate the signed transactions instead of submitting")
	_ = cmd.MarkFlagRequired("percent")
	return cmd
}

func newStatusCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "status [bundle-id...]",
		Short: "Show what the block engine knows about submitted bundles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			statuses, err := a.jito.GetBundleStatuses(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if statuses == nil || len(statuses.Value) == 0 {
				fmt.Fprintln(out, "no bundle found (not landed, or expired)")
				return nil
			}
			for i, s := range statuses.Value {
				id := "?"
				if i < len(args) {
					id = args[i]
				}
				fmt.Fprintf(out, "%s %s err=%v\n", id, s.ConfirmationStatus, s.Err)
			}
			return nil
		},
	}
}
