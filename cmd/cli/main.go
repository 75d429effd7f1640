package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/internal/menu"
	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if types.IsFatal(err) {
			fmt.Fprintln(os.Stderr, "aborting:", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// globalOpts are the persistent flags. Set flags win over the config file
// and PUMPBUNDLER_* environment variables.
type globalOpts struct {
	configPath    string
	network       string
	rpcURL        string
	commitment    string
	logLevel      string
	dataDir       string
	walletKeypair string
	payerKeypair  string
	jitoEndpoints []string
	jitoUUID      string
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "pumpbundler",
		Short:         "Launch and sell a pump.fun token through Jito bundles",
		Long:          "Without a subcommand pumpbundler starts the interactive menu.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			m := menu.New(menu.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), a, menu.Options{
				DefaultSlippageBps: a.cfg.Launch.SlippageBps,
				VanitySuffix:       a.cfg.Launch.VanitySuffix,
				Logger:             a.log,
			})
			return m.Run(cmd.Context())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "config file (yaml, json or toml)")
	f.StringVar(&opts.network, "network", "", "cluster: mainnet, devnet, testnet or localnet")
	f.StringVar(&opts.rpcURL, "rpc-url", "", "RPC endpoint (overrides --network)")
	f.StringVar(&opts.commitment, "commitment", "", "RPC commitment level")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	f.StringVar(&opts.dataDir, "data-dir", "", "directory holding keypairs/ and keyInfo.json")
	f.StringVar(&opts.walletKeypair, "wallet", "", "solana-keygen json of the primary signer")
	f.StringVar(&opts.payerKeypair, "payer", "", "solana-keygen json of the fee payer")
	f.StringSliceVar(&opts.jitoEndpoints, "jito-endpoint", nil, "block engine URL, repeatable")
	f.StringVar(&opts.jitoUUID, "jito-uuid", "", "block engine auth uuid")

	root.AddCommand(
		newConfigCmd(opts),
		newKeysCmd(opts),
		newALTCmd(opts),
		newSellCmd(opts),
		newStatusCmd(opts),
		newAccountCmd(opts),
	)
	return root
}

// loadConfig reads the file and environment, then applies flags the
// operator set explicitly.
func loadConfig(cmd *cobra.Command, opts *globalOpts) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("network", &cfg.Network, opts.network)
	set("rpc-url", &cfg.RPCURL, opts.rpcURL)
	set("commitment", &cfg.Commitment, opts.commitment)
	set("log-level", &cfg.LogLevel, opts.logLevel)
	set("data-dir", &cfg.Launch.DataDir, opts.dataDir)
	set("wallet", &cfg.Launch.WalletKeypair, opts.walletKeypair)
	set("payer", &cfg.Launch.PayerKeypair, opts.payerKeypair)
	set("jito-uuid", &cfg.Jito.UUID, opts.jitoUUID)
	if flags.Changed("jito-endpoint") {
		cfg.Jito.Endpoints = opts.jitoEndpoints
	}
	return cfg, cfg.Validate()
}

func newConfigCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			rpcCfg := cfg.RPC()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "network=%s\nrpc=%s\ncommitment=%s\n", rpcCfg.Network, rpcCfg.ResolveRPCURL(), rpcCfg.Commitment)
			fmt.Fprintf(out, "keypairs=%s\npool_info=%s\nwallets=%d\n", cfg.Launch.KeypairsPath(), cfg.Launch.PoolInfoPath(), cfg.Launch.Wallets)
			fmt.Fprintf(out, "wallet_keypair=%s\npayer_keypair=%s\n", cfg.Launch.WalletKeypair, cfg.Launch.PayerKeypair)
			fmt.Fprintf(out, "slippage_bps=%d\nvanity_suffix=%s\n", cfg.Launch.SlippageBps, cfg.Launch.VanitySuffix)
			fmt.Fprintf(out, "jito_endpoints=%v\n", cfg.Jito.Endpoints)
			return nil
		},
	}
}
