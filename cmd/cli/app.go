package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ninja0404/pump-bundler/internal/menu"
	"github.com/ninja0404/pump-bundler/pkg/alt"
	"github.com/ninja0404/pump-bundler/pkg/bundle"
	"github.com/ninja0404/pump-bundler/pkg/config"
	"github.com/ninja0404/pump-bundler/pkg/jito"
	"github.com/ninja0404/pump-bundler/pkg/keystore"
	"github.com/ninja0404/pump-bundler/pkg/poolinfo"
	"github.com/ninja0404/pump-bundler/pkg/rpc"
	"github.com/ninja0404/pump-bundler/pkg/sell"
	"github.com/ninja0404/pump-bundler/pkg/vanity"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

// app holds the long-lived clients of one CLI run. Operator keys are read
// when a stage needs them so that e.g. "keys" works without a payer.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	out     io.Writer
	rpc     *rpc.Client
	jito    *jito.Client
	bundles *bundle.Assembler
	info    *poolinfo.Store
	keys    *keystore.KeyStore
}

func newApp(cmd *cobra.Command, opts *globalOpts) (*app, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	rpcCfg := cfg.RPC()
	rpcCfg.Logger = log.With().Str("component", "rpc").Logger()
	relay := jito.NewClientWithEndpoints(cfg.Jito.Endpoints, cfg.Jito.UUID)
	info := poolinfo.NewStore(cfg.Launch.PoolInfoPath(), log)

	return &app{
		cfg:     cfg,
		log:     log,
		out:     cmd.OutOrStdout(),
		rpc:     rpc.NewClient(rpcCfg),
		jito:    relay,
		bundles: bundle.New(relay, log.With().Str("component", "bundle").Logger()),
		info:    info,
		keys:    keystore.New(cfg.Launch.KeypairsPath(), info, log),
	}, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func (a *app) payer() (wallet.Local, error) {
	return loadOperatorKey("launch.payer_keypair", a.cfg.Launch.PayerKeypair)
}

func (a *app) signer() (wallet.Local, error) {
	return loadOperatorKey("launch.wallet_keypair", a.cfg.Launch.WalletKeypair)
}

func loadOperatorKey(setting, path string) (wallet.Local, error) {
	if path == "" {
		return wallet.Local{}, fmt.Errorf("%s is not configured", setting)
	}
	if _, err := os.Stat(path); err != nil {
		return wallet.Local{}, fmt.Errorf("%s: %w", setting, err)
	}
	return wallet.NewLocalFromKeygen(path)
}

func (a *app) lookupTables() (*alt.Builder, error) {
	payer, err := a.payer()
	if err != nil {
		return nil, err
	}
	signer, err := a.signer()
	if err != nil {
		return nil, err
	}
	return alt.NewBuilder(alt.Config{
		Chain:   a.rpc,
		Bundles: a.bundles,
		Info:    a.info,
		Payer:   payer,
		Signer:  signer.PublicKey(),
		Logger:  a.log.With().Str("component", "alt").Logger(),
	})
}

func (a *app) seller() (*sell.Seller, error) {
	payer, err := a.payer()
	if err != nil {
		return nil, err
	}
	wallets, err := a.keys.MustLoadAll()
	if err != nil {
		return nil, err
	}
	return sell.New(sell.Config{
		Chain:   a.rpc,
		Bundles: a.bundles,
		Info:    a.info,
		Payer:   payer,
		Wallets: wallet.ToSigners(wallets),
		Logger:  a.log.With().Str("component", "sell").Logger(),
	})
}

// Keypairs creates a fresh wallet pool or reuses the one on disk, and
// records it in the pool info either way.
func (a *app) Keypairs(ctx context.Context, reuse bool) error {
	var (
		wallets []wallet.Local
		err     error
	)
	if reuse {
		wallets, err = a.keys.MustLoadAll()
	} else {
		wallets, err = a.keys.Generate(a.cfg.Launch.Wallets)
	}
	if err != nil {
		return err
	}
	if err := a.keys.UpdateMetadata(wallets); err != nil {
		return err
	}
	printWallets(a.out, wallets)
	return nil
}

// requireFunds refuses to build a tipped bundle the payer cannot pay for.
func (a *app) requireFunds(ctx context.Context, tipLamports uint64) error {
	payer, err := a.payer()
	if err != nil {
		return err
	}
	balance, err := a.rpc.GetBalance(ctx, payer.PublicKey())
	if err != nil {
		return fmt.Errorf("payer balance: %w", err)
	}
	a.log.Info().Stringer("payer", payer.PublicKey()).Str("balance_sol", lamportsToSOL(balance)).Msg("payer balance")
	if balance <= tipLamports {
		return fmt.Errorf("payer %s holds %s SOL, not enough for a %s SOL tip plus fees",
			payer.PublicKey(), lamportsToSOL(balance), lamportsToSOL(tipLamports))
	}
	return nil
}

func (a *app) CreateLookupTable(ctx context.Context, tipLamports uint64) error {
	b, err := a.lookupTables()
	if err != nil {
		return err
	}
	if err := a.requireFunds(ctx, tipLamports); err != nil {
		return err
	}
	res, err := b.Create(ctx, tipLamports)
	if res != nil {
		fmt.Fprintf(a.out, "lookup table %s (slot %d, %d bytes)\n", res.Table, res.Slot, res.Size)
		printResults(a.out, res.Results)
	}
	return err
}

func (a *app) ExtendLookupTable(ctx context.Context, tipLamports uint64, source menu.MintSource) error {
	b, err := a.lookupTables()
	if err != nil {
		return err
	}
	if err := a.requireFunds(ctx, tipLamports); err != nil {
		return err
	}
	wallets, err := a.keys.MustLoadAll()
	if err != nil {
		return err
	}
	mint, err := a.mintKey(ctx, source)
	if err != nil {
		return err
	}
	res, err := b.Extend(ctx, alt.ExtendOptions{
		TipLamports: tipLamports,
		Mint:        mint,
		Wallets:     wallet.PublicKeys(wallets),
	})
	if res != nil {
		fmt.Fprintf(a.out, "mint %s\nlookup table %s: %d new addresses, %d already present, %d transactions\n",
			res.Mint, res.Table, res.Addresses, res.Skipped, res.Transactions)
		printResults(a.out, res.Results)
	}
	return err
}

func (a *app) mintKey(ctx context.Context, source menu.MintSource) (solana.PrivateKey, error) {
	switch source.Kind {
	case menu.MintImported:
		return source.Key, nil
	case menu.MintVanity:
		suffix := a.cfg.Launch.VanitySuffix
		a.log.Info().
			Str("suffix", suffix).
			Uint64("expected_attempts", vanity.EstimateDifficulty(0, len(suffix))).
			Msg("grinding mint address")
		res, err := vanity.Generate(ctx, vanity.Options{
			Suffix:        suffix,
			Timeout:       a.cfg.Launch.VanityTimeout,
			ProgressEvery: 10 * time.Second,
			Logger:        a.log,
		})
		if err != nil {
			return nil, fmt.Errorf("grind mint: %w", err)
		}
		a.log.Info().Str("mint", res.PublicKey.String()).Uint64("attempts", res.Attempts).Dur("took", res.Duration).Msg("mint found")
		return res.PrivateKey, nil
	default:
		return solana.NewRandomPrivateKey()
	}
}

func (a *app) SellPump(ctx context.Context, req sell.Request) error {
	s, err := a.seller()
	if err != nil {
		return err
	}
	report, err := s.SellPump(ctx, req)
	printReport(a.out, report)
	return err
}

func (a *app) SellAMM(ctx context.Context, req sell.Request) error {
	s, err := a.seller()
	if err != nil {
		return err
	}
	report, err := s.SellAMM(ctx, req)
	printReport(a.out, report)
	return err
}

var _ menu.Handler = (*app)(nil)
