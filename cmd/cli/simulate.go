package main

import (
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"

	"github.com/ninja0404/pump-bundler/pkg/bundle"
	"github.com/ninja0404/pump-bundler/pkg/sell"
	"github.com/ninja0404/pump-bundler/pkg/wallet"
)

func printWallets(out io.Writer, wallets []wallet.Local) {
	for i, w := range wallets {
		fmt.Fprintf(out, "wallet %2d  %s\n", i+1, w.PublicKey())
	}
}

func printResults(out io.Writer, results []bundle.Result) {
	for i, r := range results {
		if r.BundleID != "" {
			fmt.Fprintf(out, "bundle %d: %s id=%s\n", i+1, r.Outcome, r.BundleID)
			continue
		}
		fmt.Fprintf(out, "bundle %d: %s %v\n", i+1, r.Outcome, r.Err)
	}
}

func printReport(out io.Writer, report *sell.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(out, "mint %s: %d wallets in %d transactions\n", report.Mint, len(report.Sells), report.Transactions)
	for _, s := range report.Sells {
		fmt.Fprintf(out, "  %s sell %d of %d, expect %s SOL (min %s)\n",
			s.Wallet, s.Amount, s.Balance, lamportsToSOL(s.ExpectedOut), lamportsToSOL(s.MinOut))
	}
	for i, sim := range report.Simulations {
		fmt.Fprintf(out, "simulation %d:\n", i+1)
		printSimResult(out, sim)
	}
	printResults(out, report.Results)
}

func printSimResult(out io.Writer, res *solanarpc.SimulateTransactionResult) {
	if res == nil {
		fmt.Fprintln(out, "  no simulation result")
		return
	}
	if res.Err != nil {
		fmt.Fprintf(out, "  simulation error: %v\n", res.Err)
	}
	if res.UnitsConsumed != nil {
		fmt.Fprintf(out, "  compute units: %d\n", *res.UnitsConsumed)
	}
	for _, l := range res.Logs {
		fmt.Fprintf(out, "  %s\n", l)
	}
}

func lamportsToSOL(lamports uint64) string {
	return fmt.Sprintf("%d.%09d", lamports/solana.LAMPORTS_PER_SOL, lamports%solana.LAMPORTS_PER_SOL)
}
