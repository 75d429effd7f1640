// Package menu drives the operator session: a numbered menu over stdin that
// runs one launch stage per choice.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/ninja0404/pump-bundler/pkg/keystore"
	"github.com/ninja0404/pump-bundler/pkg/sell"
	"github.com/ninja0404/pump-bundler/pkg/types"
)

// MintKind selects where the token mint keypair comes from.
type MintKind int

const (
	MintRandom MintKind = iota
	MintImported
	MintVanity
)

// MintSource is the operator's mint choice. Key is set for MintImported only.
type MintSource struct {
	Kind MintKind
	Key  solana.PrivateKey
}

// Handler runs the stages behind the menu entries.
type Handler interface {
	Keypairs(ctx context.Context, reuse bool) error
	CreateLookupTable(ctx context.Context, tipLamports uint64) error
	ExtendLookupTable(ctx context.Context, tipLamports uint64, mint MintSource) error
	SellPump(ctx context.Context, req sell.Request) error
	SellAMM(ctx context.Context, req sell.Request) error
}

// Options tune prompt defaults.
type Options struct {
	DefaultSlippageBps uint64
	VanitySuffix       string
	Logger             zerolog.Logger
}

// Menu is one interactive session.
type Menu struct {
	p    *Prompter
	h    Handler
	opts Options
	log  zerolog.Logger
}

// New builds a session over p.
func New(p *Prompter, h Handler, opts Options) *Menu {
	return &Menu{p: p, h: h, opts: opts, log: opts.Logger}
}

type entry struct {
	key, text string
	run       func(context.Context) error
}

func (m *Menu) entries() []entry {
	return []entry{
		{"1", "Create keypairs", m.keypairs},
		{"2", "Pre-launch checklist (create + extend lookup table)", m.preLaunch},
		{"3", "Create pool bundle (extend lookup table with the mint)", m.createPool},
		{"4", "Sell % of supply on pump.fun", m.sellPump},
		{"5", "Sell % of supply on the pump AMM", m.sellAMM},
	}
}

// Run loops until the operator types exit, input ends, ctx is cancelled or a
// stage fails fatally. Only the fatal and cancellation cases return an error.
func (m *Menu) Run(ctx context.Context) error {
	entries := m.entries()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.p.Title("pump bundler")
		for _, e := range entries {
			m.p.Option(e.key, e.text)
		}
		m.p.Option("exit", "Quit")

		choice, err := m.p.Ask("Choose an option")
		if isEOF(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.EqualFold(choice, "exit") {
			m.p.Info("bye")
			return nil
		}

		var run func(context.Context) error
		for _, e := range entries {
			if e.key == choice {
				run = e.run
				break
			}
		}
		if run == nil {
			m.p.Warn(fmt.Sprintf("%q is not an option", choice))
			continue
		}

		switch err := run(ctx); {
		case err == nil:
			m.p.OK("done")
		case isEOF(err):
			return nil
		case types.IsFatal(err), errors.Is(err, context.Canceled):
			return err
		default:
			m.log.Error().Err(err).Str("option", choice).Msg("stage failed")
			m.p.Error(err.Error())
		}
	}
}

func (m *Menu) keypairs(ctx context.Context) error {
	answer, err := m.p.Ask("Create new keypairs or use existing? (c/u)")
	if err != nil {
		return err
	}
	reuse, err := ParseReuse(answer)
	if err != nil {
		return err
	}
	return m.h.Keypairs(ctx, reuse)
}

func (m *Menu) preLaunch(ctx context.Context) error {
	tip, err := AskUntil(m.p, "Jito tip for the lookup table creation (SOL)", ParseSOL)
	if err != nil {
		return err
	}
	if err := m.h.CreateLookupTable(ctx, tip); err != nil {
		return err
	}
	return m.createPool(ctx)
}

func (m *Menu) createPool(ctx context.Context) error {
	mint, err := m.mintSource()
	if err != nil {
		return err
	}
	tip, err := AskUntil(m.p, "Jito tip for the lookup table extension (SOL)", ParseSOL)
	if err != nil {
		return err
	}
	return m.h.ExtendLookupTable(ctx, tip, mint)
}

func (m *Menu) mintSource() (MintSource, error) {
	vanity, err := m.p.Confirm("Use a vanity mint address?")
	if err != nil || !vanity {
		return MintSource{Kind: MintRandom}, err
	}
	label := "Paste the mint private key (base58)"
	if m.opts.VanitySuffix != "" {
		label += fmt.Sprintf(", or leave empty to grind one ending in %q", m.opts.VanitySuffix)
	}
	return AskUntil(m.p, label, func(s string) (MintSource, error) {
		if s == "" {
			if m.opts.VanitySuffix == "" {
				return MintSource{}, invalid("a private key is required")
			}
			return MintSource{Kind: MintVanity}, nil
		}
		key, err := keystore.ImportBase58(s)
		if err != nil {
			return MintSource{}, err
		}
		return MintSource{Kind: MintImported, Key: key}, nil
	})
}

func (m *Menu) sellRequest() (sell.Request, error) {
	var req sell.Request
	var err error
	if req.Percent, err = AskUntil(m.p, "Percentage of each wallet's supply to sell", ParsePercent); err != nil {
		return req, err
	}
	slipLabel := fmt.Sprintf("Slippage in basis points (empty for %d)", m.opts.DefaultSlippageBps)
	if req.SlippageBps, err = AskUntil(m.p, slipLabel, ParseSlippage(m.opts.DefaultSlippageBps)); err != nil {
		return req, err
	}
	if req.TipLamports, err = AskUntil(m.p, "Jito tip (SOL)", ParseSOL); err != nil {
		return req, err
	}
	req.DryRun, err = m.p.Confirm("Simulate only?")
	return req, err
}

func (m *Menu) sellPump(ctx context.Context) error {
	req, err := m.sellRequest()
	if err != nil {
		return err
	}
	return m.h.SellPump(ctx, req)
}

func (m *Menu) sellAMM(ctx context.Context) error {
	req, err := m.sellRequest()
	if err != nil {
		return err
	}
	return m.h.SellAMM(ctx, req)
}
