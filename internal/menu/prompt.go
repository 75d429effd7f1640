package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/pump-bundler/pkg/types"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA")).Padding(0, 1)
	optionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
)

// Prompter reads operator answers line by line and writes styled prompts.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter wraps in and out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer. io.EOF means the input
// is closed.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s ", optionStyle.Render(label+":"))
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

// AskUntil re-asks label until parse accepts the answer.
func AskUntil[T any](p *Prompter, label string, parse func(string) (T, error)) (T, error) {
	for {
		answer, err := p.Ask(label)
		if err != nil {
			var zero T
			return zero, err
		}
		v, err := parse(answer)
		if err == nil {
			return v, nil
		}
		p.Warn(err.Error())
	}
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(label string) (bool, error) {
	return AskUntil(p, label+" (y/n)", ParseYesNo)
}

func (p *Prompter) Title(s string) { fmt.Fprintln(p.out, titleStyle.Render(s)) }

func (p *Prompter) Option(key, text string) {
	fmt.Fprintf(p.out, "  %s %s\n", optionStyle.Render(key), text)
}

func (p *Prompter) Info(s string)  { fmt.Fprintln(p.out, mutedStyle.Render(s)) }
func (p *Prompter) OK(s string)    { fmt.Fprintln(p.out, okStyle.Render(s)) }
func (p *Prompter) Warn(s string)  { fmt.Fprintln(p.out, warnStyle.Render(s)) }
func (p *Prompter) Error(s string) { fmt.Fprintln(p.out, errStyle.Render(s)) }

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrInvalidOperatorInput, fmt.Sprintf(format, args...))
}

// ParseYesNo accepts y/yes/n/no in any case.
func ParseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	}
	return false, invalid("answer y or n")
}

// ParseSOL converts a decimal SOL amount to lamports, truncating below one
// lamport. "0.01" is 10,000,000 lamports.
func ParseSOL(s string) (uint64, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return 0, invalid("%q is not a SOL amount", s)
	}
	if r.Sign() < 0 {
		return 0, invalid("SOL amount must not be negative")
	}
	lamports := new(big.Int).Quo(
		new(big.Int).Mul(r.Num(), big.NewInt(int64(solana.LAMPORTS_PER_SOL))),
		r.Denom(),
	)
	if !lamports.IsUint64() {
		return 0, invalid("SOL amount %q is too large", s)
	}
	return lamports.Uint64(), nil
}

// ParsePercent parses a sell share in (0, 100]. A trailing % is allowed.
func ParsePercent(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0, invalid("%q is not a number", s)
	}
	if err := types.ValidateSellPercent(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ParseSlippage parses slippage in basis points, falling back to def on an
// empty answer.
func ParseSlippage(def uint64) func(string) (uint64, error) {
	return func(s string) (uint64, error) {
		if s == "" {
			return def, nil
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, invalid("%q is not a whole number of basis points", s)
		}
		if err := types.ValidateSlippage(v); err != nil {
			return 0, err
		}
		return v, nil
	}
}

// ParseReuse maps c to false (create new) and u to true (use existing).
func ParseReuse(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "c":
		return false, nil
	case "u":
		return true, nil
	}
	return false, invalid("answer c to create or u to use existing")
}

func isEOF(err error) bool { return errors.Is(err, io.EOF) }
