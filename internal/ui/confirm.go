package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// Confirm prompts on stderr and reads stdin. Returns true for yes.
func Confirm(prompt string) bool {
	return ConfirmFrom(os.Stdin, os.Stderr, prompt)
}

// ConfirmFrom asks prompt on out and reads one answer line from in. Pass a
// *bufio.Reader when asking several questions on the same input.
func ConfirmFrom(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", StyleWarning.Render(prompt))
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	line, _ := br.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}

// TerminalApprover asks the user on the terminal before the keyring
// provider exposes the account or signs. Prompts are serialised.
type TerminalApprover struct {
	In  io.Reader
	Out io.Writer

	mu     sync.Mutex
	reader *bufio.Reader
}

// NewTerminalApprover prompts on stderr and reads stdin.
func NewTerminalApprover() *TerminalApprover {
	return &TerminalApprover{In: os.Stdin, Out: os.Stderr}
}

func (a *TerminalApprover) ApproveConnection(_ context.Context, account common.Address) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ConfirmFrom(a.input(), a.Out, "Expose account "+wallet.Lower(account)+" to w3transfer?")
}

func (a *TerminalApprover) ApproveTransaction(_ context.Context, tx wallet.TxArgs) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	to := "(contract creation)"
	if tx.To != nil {
		to = wallet.Lower(*tx.To)
	}
	value := "0"
	if tx.Value != nil {
		value = units.FormatEther(tx.Value.ToInt())
	}
	pairs := [][2]string{
		{"From", wallet.Lower(tx.From)},
		{"To", to},
		{"Value", value + " ETH"},
	}
	if tx.Gas != nil {
		pairs = append(pairs, [2]string{"Gas limit", fmt.Sprintf("%d", uint64(*tx.Gas))})
	}
	if len(tx.Data) > 0 {
		pairs = append(pairs, [2]string{"Calldata", fmt.Sprintf("%d bytes", len(tx.Data))})
	}
	fmt.Fprintln(a.Out, KeyValueBlock("Signature request", pairs))
	return ConfirmFrom(a.input(), a.Out, "Sign and send?")
}

func (a *TerminalApprover) input() *bufio.Reader {
	if a.reader == nil {
		a.reader = bufio.NewReader(a.In)
	}
	return a.reader
}
