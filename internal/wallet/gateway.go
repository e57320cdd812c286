package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Errors surfaced by the gateway.
var (
	ErrWalletUnavailable = errors.New("wallet unavailable")
	ErrUserRejected      = errors.New("user rejected the connection request")
	ErrTransferRejected  = errors.New("user rejected the transaction")
)

// TxArgs is the eth_sendTransaction parameter object.
type TxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

// Gateway is the client's view of the user's wallet.
type Gateway struct {
	provider     chain.Provider
	log          *slog.Logger
	pollInterval time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

// WithPollInterval sets the receipt poll interval of returned handles.
func WithPollInterval(d time.Duration) Option {
	return func(g *Gateway) { g.pollInterval = d }
}

// NewGateway wraps p. A nil p yields a gateway whose every call fails with
// ErrWalletUnavailable.
func NewGateway(p chain.Provider, opts ...Option) *Gateway {
	g := &Gateway{provider: p, log: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// IsAvailable reports whether a wallet provider is present.
func (g *Gateway) IsAvailable() bool {
	return g.provider != nil
}

// Provider returns the underlying provider, or nil.
func (g *Gateway) Provider() chain.Provider {
	return g.provider
}

// ConnectedAccounts asks for already authorised accounts without prompting.
// Provider errors are logged and reported as no accounts.
func (g *Gateway) ConnectedAccounts(ctx context.Context) []common.Address {
	if !g.IsAvailable() {
		return nil
	}
	var accounts []common.Address
	if err := g.provider.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		g.log.Warn("eth_accounts failed", "err", err)
		return nil
	}
	return accounts
}

// RequestConnection prompts the user and returns the first authorised
// account. Endpoints that do not implement eth_requestAccounts (plain dev
// nodes) are asked for eth_accounts instead.
func (g *Gateway) RequestConnection(ctx context.Context) (common.Address, error) {
	if !g.IsAvailable() {
		return common.Address{}, ErrWalletUnavailable
	}

	var accounts []common.Address
	err := g.provider.CallContext(ctx, &accounts, "eth_requestAccounts")
	if chain.IsMethodNotFound(err) {
		g.log.Debug("eth_requestAccounts not supported, using eth_accounts")
		err = g.provider.CallContext(ctx, &accounts, "eth_accounts")
	}
	switch {
	case chain.IsUserRejection(err):
		return common.Address{}, fmt.Errorf("%w: %v", ErrUserRejected, err)
	case err != nil:
		if code, ok := chain.ErrorCode(err); ok && code == chain.CodeUnauthorized {
			return common.Address{}, fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
		}
		return common.Address{}, chain.ProviderError("eth_requestAccounts", err)
	case len(accounts) == 0:
		return common.Address{}, fmt.Errorf("%w: no accounts exposed", ErrWalletUnavailable)
	}
	return accounts[0], nil
}

// SubmitNativeTransfer sends valueWei from one account to another with a
// fixed gas limit.
func (g *Gateway) SubmitNativeTransfer(ctx context.Context, from, to common.Address, valueWei *big.Int, gasLimit uint64) (*chain.TxHandle, error) {
	gas := hexutil.Uint64(gasLimit)
	return g.SendTransaction(ctx, TxArgs{
		From:  from,
		To:    &to,
		Gas:   &gas,
		Value: (*hexutil.Big)(valueWei),
	})
}

// SendTransaction submits args through eth_sendTransaction.
func (g *Gateway) SendTransaction(ctx context.Context, args TxArgs) (*chain.TxHandle, error) {
	if !g.IsAvailable() {
		return nil, ErrWalletUnavailable
	}

	var hash common.Hash
	err := g.provider.CallContext(ctx, &hash, "eth_sendTransaction", args)
	if chain.IsUserRejection(err) {
		return nil, fmt.Errorf("%w: %v", ErrTransferRejected, err)
	}
	if err != nil {
		return nil, chain.ProviderError("eth_sendTransaction", err)
	}

	g.log.Debug("transaction submitted", "hash", hash.Hex(), "from", Lower(args.From))
	return chain.NewTxHandle(g.provider, hash, g.pollInterval), nil
}

// Lower renders an address in the stable lowercase hex form.
func Lower(a common.Address) string {
	return strings.ToLower(a.Hex())
}
