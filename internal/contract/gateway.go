package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNotBound is returned by writes on a gateway with no signer.
var ErrNotBound = errors.New("contract gateway is not bound to an account")

// RawTransfer is one record as stored by the contract.
type RawTransfer struct {
	Sender    common.Address
	Receiver  common.Address
	Amount    *big.Int
	Message   string
	Timestamp *big.Int
	Keyword   string
}

// TxSender submits eth_sendTransaction requests. *wallet.Gateway is one.
type TxSender interface {
	SendTransaction(ctx context.Context, args wallet.TxArgs) (*chain.TxHandle, error)
}

// Gateway talks to one deployed Transactions contract. Reads go through the
// provider with eth_call; writes are signed by the wallet from the bound
// account.
type Gateway struct {
	provider chain.Provider
	sender   TxSender
	address  common.Address
	abi      abi.ABI
	from     *common.Address
	log      *slog.Logger
}

// NewGateway returns an unbound gateway for the contract at address.
func NewGateway(p chain.Provider, sender TxSender, address common.Address, log *slog.Logger) (*Gateway, error) {
	parsed, err := ParseTransactionsABI()
	if err != nil {
		return nil, fmt.Errorf("parsing Transactions ABI: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{provider: p, sender: sender, address: address, abi: parsed, log: log}, nil
}

// Bind returns a copy of the gateway that signs as account.
func (g *Gateway) Bind(account common.Address) *Gateway {
	bound := *g
	bound.from = &account
	return &bound
}

// Address returns the contract address.
func (g *Gateway) Address() common.Address { return g.address }

// Account returns the bound signer, if any.
func (g *Gateway) Account() (common.Address, bool) {
	if g.from == nil {
		return common.Address{}, false
	}
	return *g.from, true
}

// TransactionCount calls getTransactionCount().
func (g *Gateway) TransactionCount(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, "getTransactionCount")
	if err != nil {
		return 0, err
	}
	n := *abi.ConvertType(out[0], new(big.Int)).(*big.Int)
	if !n.IsUint64() {
		return 0, fmt.Errorf("transaction count %s overflows uint64", n.String())
	}
	return n.Uint64(), nil
}

// AllTransactions calls getAllTransactions(). Records come back in storage
// order, oldest first.
func (g *Gateway) AllTransactions(ctx context.Context) ([]RawTransfer, error) {
	out, err := g.call(ctx, "getAllTransactions")
	if err != nil {
		return nil, err
	}
	records := *abi.ConvertType(out[0], new([]RawTransfer)).(*[]RawTransfer)
	return records, nil
}

// AddToBlockchain records a transfer on the contract. The returned handle
// is awaited for the mined receipt.
func (g *Gateway) AddToBlockchain(ctx context.Context, to common.Address, valueWei *big.Int, message, keyword string) (*chain.TxHandle, error) {
	if g.from == nil {
		return nil, ErrNotBound
	}
	data, err := g.abi.Pack("addToBlockchain", to, valueWei, message, keyword)
	if err != nil {
		return nil, fmt.Errorf("packing addToBlockchain: %w", err)
	}

	contractAddr := g.address
	h, err := g.sender.SendTransaction(ctx, wallet.TxArgs{
		From: *g.from,
		To:   &contractAddr,
		Data: data,
	})
	if err != nil {
		return nil, err
	}
	g.log.Debug("addToBlockchain submitted", "hash", h.Hash.Hex(), "receiver", wallet.Lower(to))
	return h, nil
}

type callArgs struct {
	From *common.Address `json:"from,omitempty"`
	To   common.Address  `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

func (g *Gateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if g.provider == nil {
		return nil, wallet.ErrWalletUnavailable
	}
	input, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}

	var result hexutil.Bytes
	msg := callArgs{From: g.from, To: g.address, Data: input}
	if err := g.provider.CallContext(ctx, &result, "eth_call", msg, "latest"); err != nil {
		return nil, chain.ProviderError(method, err)
	}
	if len(result) == 0 {
		return nil, chain.ProviderError(method, fmt.Errorf("empty result, is %s a Transactions contract?", g.address.Hex()))
	}

	out, err := g.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	return out, nil
}
