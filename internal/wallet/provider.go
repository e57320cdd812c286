package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Approver asks the user before the provider exposes the account or signs.
type Approver interface {
	ApproveConnection(ctx context.Context, account common.Address) bool
	ApproveTransaction(ctx context.Context, tx TxArgs) bool
}

// AutoApprove approves everything. For scripted use and tests only.
type AutoApprove struct{}

func (AutoApprove) ApproveConnection(context.Context, common.Address) bool { return true }
func (AutoApprove) ApproveTransaction(context.Context, TxArgs) bool       { return true }

// KeyringProvider is a local wallet: it answers the account and signing
// methods itself, using the key from a Keystore, and forwards everything
// else to an upstream node.
type KeyringProvider struct {
	upstream *rpc.Client
	eth      *ethclient.Client
	keys     *Keystore
	approver Approver
	grants   Grants
	log      *slog.Logger
}

// ProviderOption configures a KeyringProvider.
type ProviderOption func(*KeyringProvider)

// WithGrants persists connection grants across sessions.
func WithGrants(g Grants) ProviderOption {
	return func(p *KeyringProvider) { p.grants = g }
}

// WithProviderLogger sets the logger.
func WithProviderLogger(l *slog.Logger) ProviderOption {
	return func(p *KeyringProvider) { p.log = l }
}

// NewKeyringProvider builds a provider over upstream.
func NewKeyringProvider(upstream *rpc.Client, keys *Keystore, approver Approver, opts ...ProviderOption) *KeyringProvider {
	p := &KeyringProvider{
		upstream: upstream,
		eth:      ethclient.NewClient(upstream),
		keys:     keys,
		approver: approver,
		grants:   &memGrants{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CallContext implements chain.Provider.
func (p *KeyringProvider) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	switch method {
	case "eth_accounts":
		return assign(result, p.accounts())
	case "eth_requestAccounts":
		accounts, err := p.requestAccounts(ctx)
		if err != nil {
			return err
		}
		return assign(result, accounts)
	case "eth_sendTransaction":
		if len(args) != 1 {
			return fmt.Errorf("eth_sendTransaction expects 1 argument, got %d", len(args))
		}
		hash, err := p.sendTransaction(ctx, args[0])
		if err != nil {
			return err
		}
		return assign(result, hash)
	default:
		return p.upstream.CallContext(ctx, result, method, args...)
	}
}

func (p *KeyringProvider) accounts() []common.Address {
	addr, err := p.keys.Address()
	if err != nil {
		p.log.Debug("no local key", "err", err)
		return []common.Address{}
	}
	if !p.grants.Granted(addr) {
		return []common.Address{}
	}
	return []common.Address{addr}
}

func (p *KeyringProvider) requestAccounts(ctx context.Context) ([]common.Address, error) {
	addr, err := p.keys.Address()
	if err != nil {
		return nil, &unauthorizedError{msg: err.Error()}
	}
	if !p.grants.Granted(addr) {
		if !p.approver.ApproveConnection(ctx, addr) {
			return nil, &chain.RejectionError{Msg: "User rejected the request."}
		}
		if err := p.grants.Grant(addr); err != nil {
			p.log.Warn("could not persist connection grant", "err", err)
		}
	}
	return []common.Address{addr}, nil
}

func (p *KeyringProvider) sendTransaction(ctx context.Context, arg interface{}) (common.Hash, error) {
	var args TxArgs
	if err := assign(&args, arg); err != nil {
		return common.Hash{}, fmt.Errorf("decoding transaction: %w", err)
	}

	key, err := p.keys.PrivateKey()
	if err != nil {
		return common.Hash{}, &unauthorizedError{msg: err.Error()}
	}
	from := crypto.PubkeyToAddress(key.PublicKey)
	if args.From != from || !p.grants.Granted(from) {
		return common.Hash{}, &unauthorizedError{msg: "account " + Lower(args.From) + " is not authorised"}
	}

	if !p.approver.ApproveTransaction(ctx, args) {
		return common.Hash{}, &chain.RejectionError{Msg: "User denied transaction signature."}
	}

	tx, chainID, err := p.buildTx(ctx, args)
	if err != nil {
		return common.Hash{}, err
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}
	if err := p.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}

	p.log.Debug("broadcast signed transaction", "hash", signed.Hash().Hex(), "nonce", tx.Nonce())
	return signed.Hash(), nil
}

func (p *KeyringProvider) buildTx(ctx context.Context, args TxArgs) (*types.Transaction, *big.Int, error) {
	chainID, err := p.eth.ChainID(ctx)
	if err != nil {
		return nil, nil, err
	}
	nonce, err := p.eth.PendingNonceAt(ctx, args.From)
	if err != nil {
		return nil, nil, err
	}
	gasPrice, err := p.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, nil, err
	}

	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}

	var gas uint64
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	} else {
		gas, err = p.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:  args.From,
			To:    args.To,
			Value: value,
			Data:  args.Data,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       args.To,
		Value:    value,
		Data:     args.Data,
	})
	return tx, chainID, nil
}

// assign copies v into result the way an RPC client would decode a reply.
func assign(result, v interface{}) error {
	if result == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, result)
}

type unauthorizedError struct {
	msg string
}

func (e *unauthorizedError) Error() string  { return e.msg }
func (e *unauthorizedError) ErrorCode() int { return chain.CodeUnauthorized }
