// Package ens resolves ENS names for the send recipient and shows reverse
// names for accounts.
package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// RegistryAddress is the ENS registry, the same on mainnet, Sepolia and Holesky.
var RegistryAddress = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

// ErrNotFound is returned when a name or address has no record.
var ErrNotFound = errors.New("ens record not found")

const ensABI = `[
  {"type":"function","name":"resolver","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"addr","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"name","stateMutability":"view","inputs":[{"name":"node","type":"bytes32"}],"outputs":[{"name":"","type":"string"}]}
]`

var parsedABI = mustParse(ensABI)

func mustParse(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}

// Resolver looks names up through a provider.
type Resolver struct {
	provider chain.Provider
	registry common.Address
}

// NewResolver uses the default registry.
func NewResolver(p chain.Provider) *Resolver {
	return &Resolver{provider: p, registry: RegistryAddress}
}

// IsName reports whether s looks like an ENS name rather than an address.
func IsName(s string) bool {
	return strings.Contains(s, ".") && !common.IsHexAddress(s)
}

// Resolve returns the address name points to.
func (r *Resolver) Resolve(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(name)
	resolver, err := r.resolverOf(ctx, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("%q: %w", name, err)
	}

	var addr common.Address
	if err := r.call(ctx, resolver, "addr", node, &addr); err != nil {
		return common.Address{}, fmt.Errorf("querying ENS resolver for %q: %w", name, err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no address record for %q", ErrNotFound, name)
	}
	return addr, nil
}

// ReverseLookup returns the primary name of addr via addr.reverse.
func (r *Resolver) ReverseLookup(ctx context.Context, addr common.Address) (string, error) {
	reverse := strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x")) + ".addr.reverse"
	node := Namehash(reverse)
	resolver, err := r.resolverOf(ctx, node)
	if err != nil {
		return "", fmt.Errorf("%s: %w", addr.Hex(), err)
	}

	var name string
	if err := r.call(ctx, resolver, "name", node, &name); err != nil {
		return "", fmt.Errorf("querying reverse resolver: %w", err)
	}
	if name == "" {
		return "", fmt.Errorf("%w: no reverse name for %s", ErrNotFound, addr.Hex())
	}
	return name, nil
}

func (r *Resolver) resolverOf(ctx context.Context, node common.Hash) (common.Address, error) {
	var resolver common.Address
	if err := r.call(ctx, r.registry, "resolver", node, &resolver); err != nil {
		return common.Address{}, fmt.Errorf("querying ENS registry: %w", err)
	}
	if resolver == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: no resolver set", ErrNotFound)
	}
	return resolver, nil
}

func (r *Resolver) call(ctx context.Context, to common.Address, method string, node common.Hash, out interface{}) error {
	data, err := parsedABI.Pack(method, node)
	if err != nil {
		return err
	}
	var result hexutil.Bytes
	msg := map[string]interface{}{"to": to, "data": hexutil.Bytes(data)}
	if err := r.provider.CallContext(ctx, &result, "eth_call", msg, "latest"); err != nil {
		return chain.ProviderError("eth_call", err)
	}
	// No contract at the address (dev chains without ENS).
	if len(result) == 0 {
		return ErrNotFound
	}
	vals, err := parsedABI.Unpack(method, result)
	if err != nil {
		return err
	}
	return parsedABI.Methods[method].Outputs.Copy(out, vals)
}

// Namehash implements the EIP-137 namehash. Labels are lowercased; full
// UTS-46 normalisation is not applied.
//
//	namehash("") = 0x00...00
//	namehash("eth") = keccak256(namehash("") + keccak256("eth"))
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(strings.ToLower(name), ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := keccak256([]byte(labels[i]))
		node = common.BytesToHash(keccak256(append(node.Bytes(), label...)))
	}
	return node
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
