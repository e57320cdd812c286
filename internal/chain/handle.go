package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultPollInterval is how often Wait asks for a receipt.
const DefaultPollInterval = 2 * time.Second

// Receipt is the subset of a transaction receipt the client needs.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64 // 1 = success, 0 = reverted
	BlockNumber uint64
	GasUsed     uint64
}

// TxHandle is a submitted transaction that can be awaited.
type TxHandle struct {
	Hash common.Hash

	provider     Provider
	pollInterval time.Duration
}

// NewTxHandle returns a handle for hash that polls provider for its receipt.
// A zero pollInterval means DefaultPollInterval.
func NewTxHandle(p Provider, hash common.Hash, pollInterval time.Duration) *TxHandle {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &TxHandle{Hash: hash, provider: p, pollInterval: pollInterval}
}

// Receipt fetches the receipt once. Returns nil, nil while still pending.
func (h *TxHandle) Receipt(ctx context.Context) (*Receipt, error) {
	var raw *struct {
		TransactionHash common.Hash     `json:"transactionHash"`
		Status          *hexutil.Uint64 `json:"status"`
		BlockNumber     *hexutil.Big    `json:"blockNumber"`
		GasUsed         hexutil.Uint64  `json:"gasUsed"`
	}
	if err := h.provider.CallContext(ctx, &raw, "eth_getTransactionReceipt", h.Hash); err != nil {
		return nil, ProviderError("eth_getTransactionReceipt", err)
	}
	if raw == nil || raw.BlockNumber == nil {
		return nil, nil
	}

	r := &Receipt{
		TxHash:      h.Hash,
		Status:      1,
		BlockNumber: raw.BlockNumber.ToInt().Uint64(),
		GasUsed:     uint64(raw.GasUsed),
	}
	// Pre-Byzantium receipts carry no status; treat them as mined.
	if raw.Status != nil {
		r.Status = uint64(*raw.Status)
	}
	return r, nil
}

// Wait polls until the transaction is mined or ctx is done. A mined but
// failed transaction yields ErrTransactionReverted along with its receipt.
func (h *TxHandle) Wait(ctx context.Context) (*Receipt, error) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := h.Receipt(ctx)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == 0 {
				return receipt, fmt.Errorf("%w (hash: %s)", ErrTransactionReverted, h.Hash.Hex())
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
