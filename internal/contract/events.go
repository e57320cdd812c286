package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TransferEvent is a decoded Transfer log.
type TransferEvent struct {
	From      common.Address
	Receiver  common.Address
	Amount    *big.Int
	Message   string
	Timestamp *big.Int
	Keyword   string

	BlockNumber uint64
	TxHash      common.Hash
}

type logFilter struct {
	Address   common.Address  `json:"address"`
	FromBlock hexutil.Uint64  `json:"fromBlock"`
	ToBlock   string          `json:"toBlock"`
	Topics    [][]common.Hash `json:"topics"`
}

type rawLog struct {
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	TxHash      common.Hash    `json:"transactionHash"`
	Removed     bool           `json:"removed"`
}

// Transfers returns the contract's Transfer events from fromBlock to the
// chain head, in log order.
func (g *Gateway) Transfers(ctx context.Context, fromBlock uint64) ([]TransferEvent, error) {
	if g.provider == nil {
		return nil, wallet.ErrWalletUnavailable
	}

	filter := logFilter{
		Address:   g.address,
		FromBlock: hexutil.Uint64(fromBlock),
		ToBlock:   "latest",
		Topics:    [][]common.Hash{{transferTopic}},
	}
	var logs []rawLog
	if err := g.provider.CallContext(ctx, &logs, "eth_getLogs", filter); err != nil {
		return nil, chain.ProviderError("eth_getLogs", err)
	}

	events := make([]TransferEvent, 0, len(logs))
	for _, l := range logs {
		if l.Removed || len(l.Topics) == 0 || l.Topics[0] != transferTopic {
			continue
		}
		var ev TransferEvent
		if err := g.abi.UnpackIntoInterface(&ev, "Transfer", l.Data); err != nil {
			return nil, fmt.Errorf("decoding Transfer log in %s: %w", l.TxHash.Hex(), err)
		}
		ev.BlockNumber = uint64(l.BlockNumber)
		ev.TxHash = l.TxHash
		events = append(events, ev)
	}
	return events, nil
}
