// Package txnode simulates a dev node with the Transactions contract
// deployed, on top of fixtures.RPCServer. Writes through eth_sendTransaction
// are mined immediately.
package txnode

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/contract"
	"github.com/Mohsinsiddi/w3transfer/test/fixtures"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// ChainID is the dev chain id the node reports (31337).
const ChainID = "0x7a69"

// Node is the simulated chain.
type Node struct {
	*fixtures.RPCServer

	abi      abi.ABI
	contract common.Address

	mu       sync.Mutex
	accounts []common.Address
	records  []contract.RawTransfer
	logs     []map[string]interface{}
	receipts map[common.Hash]uint64
	block    uint64
	revert   bool
}

type sendArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
	Data  hexutil.Bytes   `json:"data"`
}

type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// New starts a node exposing accounts, with the contract at addr.
func New(t *testing.T, addr common.Address, accounts ...common.Address) *Node {
	t.Helper()
	parsed, err := contract.ParseTransactionsABI()
	require.NoError(t, err)

	n := &Node{
		RPCServer: fixtures.NewRPCServer(t),
		abi:       parsed,
		contract:  addr,
		accounts:  accounts,
		receipts:  make(map[common.Hash]uint64),
		block:     100,
	}
	n.Result("eth_chainId", ChainID)
	n.Handle("eth_blockNumber", func([]json.RawMessage) (interface{}, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		return hexutil.Uint64(n.block), nil
	})
	n.Handle("eth_accounts", n.exposed)
	n.Handle("eth_requestAccounts", n.exposed)
	n.Handle("eth_sendTransaction", n.send)
	n.Handle("eth_getTransactionReceipt", n.receipt)
	n.Handle("eth_call", n.call)
	n.Handle("eth_getLogs", func([]json.RawMessage) (interface{}, error) {
		n.mu.Lock()
		defer n.mu.Unlock()
		return append([]map[string]interface{}{}, n.logs...), nil
	})
	return n
}

// RevertRecords makes every later record write mine with status 0.
func (n *Node) RevertRecords() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.revert = true
}

// Records returns a copy of the stored transfers.
func (n *Node) Records() []contract.RawTransfer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]contract.RawTransfer{}, n.records...)
}

func (n *Node) exposed([]json.RawMessage) (interface{}, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]common.Address{}, n.accounts...), nil
}

func (n *Node) send(params []json.RawMessage) (interface{}, error) {
	var args sendArgs
	if err := json.Unmarshal(params[0], &args); err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.block++
	hash := crypto.Keccak256Hash(params[0], new(big.Int).SetUint64(n.block).Bytes())
	status := uint64(1)

	addToBlockchain := n.abi.Methods["addToBlockchain"]
	if args.To != nil && *args.To == n.contract && len(args.Data) >= 4 && bytes.Equal(args.Data[:4], addToBlockchain.ID) {
		if n.revert {
			status = 0
		} else if err := n.record(args.From, args.Data[4:], hash); err != nil {
			return nil, err
		}
	}
	n.receipts[hash] = status
	return hash, nil
}

// record appends a transfer and its Transfer log. Callers hold n.mu.
func (n *Node) record(from common.Address, input []byte, hash common.Hash) error {
	vals, err := n.abi.Methods["addToBlockchain"].Inputs.Unpack(input)
	if err != nil {
		return err
	}
	rec := contract.RawTransfer{
		Sender:    from,
		Receiver:  vals[0].(common.Address),
		Amount:    vals[1].(*big.Int),
		Message:   vals[2].(string),
		Timestamp: big.NewInt(time.Now().Unix()),
		Keyword:   vals[3].(string),
	}
	n.records = append(n.records, rec)

	ev := n.abi.Events["Transfer"]
	data, err := ev.Inputs.NonIndexed().Pack(rec.Sender, rec.Receiver, rec.Amount, rec.Message, rec.Timestamp, rec.Keyword)
	if err != nil {
		return err
	}
	n.logs = append(n.logs, map[string]interface{}{
		"address":         n.contract,
		"topics":          []common.Hash{ev.ID},
		"data":            hexutil.Bytes(data),
		"blockNumber":     hexutil.Uint64(n.block),
		"transactionHash": hash,
		"removed":         false,
	})
	return nil
}

func (n *Node) receipt(params []json.RawMessage) (interface{}, error) {
	var hash common.Hash
	if err := json.Unmarshal(params[0], &hash); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	status, ok := n.receipts[hash]
	if !ok {
		return nil, nil
	}
	return map[string]interface{}{
		"transactionHash": hash,
		"status":          hexutil.Uint64(status),
		"blockNumber":     hexutil.Uint64(n.block),
		"gasUsed":         hexutil.Uint64(21000),
	}, nil
}

func (n *Node) call(params []json.RawMessage) (interface{}, error) {
	var args callArgs
	if err := json.Unmarshal(params[0], &args); err != nil {
		return nil, err
	}
	if args.To != n.contract || len(args.Data) < 4 {
		return "0x", nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var (
		out []byte
		err error
	)
	switch sel := args.Data[:4]; {
	case bytes.Equal(sel, n.abi.Methods["getTransactionCount"].ID):
		out, err = n.abi.Methods["getTransactionCount"].Outputs.Pack(big.NewInt(int64(len(n.records))))
	case bytes.Equal(sel, n.abi.Methods["getAllTransactions"].ID):
		out, err = n.abi.Methods["getAllTransactions"].Outputs.Pack(append([]contract.RawTransfer{}, n.records...))
	default:
		return nil, errors.New("execution reverted")
	}
	if err != nil {
		return nil, err
	}
	return hexutil.Bytes(out), nil
}
