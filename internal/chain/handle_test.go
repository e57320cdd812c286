package chain_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/test/fixtures"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testHash = common.HexToHash("0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060")

func receiptJSON(status string) map[string]interface{} {
	return map[string]interface{}{
		"transactionHash": testHash.Hex(),
		"status":          status,
		"blockNumber":     "0x10",
		"gasUsed":         "0x5208",
	}
}

func TestReceiptPending(t *testing.T) {
	srv := fixtures.NewRPCServer(t).Result("eth_getTransactionReceipt", nil)
	h := chain.NewTxHandle(srv.Dial(t), testHash, time.Millisecond)

	r, err := h.Receipt(context.Background())
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestReceiptMined(t *testing.T) {
	srv := fixtures.NewRPCServer(t).Result("eth_getTransactionReceipt", receiptJSON("0x1"))
	h := chain.NewTxHandle(srv.Dial(t), testHash, time.Millisecond)

	r, err := h.Receipt(context.Background())
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, uint64(1), r.Status)
	assert.Equal(t, uint64(16), r.BlockNumber)
	assert.Equal(t, uint64(21000), r.GasUsed)
	assert.Equal(t, testHash, r.TxHash)
}

func TestWaitPollsUntilMined(t *testing.T) {
	polls := 0
	srv := fixtures.NewRPCServer(t)
	srv.Handle("eth_getTransactionReceipt", func([]json.RawMessage) (interface{}, error) {
		polls++
		if polls < 3 {
			return nil, nil
		}
		return receiptJSON("0x1"), nil
	})
	h := chain.NewTxHandle(srv.Dial(t), testHash, time.Millisecond)

	r, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), r.Status)
	assert.Equal(t, 3, polls)
}

func TestWaitReverted(t *testing.T) {
	srv := fixtures.NewRPCServer(t).Result("eth_getTransactionReceipt", receiptJSON("0x0"))
	h := chain.NewTxHandle(srv.Dial(t), testHash, time.Millisecond)

	r, err := h.Wait(context.Background())
	assert.ErrorIs(t, err, chain.ErrTransactionReverted)
	require.NotNil(t, r)
	assert.Equal(t, uint64(0), r.Status)
}

func TestWaitProviderError(t *testing.T) {
	srv := fixtures.NewRPCServer(t).Fail("eth_getTransactionReceipt", -32000, "header not found")
	h := chain.NewTxHandle(srv.Dial(t), testHash, time.Millisecond)

	_, err := h.Wait(context.Background())
	assert.ErrorIs(t, err, chain.ErrProvider)
	code, ok := chain.ErrorCode(err)
	assert.True(t, ok)
	assert.Equal(t, -32000, code)
}

func TestWaitHonoursContext(t *testing.T) {
	srv := fixtures.NewRPCServer(t).Result("eth_getTransactionReceipt", nil)
	h := chain.NewTxHandle(srv.Dial(t), testHash, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewTxHandleDefaultsPollInterval(t *testing.T) {
	h := chain.NewTxHandle(nil, testHash, 0)
	assert.Equal(t, testHash, h.Hash)
}

func TestErrorClassification(t *testing.T) {
	rejected := &chain.RejectionError{Msg: "User rejected the request."}
	assert.True(t, chain.IsUserRejection(rejected))
	assert.True(t, chain.IsUserRejection(chain.ProviderError("eth_sendTransaction", rejected)))
	assert.False(t, chain.IsMethodNotFound(rejected))

	srv := fixtures.NewRPCServer(t)
	err := srv.Dial(t).CallContext(context.Background(), nil, "eth_requestAccounts")
	assert.True(t, chain.IsMethodNotFound(err))
	assert.False(t, chain.IsUserRejection(err))
}
