package coordinator

import (
	"context"
	"math/big"
	"testing"

	"github.com/Mohsinsiddi/w3transfer/internal/contract"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestToRecordNilFields(t *testing.T) {
	rec := toRecord(contract.RawTransfer{Sender: alice})
	assert.Equal(t, 0, rec.AmountWei.Sign())
	assert.Zero(t, rec.Amount)
	assert.True(t, rec.Timestamp.IsZero())
}

func TestHistoryPreservesOrderAndAmounts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("records keep contract order and exact wei", prop.ForAll(
		func(amounts []uint64) bool {
			raw := make([]contract.RawTransfer, len(amounts))
			for i, a := range amounts {
				raw[i] = contract.RawTransfer{
					Sender:    alice,
					Receiver:  common.BigToAddress(big.NewInt(int64(i + 1))),
					Amount:    new(big.Int).SetUint64(a),
					Timestamp: big.NewInt(int64(i)),
				}
			}
			h := newHarness(&fakeWallet{available: true, accounts: []common.Address{alice}}, &fakeContract{records: raw})
			h.co.Start(context.Background())

			got := h.co.State().Transactions
			if len(got) != len(raw) {
				return false
			}
			for i, rec := range got {
				if rec.Recipient != raw[i].Receiver || rec.AmountWei.Cmp(raw[i].Amount) != 0 {
					return false
				}
				if rec.Amount != units.EtherFloat(raw[i].Amount) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt64()),
	))

	properties.TestingRun(t)
}
