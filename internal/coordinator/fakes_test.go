package coordinator

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/internal/contract"
	"github.com/ethereum/go-ethereum/common"
)

var (
	alice = common.HexToAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	bob   = common.HexToAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")

	nativeHash = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	recordHash = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

// receiptNode answers eth_getTransactionReceipt with a mined receipt.
type receiptNode struct {
	status string
	err    error
}

func (n receiptNode) CallContext(_ context.Context, result interface{}, method string, _ ...interface{}) error {
	if n.err != nil {
		return n.err
	}
	receipt := map[string]string{
		"status":      n.status,
		"blockNumber": "0x2a",
		"gasUsed":     "0x5208",
	}
	data, _ := json.Marshal(receipt)
	return json.Unmarshal(data, result)
}

func minedHandle(hash common.Hash, status string) *chain.TxHandle {
	return chain.NewTxHandle(receiptNode{status: status}, hash, time.Millisecond)
}

type nativeCall struct {
	from, to common.Address
	value    *big.Int
	gas      uint64
}

type fakeWallet struct {
	mu sync.Mutex

	available   bool
	accounts    []common.Address
	requestAcct common.Address
	requestErr  error
	nativeErr   error
	nativeCalls []nativeCall

	// When set, SubmitNativeTransfer signals entered and blocks on release.
	entered chan struct{}
	release chan struct{}
}

func (w *fakeWallet) IsAvailable() bool { return w.available }

func (w *fakeWallet) ConnectedAccounts(context.Context) []common.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]common.Address(nil), w.accounts...)
}

func (w *fakeWallet) RequestConnection(context.Context) (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.requestErr != nil {
		return common.Address{}, w.requestErr
	}
	w.accounts = []common.Address{w.requestAcct}
	return w.requestAcct, nil
}

func (w *fakeWallet) SubmitNativeTransfer(_ context.Context, from, to common.Address, value *big.Int, gas uint64) (*chain.TxHandle, error) {
	w.mu.Lock()
	w.nativeCalls = append(w.nativeCalls, nativeCall{from: from, to: to, value: new(big.Int).Set(value), gas: gas})
	err := w.nativeErr
	w.mu.Unlock()

	if w.entered != nil {
		w.entered <- struct{}{}
		<-w.release
	}
	if err != nil {
		return nil, err
	}
	return minedHandle(nativeHash, "0x1"), nil
}

func (w *fakeWallet) natives() []nativeCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]nativeCall(nil), w.nativeCalls...)
}

type addCall struct {
	from             *common.Address
	to               common.Address
	value            *big.Int
	message, keyword string
}

type fakeContract struct {
	mu sync.Mutex

	count      uint64
	countErr   error
	countReads int
	records    []contract.RawTransfer
	historyErr error
	addErr     error
	addStatus  string // receipt status of the record write
	addCalls   []addCall
}

func (f *fakeContract) factory() ContractFactory {
	return func(account *common.Address) Contract {
		return &boundContract{f: f, from: account}
	}
}

func (f *fakeContract) adds() []addCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]addCall(nil), f.addCalls...)
}

type boundContract struct {
	f    *fakeContract
	from *common.Address
}

func (b *boundContract) TransactionCount(context.Context) (uint64, error) {
	b.f.mu.Lock()
	defer b.f.mu.Unlock()
	b.f.countReads++
	return b.f.count, b.f.countErr
}

func (b *boundContract) AllTransactions(context.Context) ([]contract.RawTransfer, error) {
	b.f.mu.Lock()
	defer b.f.mu.Unlock()
	if b.f.historyErr != nil {
		return nil, b.f.historyErr
	}
	return append([]contract.RawTransfer(nil), b.f.records...), nil
}

func (b *boundContract) AddToBlockchain(_ context.Context, to common.Address, value *big.Int, message, keyword string) (*chain.TxHandle, error) {
	b.f.mu.Lock()
	defer b.f.mu.Unlock()
	b.f.addCalls = append(b.f.addCalls, addCall{from: b.from, to: to, value: new(big.Int).Set(value), message: message, keyword: keyword})
	if b.f.addErr != nil {
		return nil, b.f.addErr
	}
	status := b.f.addStatus
	if status == "" {
		status = "0x1"
	}
	if status == "0x1" {
		b.f.count++
		b.f.records = append(b.f.records, contract.RawTransfer{
			Sender: *b.from, Receiver: to, Amount: new(big.Int).Set(value),
			Message: message, Keyword: keyword, Timestamp: big.NewInt(1_700_000_000),
		})
	}
	return minedHandle(recordHash, status), nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	connects []bool
	counts   []uint64
}

func (o *recordingObserver) Connected(ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connects = append(o.connects, ok)
}

func (o *recordingObserver) SendStarted() {}

func (o *recordingObserver) SendFinished(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) CountRefreshed(n uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts = append(o.counts, n)
}

func (o *recordingObserver) HistoryRefreshed(int) {}
