package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/cache"
	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/internal/contract"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type harness struct {
	co       *Coordinator
	wallet   *fakeWallet
	contract *fakeContract
	cache    *cache.MemCache
	observer *recordingObserver
}

func newHarness(w *fakeWallet, f *fakeContract) *harness {
	h := &harness{wallet: w, contract: f, cache: &cache.MemCache{}, observer: &recordingObserver{}}
	h.co = New(w, f.factory(), h.cache, WithLogger(quiet), WithObserver(h.observer))
	return h
}

func connectedHarness(t *testing.T, f *fakeContract) *harness {
	t.Helper()
	h := newHarness(&fakeWallet{available: true, accounts: []common.Address{alice}}, f)
	h.co.Start(context.Background())
	require.NotNil(t, h.co.State().Account)
	return h
}

func lunchDraft() TransferRequest {
	return TransferRequest{Recipient: bob.Hex(), Amount: "0.5", Keyword: "food", Message: "lunch"}
}

func TestStartWithoutAccounts(t *testing.T) {
	f := &fakeContract{count: 4, records: []contract.RawTransfer{{Sender: bob, Receiver: alice, Amount: big.NewInt(1), Timestamp: big.NewInt(1)}}}
	h := newHarness(&fakeWallet{available: true}, f)

	h.co.Start(context.Background())

	s := h.co.State()
	assert.Nil(t, s.Account)
	assert.Empty(t, s.Transactions)
	assert.Equal(t, Disconnected, s.Connection)
	assert.Empty(t, s.Notice)
	assert.NoError(t, s.Err)

	// The count is still refreshed and cached.
	assert.Equal(t, uint64(4), s.Count)
	n, ok, _ := h.cache.ReadCount()
	assert.True(t, ok)
	assert.Equal(t, uint64(4), n)
}

func TestStartBindsAuthorisedAccount(t *testing.T) {
	f := &fakeContract{
		count: 2,
		records: []contract.RawTransfer{
			{Sender: alice, Receiver: bob, Amount: big.NewInt(5e17), Message: "lunch", Keyword: "food", Timestamp: big.NewInt(1_700_000_000)},
			{Sender: bob, Receiver: alice, Amount: big.NewInt(1), Message: "dust", Keyword: "x", Timestamp: big.NewInt(1_700_000_060)},
		},
	}
	h := newHarness(&fakeWallet{available: true, accounts: []common.Address{alice, bob}}, f)
	h.co.Start(context.Background())

	s := h.co.State()
	require.NotNil(t, s.Account)
	assert.Equal(t, alice, *s.Account)
	assert.Equal(t, Connected, s.Connection)

	require.Len(t, s.Transactions, 2)
	first := s.Transactions[0]
	assert.Equal(t, alice, first.Sender)
	assert.Equal(t, bob, first.Recipient)
	assert.Equal(t, 0.5, first.Amount)
	assert.Equal(t, 0, big.NewInt(5e17).Cmp(first.AmountWei))
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), first.Timestamp)
	assert.Equal(t, "lunch", first.Message)
	assert.Equal(t, "food", first.Keyword)
	assert.Equal(t, "dust", s.Transactions[1].Message)
}

func TestStartSeedsFromCacheWhenContractFails(t *testing.T) {
	f := &fakeContract{countErr: chain.ProviderError("getTransactionCount", errors.New("boom")), historyErr: errors.New("boom")}
	h := newHarness(&fakeWallet{available: true, accounts: []common.Address{alice}}, f)
	require.NoError(t, h.cache.WriteCount(9))

	h.co.Start(context.Background())

	s := h.co.State()
	assert.Equal(t, uint64(9), s.Count)
	assert.True(t, s.CountKnown)
	assert.Empty(t, s.Transactions)
	assert.NoError(t, s.Err)
}

func TestStartWithoutWallet(t *testing.T) {
	h := newHarness(&fakeWallet{}, &fakeContract{count: 3})
	h.co.Start(context.Background())

	s := h.co.State()
	assert.Nil(t, s.Account)
	assert.Equal(t, NoticeInstallWallet, s.Notice)
	assert.Zero(t, h.contract.countReads)
}

func TestConnectWithoutWallet(t *testing.T) {
	w := &fakeWallet{requestErr: wallet.ErrWalletUnavailable}
	h := newHarness(w, &fakeContract{})

	err := h.co.Connect(context.Background())
	assert.ErrorIs(t, err, wallet.ErrWalletUnavailable)

	s := h.co.State()
	assert.Nil(t, s.Account)
	assert.Equal(t, Disconnected, s.Connection)
	assert.Equal(t, NoticeInstallWallet, s.Notice)
	assert.Equal(t, []bool{false}, h.observer.connects)
}

func TestConnectWithRealGatewayAndNoProvider(t *testing.T) {
	h := &harness{cache: &cache.MemCache{}}
	h.co = New(wallet.NewGateway(nil), (&fakeContract{}).factory(), h.cache, WithLogger(quiet))

	err := h.co.Connect(context.Background())
	assert.ErrorIs(t, err, wallet.ErrWalletUnavailable)
	assert.Nil(t, h.co.State().Account)
}

func TestConnectRejected(t *testing.T) {
	h := newHarness(&fakeWallet{available: true, requestErr: wallet.ErrUserRejected}, &fakeContract{})
	err := h.co.Connect(context.Background())
	assert.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Equal(t, NoticeRejected, h.co.State().Notice)
}

func TestConnectProviderError(t *testing.T) {
	h := newHarness(&fakeWallet{available: true, requestErr: chain.ErrProvider}, &fakeContract{})
	err := h.co.Connect(context.Background())
	assert.ErrorIs(t, err, chain.ErrProvider)
	assert.Equal(t, NoticeProvider, h.co.State().Notice)
}

func TestConnectLoadsHistory(t *testing.T) {
	f := &fakeContract{records: []contract.RawTransfer{{Sender: alice, Receiver: bob, Amount: big.NewInt(2e18), Timestamp: big.NewInt(5)}}}
	h := newHarness(&fakeWallet{available: true, requestAcct: alice}, f)

	require.NoError(t, h.co.Connect(context.Background()))

	s := h.co.State()
	require.NotNil(t, s.Account)
	assert.Equal(t, alice, *s.Account)
	assert.Equal(t, Connected, s.Connection)
	require.Len(t, s.Transactions, 1)
	assert.Equal(t, 2.0, s.Transactions[0].Amount)
	assert.Equal(t, []bool{true}, h.observer.connects)
}

func TestHandleChangeMerges(t *testing.T) {
	h := newHarness(&fakeWallet{}, &fakeContract{})
	require.NoError(t, h.co.HandleChange("addressTo", "0xabc"))
	require.NoError(t, h.co.HandleChange("amount", "0.5"))
	require.NoError(t, h.co.HandleChange("keyword", "food"))
	require.NoError(t, h.co.HandleChange("message", "lunch"))
	assert.Equal(t, TransferRequest{Recipient: "0xabc", Amount: "0.5", Keyword: "food", Message: "lunch"}, h.co.State().Draft)

	require.NoError(t, h.co.HandleChange("recipient", "0xdef"))
	assert.Equal(t, "0xdef", h.co.State().Draft.Recipient)
	assert.Equal(t, "0.5", h.co.State().Draft.Amount)

	assert.ErrorIs(t, h.co.HandleChange("gas", "1"), ErrUnknownField)

	h.co.SetDraft(TransferRequest{Amount: "1"})
	assert.Equal(t, TransferRequest{Amount: "1"}, h.co.State().Draft)
}

func TestSendScenario(t *testing.T) {
	f := &fakeContract{count: 7}
	h := connectedHarness(t, f)
	require.NoError(t, h.cache.WriteCount(3))
	h.co.SetDraft(lunchDraft())

	hash, err := h.co.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recordHash, hash)

	natives := h.wallet.natives()
	require.Len(t, natives, 1)
	assert.Equal(t, alice, natives[0].from)
	assert.Equal(t, bob, natives[0].to)
	assert.Equal(t, NativeTransferGas, natives[0].gas)
	assert.Equal(t, uint64(21000), natives[0].gas)
	want, _ := new(big.Int).SetString("500000000000000000", 10)
	assert.Equal(t, 0, want.Cmp(natives[0].value))

	adds := f.adds()
	require.Len(t, adds, 1)
	require.NotNil(t, adds[0].from)
	assert.Equal(t, alice, *adds[0].from)
	assert.Equal(t, bob, adds[0].to)
	assert.Equal(t, 0, want.Cmp(adds[0].value))
	assert.Equal(t, "lunch", adds[0].message)
	assert.Equal(t, "food", adds[0].keyword)

	// Fresh count persisted over the old cached value.
	n, ok, err := h.cache.ReadCount()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(8), n)

	// Session restarted from settled chain state.
	s := h.co.State()
	assert.Equal(t, Idle, s.Submission)
	assert.False(t, s.IsLoading)
	assert.Equal(t, TransferRequest{}, s.Draft)
	assert.Equal(t, uint64(8), s.Count)
	require.NotNil(t, s.Account)
	require.Len(t, s.Transactions, 1)
	assert.Equal(t, 0.5, s.Transactions[0].Amount)

	assert.Equal(t, []string{OutcomeConfirmed}, h.observer.outcomes)
}

func TestSendTransitions(t *testing.T) {
	h := connectedHarness(t, &fakeContract{})
	h.co.SetDraft(lunchDraft())

	var mu sync.Mutex
	var seen []SubmissionState
	cancel := h.co.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		if len(seen) == 0 || seen[len(seen)-1] != s.Submission {
			seen = append(seen, s.Submission)
		}
	})
	defer cancel()

	_, err := h.co.Send(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []SubmissionState{Submitting, Confirmed, Idle}, seen)
}

func TestSendWhileDisconnected(t *testing.T) {
	h := newHarness(&fakeWallet{available: true}, &fakeContract{})
	h.co.Start(context.Background())
	h.co.SetDraft(lunchDraft())

	_, err := h.co.Send(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, h.wallet.natives())
	assert.Equal(t, Idle, h.co.State().Submission)
	assert.NoError(t, h.co.State().Err)
}

func TestSendRejectsConcurrentSubmissions(t *testing.T) {
	h := connectedHarness(t, &fakeContract{})
	h.wallet.entered = make(chan struct{})
	h.wallet.release = make(chan struct{})
	h.co.SetDraft(lunchDraft())

	done := make(chan error, 1)
	go func() {
		_, err := h.co.Send(context.Background())
		done <- err
	}()
	<-h.wallet.entered
	assert.True(t, h.co.State().IsLoading)
	assert.Equal(t, Submitting, h.co.State().Submission)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.co.Send(context.Background())
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrNotReady)
	}

	close(h.wallet.release)
	require.NoError(t, <-done)
	assert.Len(t, h.wallet.natives(), 1)
	assert.Len(t, h.contract.adds(), 1)
}

func TestSendNativeFailureSkipsRecordWrite(t *testing.T) {
	for name, cause := range map[string]error{
		"rejected": wallet.ErrTransferRejected,
		"provider": chain.ErrProvider,
	} {
		t.Run(name, func(t *testing.T) {
			h := connectedHarness(t, &fakeContract{})
			h.wallet.nativeErr = cause
			h.co.SetDraft(lunchDraft())

			_, err := h.co.Send(context.Background())
			assert.ErrorIs(t, err, cause)
			assert.Empty(t, h.contract.adds())

			s := h.co.State()
			assert.Equal(t, Idle, s.Submission)
			assert.False(t, s.IsLoading)
			assert.ErrorIs(t, s.Err, cause)
			assert.Equal(t, lunchDraft(), s.Draft, "draft kept for a retry")
		})
	}
}

func TestSendRecordReverted(t *testing.T) {
	f := &fakeContract{count: 1, addStatus: "0x0"}
	h := connectedHarness(t, f)
	writes := h.cache.Writes()
	h.co.SetDraft(lunchDraft())

	var mu sync.Mutex
	var seen []SubmissionState
	cancel := h.co.Subscribe(func(s State) {
		mu.Lock()
		seen = append(seen, s.Submission)
		mu.Unlock()
	})
	defer cancel()

	hash, err := h.co.Send(context.Background())
	assert.ErrorIs(t, err, chain.ErrTransactionReverted)
	assert.Equal(t, recordHash, hash)

	s := h.co.State()
	assert.ErrorIs(t, s.Err, chain.ErrTransactionReverted)
	assert.Equal(t, recordHash, s.LastTxHash)
	assert.Equal(t, Idle, s.Submission)

	mu.Lock()
	assert.Contains(t, seen, Failed)
	assert.NotContains(t, seen, Confirmed)
	mu.Unlock()

	assert.Equal(t, writes, h.cache.Writes(), "no count write after a failed send")
	assert.Equal(t, []string{OutcomeFailed}, h.observer.outcomes)
}

func TestSendInvalidDraft(t *testing.T) {
	tests := []struct {
		name  string
		draft TransferRequest
		want  error
	}{
		{"bad amount", TransferRequest{Recipient: bob.Hex(), Amount: "0.5.1"}, units.ErrInvalidAmount},
		{"empty amount", TransferRequest{Recipient: bob.Hex()}, units.ErrInvalidAmount},
		{"too precise", TransferRequest{Recipient: bob.Hex(), Amount: "0.0000000000000000001"}, units.ErrInvalidAmount},
		{"bad recipient", TransferRequest{Recipient: "0xabc", Amount: "1"}, ErrInvalidRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := connectedHarness(t, &fakeContract{})
			h.co.SetDraft(tt.draft)

			_, err := h.co.Send(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, h.wallet.natives())
			assert.ErrorIs(t, h.co.State().Err, tt.want)
			assert.Equal(t, Idle, h.co.State().Submission)

			// The coordinator is usable again.
			h.co.SetDraft(lunchDraft())
			_, err = h.co.Send(context.Background())
			assert.NoError(t, err)
		})
	}
}

func TestSendClearsPreviousError(t *testing.T) {
	h := connectedHarness(t, &fakeContract{})
	h.co.SetDraft(TransferRequest{Recipient: bob.Hex(), Amount: "x"})
	_, err := h.co.Send(context.Background())
	require.Error(t, err)

	h.wallet.entered = make(chan struct{})
	h.wallet.release = make(chan struct{})
	h.co.SetDraft(lunchDraft())
	done := make(chan struct{})
	go func() {
		h.co.Send(context.Background()) //nolint:errcheck
		close(done)
	}()
	<-h.wallet.entered
	assert.NoError(t, h.co.State().Err)
	close(h.wallet.release)
	<-done
}

func TestSubscribeSnapshotsAreCopies(t *testing.T) {
	f := &fakeContract{records: []contract.RawTransfer{{Sender: alice, Receiver: bob, Amount: big.NewInt(10), Timestamp: big.NewInt(1)}}}
	h := connectedHarness(t, f)

	var got State
	cancel := h.co.Subscribe(func(s State) { got = s })
	h.co.SetDraft(TransferRequest{Amount: "1"})
	cancel()

	require.Len(t, got.Transactions, 1)
	got.Transactions[0].AmountWei.SetInt64(999)
	*got.Account = bob

	s := h.co.State()
	assert.Equal(t, int64(10), s.Transactions[0].AmountWei.Int64())
	assert.Equal(t, alice, *s.Account)

	// Cancelled subscribers hear nothing more.
	got = State{}
	h.co.SetDraft(TransferRequest{Amount: "2"})
	assert.Empty(t, got.Draft.Amount)
	cancel()
}

func TestRefresh(t *testing.T) {
	f := &fakeContract{count: 1}
	h := connectedHarness(t, f)
	assert.Empty(t, h.co.State().Transactions)

	f.mu.Lock()
	f.count = 2
	f.records = []contract.RawTransfer{{Sender: bob, Receiver: alice, Amount: big.NewInt(1), Timestamp: big.NewInt(1)}}
	f.mu.Unlock()

	h.co.Refresh(context.Background())
	s := h.co.State()
	assert.Equal(t, uint64(2), s.Count)
	assert.Len(t, s.Transactions, 1)
	assert.Equal(t, []uint64{1, 2}, h.observer.counts)
}

func TestReset(t *testing.T) {
	h := connectedHarness(t, &fakeContract{count: 5})
	h.co.SetDraft(lunchDraft())
	h.co.Reset()

	s := h.co.State()
	assert.Nil(t, s.Account)
	assert.Equal(t, TransferRequest{}, s.Draft)
	assert.Zero(t, s.Count)
	assert.Equal(t, Disconnected, s.Connection)
}

func TestGatewayFactory(t *testing.T) {
	g, err := contract.NewGateway(nil, nil, common.HexToAddress("0x01"), quiet)
	require.NoError(t, err)
	factory := GatewayFactory(g)

	unbound := factory(nil).(*contract.Gateway)
	_, ok := unbound.Account()
	assert.False(t, ok)

	bound := factory(&alice).(*contract.Gateway)
	acct, ok := bound.Account()
	assert.True(t, ok)
	assert.Equal(t, alice, acct)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "submitting", Submitting.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "idle", Idle.String())
}
