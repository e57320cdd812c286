// Package coordinator drives the connect, send and history workflows against
// a wallet and the Transactions contract, and publishes one consolidated
// state to its subscribers.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/cache"
	"github.com/Mohsinsiddi/w3transfer/internal/chain"
	"github.com/Mohsinsiddi/w3transfer/internal/contract"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
)

// NativeTransferGas is the gas limit of a plain value transfer.
const NativeTransferGas = uint64(21_000)

// Errors.
var (
	ErrNotReady         = errors.New("not ready: connect a wallet and wait for the pending send")
	ErrInvalidRecipient = errors.New("invalid recipient address")
	ErrUnknownField     = errors.New("unknown draft field")
)

// Notices shown to the user.
const (
	NoticeInstallWallet = "please install or unlock a wallet"
	NoticeRejected      = "connection request rejected"
	NoticeProvider      = "wallet provider error, see logs"
)

// Wallet is the wallet surface the coordinator needs. *wallet.Gateway
// satisfies it.
type Wallet interface {
	IsAvailable() bool
	ConnectedAccounts(ctx context.Context) []common.Address
	RequestConnection(ctx context.Context) (common.Address, error)
	SubmitNativeTransfer(ctx context.Context, from, to common.Address, valueWei *big.Int, gasLimit uint64) (*chain.TxHandle, error)
}

// Contract is the Transactions contract surface the coordinator needs.
type Contract interface {
	TransactionCount(ctx context.Context) (uint64, error)
	AllTransactions(ctx context.Context) ([]contract.RawTransfer, error)
	AddToBlockchain(ctx context.Context, to common.Address, valueWei *big.Int, message, keyword string) (*chain.TxHandle, error)
}

// ContractFactory returns the contract bound to account, or an unbound
// read-only one for nil.
type ContractFactory func(account *common.Address) Contract

// GatewayFactory adapts a contract.Gateway.
func GatewayFactory(g *contract.Gateway) ContractFactory {
	return func(account *common.Address) Contract {
		if account == nil {
			return g
		}
		return g.Bind(*account)
	}
}

// Observer receives coordinator events. *metrics.Registry is one.
type Observer interface {
	Connected(ok bool)
	SendStarted()
	SendFinished(outcome string, elapsed time.Duration)
	CountRefreshed(n uint64)
	HistoryRefreshed(records int)
}

type nopObserver struct{}

func (nopObserver) Connected(bool)                     {}
func (nopObserver) SendStarted()                       {}
func (nopObserver) SendFinished(string, time.Duration) {}
func (nopObserver) CountRefreshed(uint64)              {}
func (nopObserver) HistoryRefreshed(int)               {}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithObserver feeds coordinator events to o.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// Coordinator owns the session state. All methods are safe for concurrent use.
type Coordinator struct {
	wallet    Wallet
	contracts ContractFactory
	cache     cache.Cache
	observer  Observer
	log       *slog.Logger

	// notifyMu orders publications; mu guards state and subs.
	notifyMu sync.Mutex
	mu       sync.Mutex
	state    State
	subs     map[int]func(State)
	nextSub  int
}

// New returns a coordinator in the initial state. Call Start to reconcile
// with the wallet and contract.
func New(w Wallet, contracts ContractFactory, c cache.Cache, opts ...Option) *Coordinator {
	co := &Coordinator{
		wallet:    w,
		contracts: contracts,
		cache:     c,
		observer:  nopObserver{},
		log:       slog.Default(),
		subs:      make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// State returns a snapshot of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe calls fn with a snapshot after every state change. fn runs on
// the mutating goroutine and must not call the coordinator's mutating
// methods. The returned func cancels the subscription.
func (c *Coordinator) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// update applies fn to the state under the lock and publishes the result.
func (c *Coordinator) update(fn func(s *State)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	fn(&c.state)
	snap := c.state.clone()
	subs := make([]func(State), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
}

// Start seeds the count from the cache, then concurrently binds an already
// authorised account (loading its history) and refreshes the count from the
// contract. Failures are logged and leave data stale; nothing is returned.
func (c *Coordinator) Start(ctx context.Context) {
	if n, ok, err := c.cache.ReadCount(); err != nil {
		c.log.Warn("reading cached transfer count", "err", err)
	} else if ok {
		c.update(func(s *State) { s.Count, s.CountKnown = n, true })
	}

	if !c.wallet.IsAvailable() {
		c.update(func(s *State) { s.Notice = NoticeInstallWallet })
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.reconcileAccounts(ctx)
	}()
	go func() {
		defer wg.Done()
		c.refreshCount(ctx)
	}()
	wg.Wait()
}

func (c *Coordinator) reconcileAccounts(ctx context.Context) {
	c.update(func(s *State) { s.Connection = Connecting })

	accounts := c.wallet.ConnectedAccounts(ctx)
	if len(accounts) == 0 {
		c.log.Info("no authorised accounts found")
		c.update(func(s *State) { s.Connection = Disconnected })
		return
	}

	acct := accounts[0]
	c.update(func(s *State) {
		s.Connection = Connected
		s.Account = &acct
	})
	c.refreshHistory(ctx, acct)
}

// Connect asks the wallet for an account, binds it and loads its history.
// On failure the coordinator stays disconnected with a notice set.
func (c *Coordinator) Connect(ctx context.Context) error {
	c.update(func(s *State) {
		s.Connection = Connecting
		s.Notice = ""
	})

	acct, err := c.wallet.RequestConnection(ctx)
	if err != nil {
		notice := NoticeProvider
		switch {
		case errors.Is(err, wallet.ErrWalletUnavailable):
			notice = NoticeInstallWallet
		case errors.Is(err, wallet.ErrUserRejected):
			notice = NoticeRejected
		default:
			c.log.Error("connection request failed", "err", err)
		}
		c.update(func(s *State) {
			s.Connection = Disconnected
			s.Notice = notice
		})
		c.observer.Connected(false)
		return err
	}

	c.log.Info("wallet connected", "account", wallet.Lower(acct))
	c.update(func(s *State) {
		s.Connection = Connected
		s.Account = &acct
	})
	c.observer.Connected(true)
	c.refreshHistory(ctx, acct)
	return nil
}

// SetDraft replaces the whole draft.
func (c *Coordinator) SetDraft(d TransferRequest) {
	c.update(func(s *State) { s.Draft = d })
}

// HandleChange sets one draft field by name. Both "addressTo" and
// "recipient" name the recipient.
func (c *Coordinator) HandleChange(field, value string) error {
	var set func(d *TransferRequest)
	switch strings.ToLower(field) {
	case "addressto", "recipient":
		set = func(d *TransferRequest) { d.Recipient = value }
	case "amount":
		set = func(d *TransferRequest) { d.Amount = value }
	case "keyword":
		set = func(d *TransferRequest) { d.Keyword = value }
	case "message":
		set = func(d *TransferRequest) { d.Message = value }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	c.update(func(s *State) { set(&s.Draft) })
	return nil
}

// Refresh reloads history (when connected) and the count.
func (c *Coordinator) Refresh(ctx context.Context) {
	acct := c.State().Account

	var wg sync.WaitGroup
	if acct != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.refreshHistory(ctx, *acct)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.refreshCount(ctx)
	}()
	wg.Wait()
}

// Reset returns to the initial state. Subscriptions survive.
func (c *Coordinator) Reset() {
	c.update(func(s *State) { *s = State{} })
}

func (c *Coordinator) refreshHistory(ctx context.Context, acct common.Address) {
	raw, err := c.contracts(&acct).AllTransactions(ctx)
	if err != nil {
		c.log.Warn("loading transfer history", "err", err)
		return
	}
	records := make([]TransferRecord, len(raw))
	for i, r := range raw {
		records[i] = toRecord(r)
	}
	c.update(func(s *State) { s.Transactions = records })
	c.observer.HistoryRefreshed(len(records))
}

// refreshCount reads the count from the contract and persists it.
func (c *Coordinator) refreshCount(ctx context.Context) {
	n, err := c.contracts(c.State().Account).TransactionCount(ctx)
	if err != nil {
		c.log.Warn("reading transfer count", "err", err)
		return
	}
	if err := c.cache.WriteCount(n); err != nil {
		c.log.Warn("caching transfer count", "err", err)
	}
	c.update(func(s *State) { s.Count, s.CountKnown = n, true })
	c.observer.CountRefreshed(n)
}

func toRecord(r contract.RawTransfer) TransferRecord {
	rec := TransferRecord{
		Sender:    r.Sender,
		Recipient: r.Receiver,
		Message:   r.Message,
		Keyword:   r.Keyword,
		AmountWei: new(big.Int),
	}
	if r.Amount != nil {
		rec.AmountWei.Set(r.Amount)
	}
	rec.Amount = units.EtherFloat(rec.AmountWei)
	if r.Timestamp != nil && r.Timestamp.IsInt64() {
		rec.Timestamp = time.Unix(r.Timestamp.Int64(), 0).UTC()
	}
	return rec
}
