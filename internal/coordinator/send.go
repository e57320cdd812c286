package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Send outcomes reported to the Observer.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
	OutcomeNotReady  = "not_ready"
)

type sendPlan struct {
	from     common.Address
	to       common.Address
	valueWei *big.Int
	draft    TransferRequest
}

// Send submits the draft: a native transfer of the amount to the recipient,
// then the addToBlockchain record write, whose receipt is awaited. On
// success the count is refreshed and persisted and the session restarts.
//
// ErrNotReady is returned without any network call when no account is bound
// or another send is in progress. Every other failure leaves the submission
// Failed (then Idle) with the error kept in State.Err, and is returned too.
// The returned hash is that of the record write.
func (c *Coordinator) Send(ctx context.Context) (common.Hash, error) {
	plan, err := c.claim()
	if errors.Is(err, ErrNotReady) {
		c.observer.SendFinished(OutcomeNotReady, 0)
		return common.Hash{}, err
	}
	if err != nil {
		return common.Hash{}, err
	}

	log := c.log.With("attempt", uuid.NewString())
	start := time.Now()
	c.observer.SendStarted()

	hash, err := c.submit(ctx, log, plan)
	if err != nil {
		c.fail(log, err, start)
		return hash, err
	}

	c.update(func(s *State) {
		s.Submission = Confirmed
		s.IsLoading = false
	})
	c.observer.SendFinished(OutcomeConfirmed, time.Since(start))

	c.refreshCount(ctx)
	c.Reset()
	c.Start(ctx)
	return hash, nil
}

// claim checks readiness, validates the draft and enters Submitting, all
// under one lock so concurrent callers cannot both pass.
func (c *Coordinator) claim() (sendPlan, error) {
	c.notifyMu.Lock()
	c.mu.Lock()

	if c.state.Account == nil || c.state.Submission != Idle {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		return sendPlan{}, ErrNotReady
	}

	plan := sendPlan{from: *c.state.Account, draft: c.state.Draft}
	var err error
	plan.valueWei, err = units.ParseEther(plan.draft.Amount)
	if err == nil && !common.IsHexAddress(plan.draft.Recipient) {
		err = fmt.Errorf("%w: %q", ErrInvalidRecipient, plan.draft.Recipient)
	}
	if err == nil {
		plan.to = common.HexToAddress(plan.draft.Recipient)
		c.state.Submission = Submitting
		c.state.IsLoading = true
		c.state.Err = nil
		c.state.Notice = ""
	}
	c.mu.Unlock()
	c.notifyMu.Unlock()

	if err != nil {
		// Rejected before any network call.
		c.log.Warn("send rejected", "err", err)
		c.settleFailed(err)
		c.observer.SendFinished(OutcomeFailed, 0)
		return sendPlan{}, err
	}
	c.publish()
	return plan, nil
}

func (c *Coordinator) submit(ctx context.Context, log *slog.Logger, p sendPlan) (common.Hash, error) {
	log.Info("submitting native transfer",
		"from", wallet.Lower(p.from), "to", wallet.Lower(p.to), "wei", p.valueWei.String())

	native, err := c.wallet.SubmitNativeTransfer(ctx, p.from, p.to, p.valueWei, NativeTransferGas)
	if err != nil {
		return common.Hash{}, fmt.Errorf("native transfer: %w", err)
	}
	log.Info("native transfer submitted", "hash", native.Hash.Hex())

	record, err := c.contracts(&p.from).AddToBlockchain(ctx, p.to, p.valueWei, p.draft.Message, p.draft.Keyword)
	if err != nil {
		return common.Hash{}, fmt.Errorf("addToBlockchain: %w", err)
	}
	c.update(func(s *State) { s.LastTxHash = record.Hash })
	log.Info("awaiting record confirmation", "hash", record.Hash.Hex())

	receipt, err := record.Wait(ctx)
	if err != nil {
		return record.Hash, fmt.Errorf("addToBlockchain confirmation: %w", err)
	}
	log.Info("record confirmed", "hash", record.Hash.Hex(), "block", receipt.BlockNumber)
	return record.Hash, nil
}

func (c *Coordinator) fail(log *slog.Logger, err error, start time.Time) {
	outcome := OutcomeFailed
	if errors.Is(err, wallet.ErrTransferRejected) {
		outcome = OutcomeRejected
		log.Info("send rejected by user", "err", err)
	} else {
		log.Error("send failed", "err", err)
	}
	c.settleFailed(err)
	c.observer.SendFinished(outcome, time.Since(start))
}

// settleFailed publishes Failed, then Idle with the error kept.
func (c *Coordinator) settleFailed(err error) {
	c.update(func(s *State) {
		s.Submission = Failed
		s.IsLoading = false
		s.Err = err
	})
	c.update(func(s *State) { s.Submission = Idle })
}

// publish sends the current state to subscribers.
func (c *Coordinator) publish() {
	c.update(func(*State) {})
}
