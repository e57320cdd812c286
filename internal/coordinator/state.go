package coordinator

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ConnectionState tracks the wallet binding.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// SubmissionState tracks the send workflow.
type SubmissionState int

const (
	Idle SubmissionState = iota
	Submitting
	Confirmed
	Failed
)

func (s SubmissionState) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// TransferRequest is the editable draft of the next send.
type TransferRequest struct {
	Recipient string `json:"addressTo"`
	Amount    string `json:"amount"` // ether, decimal
	Keyword   string `json:"keyword"`
	Message   string `json:"message"`
}

// TransferRecord is a contract record in display form. Amount is a lossy
// float projection for rendering; AmountWei is the exact value.
type TransferRecord struct {
	Sender    common.Address
	Recipient common.Address
	Timestamp time.Time
	Message   string
	Keyword   string
	Amount    float64
	AmountWei *big.Int
}

// State is a snapshot of everything the coordinator knows. Snapshots are
// copies and safe to keep.
type State struct {
	Connection   ConnectionState
	Account      *common.Address
	Draft        TransferRequest
	Count        uint64
	CountKnown   bool
	Transactions []TransferRecord
	Submission   SubmissionState
	IsLoading    bool
	LastTxHash   common.Hash
	Notice       string
	Err          error
}

func (s State) clone() State {
	out := s
	if s.Account != nil {
		a := *s.Account
		out.Account = &a
	}
	if s.Transactions != nil {
		out.Transactions = make([]TransferRecord, len(s.Transactions))
		for i, r := range s.Transactions {
			if r.AmountWei != nil {
				r.AmountWei = new(big.Int).Set(r.AmountWei)
			}
			out.Transactions[i] = r
		}
	}
	return out
}
