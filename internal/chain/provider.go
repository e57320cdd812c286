package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// Errors shared by every component that talks to a provider.
var (
	ErrProvider            = errors.New("provider error")
	ErrTransactionReverted = errors.New("transaction reverted")
)

// EIP-1193 / JSON-RPC error codes the wallet layer cares about.
const (
	CodeUserRejected   = 4001
	CodeUnauthorized   = 4100
	CodeMethodNotFound = -32601
)

// Provider is the EIP-1193 shaped request surface of a wallet or node.
// *rpc.Client satisfies it directly.
type Provider interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Dial connects to an http(s), ws(s) or IPC endpoint.
func Dial(ctx context.Context, url string) (*rpc.Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrProvider, url, err)
	}
	return c, nil
}

// ErrorCode extracts a JSON-RPC error code from err, if it carries one.
func ErrorCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejection reports whether err is the provider's "user rejected" answer.
func IsUserRejection(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// IsMethodNotFound reports whether the endpoint does not implement a method.
func IsMethodNotFound(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeMethodNotFound
}

// ProviderError wraps a transport or RPC failure as ErrProvider.
func ProviderError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProvider, op, err)
}

// RejectionError is what local providers return when the user declines a
// prompt, so callers see the same code a browser wallet would send.
type RejectionError struct {
	Msg string
}

func (e *RejectionError) Error() string  { return e.Msg }
func (e *RejectionError) ErrorCode() int { return CodeUserRejected }
