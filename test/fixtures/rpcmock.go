package fixtures

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

// Handler answers one JSON-RPC method. Returning an *RPCError sends a
// JSON-RPC error object; any other error becomes code -32000.
type Handler func(params []json.RawMessage) (interface{}, error)

// RPCError is a JSON-RPC error answer.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

// RPCCall is one request the mock received.
type RPCCall struct {
	Method string
	Params []json.RawMessage
}

// RPCServer is an httptest JSON-RPC node. Unknown methods answer -32601.
type RPCServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []RPCCall
}

// NewRPCServer starts a mock node that is closed with the test.
func NewRPCServer(t *testing.T) *RPCServer {
	t.Helper()
	s := &RPCServer{handlers: make(map[string]Handler)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers h for method.
func (s *RPCServer) Handle(method string, h Handler) *RPCServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
	return s
}

// Result registers a fixed result for method.
func (s *RPCServer) Result(method string, result interface{}) *RPCServer {
	return s.Handle(method, func([]json.RawMessage) (interface{}, error) { return result, nil })
}

// Fail registers a fixed JSON-RPC error for method.
func (s *RPCServer) Fail(method string, code int, msg string) *RPCServer {
	return s.Handle(method, func([]json.RawMessage) (interface{}, error) {
		return nil, &RPCError{Code: code, Message: msg}
	})
}

// Calls returns the requests received for method, in order.
func (s *RPCServer) Calls(method string) []RPCCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RPCCall
	for _, c := range s.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Methods returns every method called, in order.
func (s *RPCServer) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Method
	}
	return out
}

// Dial returns a go-ethereum rpc client pointed at the mock.
func (s *RPCServer) Dial(t *testing.T) *rpc.Client {
	t.Helper()
	c, err := rpc.Dial(s.URL)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func (s *RPCServer) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, RPCCall{Method: req.Method, Params: req.Params})
	h, ok := s.handlers[req.Method]
	s.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if !ok {
		resp["error"] = map[string]interface{}{"code": -32601, "message": "the method " + req.Method + " does not exist/is not available"}
	} else if result, err := h(req.Params); err != nil {
		code := -32000
		if rpcErr, isRPC := err.(*RPCError); isRPC {
			code = rpcErr.Code
			err = fmt.Errorf("%s", rpcErr.Message)
		}
		resp["error"] = map[string]interface{}{"code": code, "message": err.Error()}
	} else {
		resp["result"] = result
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}
