package chain

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

var (
	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("chain node unreachable")
	// ErrNodeRejected matches every *NodeRejectedError.
	ErrNodeRejected = errors.New("chain node rejected request")
)

// NetworkError reports that a Lotus endpoint could not be reached or did not
// answer in time.
type NetworkError struct {
	Method string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Method, ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// NodeRejectedError carries a protocol-level error returned by the node, for
// example a failed gas estimate or a malformed message.
type NodeRejectedError struct {
	Method  string
	Code    int
	Message string
}

func (e *NodeRejectedError) Error() string {
	return fmt.Sprintf("%s: %v (code %d): %s", e.Method, ErrNodeRejected, e.Code, e.Message)
}

func (e *NodeRejectedError) Is(target error) bool { return target == ErrNodeRejected }

// classify maps a go-ethereum rpc error onto the package taxonomy.
func classify(method string, err error) error {
	if err == nil {
		return nil
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &NodeRejectedError{Method: method, Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
		return &NodeRejectedError{Method: method, Code: httpErr.StatusCode, Message: httpErr.Status}
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	return &NetworkError{Method: method, Err: err}
}
