package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/pkg/errors"
	"github.com/yolodolo42/filsign/internal/fil"
	"go.uber.org/zap"
)

const (
	methodMpoolGetNonce         = "Filecoin.MpoolGetNonce"
	methodGasEstimateGasLimit   = "Filecoin.GasEstimateGasLimit"
	methodGasEstimateMessageGas = "Filecoin.GasEstimateMessageGas"
	methodStateNetworkName      = "Filecoin.StateNetworkName"
)

// Client is a Lotus JSON-RPC client for a single network. The connection is
// established on first use.
type Client struct {
	network     *NetworkConfig
	token       string
	logger      *zap.Logger
	dialTimeout time.Duration

	client *rpc.Client
	mu     sync.Mutex
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithToken sets the bearer token sent in the Authorization header.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// WithDialTimeout bounds each endpoint's dial plus network-name check.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// NewClient creates a client for network
func NewClient(network *NetworkConfig, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		network:     network,
		logger:      logger,
		dialTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Network returns the network configuration
func (c *Client) Network() *NetworkConfig {
	return c.network
}

// getClient returns the rpc client, dialing the configured endpoints in order
// until one answers with the expected network name. The lock is held for the
// whole dial so concurrent callers share one connection.
func (c *Client) getClient(ctx context.Context) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if len(c.network.RPCURLs) == 0 {
		return nil, &NetworkError{Method: "dial", Err: fmt.Errorf("no RPC URLs configured for %s", c.network.Name)}
	}

	var opts []rpc.ClientOption
	if c.token != "" {
		opts = append(opts, rpc.WithHeader("Authorization", "Bearer "+c.token))
	}

	var lastErr error
	for _, rpcURL := range c.network.RPCURLs {
		dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
		client, err := rpc.DialOptions(dialCtx, rpcURL, opts...)
		if err != nil {
			cancel()
			c.logger.Debug("lotus dial failed", zap.String("url", rpcURL), zap.Error(err))
			lastErr = classify("dial", err)
			continue
		}

		// Verify network name
		var name string
		err = client.CallContext(dialCtx, &name, methodStateNetworkName)
		cancel()
		if err != nil {
			client.Close()
			c.logger.Debug("lotus endpoint check failed", zap.String("url", rpcURL), zap.Error(err))
			lastErr = classify(methodStateNetworkName, err)
			continue
		}

		if c.network.StateName != "" && name != c.network.StateName {
			client.Close()
			lastErr = &NodeRejectedError{
				Method:  methodStateNetworkName,
				Message: fmt.Sprintf("network mismatch: expected %s, got %s", c.network.StateName, name),
			}
			continue
		}

		c.logger.Debug("connected to lotus", zap.String("url", rpcURL), zap.String("network", name))
		c.client = client
		return client, nil
	}

	return nil, lastErr
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	client, err := c.getClient(ctx)
	if err != nil {
		return err
	}
	if err := client.CallContext(ctx, result, method, args...); err != nil {
		return classify(method, err)
	}
	return nil
}

// GetNonce returns the next nonce for addr, including pending mpool messages
func (c *Client) GetNonce(ctx context.Context, addr address.Address) (uint64, error) {
	var nonce uint64
	if err := c.call(ctx, &nonce, methodMpoolGetNonce, fil.FormatAddress(c.network.Prefix, addr)); err != nil {
		return 0, err
	}
	return nonce, nil
}

// EstimateGasLimit asks the node for the gas limit of msg with no fee ceiling
func (c *Client) EstimateGasLimit(ctx context.Context, msg *fil.Message) (int64, error) {
	var limit int64
	if err := c.call(ctx, &limit, methodGasEstimateGasLimit, msg.ToJSON(c.network.Prefix), nil); err != nil {
		return 0, err
	}
	return limit, nil
}

type messageSendSpec struct {
	MaxFee string `json:"MaxFee"`
}

type gasEstimateResult struct {
	GasLimit   int64  `json:"GasLimit"`
	GasFeeCap  string `json:"GasFeeCap"`
	GasPremium string `json:"GasPremium"`
}

// EstimateGasPrice asks the node for premium and fee cap under a maximum fee
// budget. A zero budget means no cap.
func (c *Client) EstimateGasPrice(ctx context.Context, msg *fil.Message, maxFee abi.TokenAmount) (fil.GasPrice, error) {
	if maxFee.Nil() {
		maxFee = big.Zero()
	}
	spec := messageSendSpec{MaxFee: maxFee.String()}

	var res gasEstimateResult
	if err := c.call(ctx, &res, methodGasEstimateMessageGas, msg.ToJSON(c.network.Prefix), spec, nil); err != nil {
		return fil.GasPrice{}, err
	}

	premium, err := big.FromString(res.GasPremium)
	if err != nil {
		return fil.GasPrice{}, &NodeRejectedError{
			Method:  methodGasEstimateMessageGas,
			Message: errors.Wrapf(err, "bad GasPremium %q", res.GasPremium).Error(),
		}
	}
	feeCap, err := big.FromString(res.GasFeeCap)
	if err != nil {
		return fil.GasPrice{}, &NodeRejectedError{
			Method:  methodGasEstimateMessageGas,
			Message: errors.Wrapf(err, "bad GasFeeCap %q", res.GasFeeCap).Error(),
		}
	}

	return fil.GasPrice{GasPremium: premium, GasFeeCap: feeCap}, nil
}

// Close closes the connection if one was established
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}
