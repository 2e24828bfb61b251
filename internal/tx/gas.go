package tx

import (
	"context"

	"github.com/filecoin-project/go-state-types/abi"
	"github.com/yolodolo42/filsign/internal/fil"
)

var (
	// QuoteMaxFee is the fee budget for quotes: 0.1 FIL.
	QuoteMaxFee = abi.NewTokenAmount(100_000_000_000_000_000)
	// SigningMaxFee is the budget before signing. Zero tells the node to
	// price economically without a cap.
	SigningMaxFee = abi.NewTokenAmount(0)
)

// GasOracle prices messages against a chain node.
type GasOracle interface {
	EstimateGasLimit(ctx context.Context, msg *fil.Message) (int64, error)
	EstimateGasPrice(ctx context.Context, msg *fil.Message, maxFee abi.TokenAmount) (fil.GasPrice, error)
}

// GasEstimator fills gas values either all at once or not at all.
type GasEstimator struct {
	oracle GasOracle
}

// NewGasEstimator creates an estimator
func NewGasEstimator(oracle GasOracle) *GasEstimator {
	return &GasEstimator{oracle: oracle}
}

// HasGas reports whether the limit, premium and fee cap are all set.
// Partially specified gas counts as absent.
func HasGas(msg *fil.Message) bool {
	return msg.GasLimit != 0 && !isZero(msg.GasPremium) && !isZero(msg.GasFeeCap)
}

// Estimate computes all three gas values with two sequential calls, limit
// first, and writes them into msg only once both succeed. The price call
// sees a copy carrying the estimated limit. Errors are returned unmodified.
func (e *GasEstimator) Estimate(ctx context.Context, msg *fil.Message, maxFee abi.TokenAmount) (fil.GasEstimate, error) {
	limit, err := e.oracle.EstimateGasLimit(ctx, msg)
	if err != nil {
		return fil.GasEstimate{}, err
	}

	priced := *msg
	priced.GasLimit = limit
	price, err := e.oracle.EstimateGasPrice(ctx, &priced, maxFee)
	if err != nil {
		return fil.GasEstimate{}, err
	}

	est := fil.GasEstimate{
		GasLimit:   limit,
		GasPremium: price.GasPremium,
		GasFeeCap:  price.GasFeeCap,
	}
	msg.SetGas(est)
	return est, nil
}

// Ensure returns msg's gas unchanged when complete, otherwise estimates it.
func (e *GasEstimator) Ensure(ctx context.Context, msg *fil.Message, maxFee abi.TokenAmount) (fil.GasEstimate, error) {
	if HasGas(msg) {
		return msg.Gas(), nil
	}
	return e.Estimate(ctx, msg, maxFee)
}

func isZero(v abi.TokenAmount) bool {
	return v.Nil() || v.Sign() == 0
}
