package tx

import (
	"context"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/yolodolo42/filsign/internal/fil"
)

// NonceSource returns an account's next nonce.
type NonceSource interface {
	GetNonce(ctx context.Context, addr address.Address) (uint64, error)
}

// Builder assembles message skeletons from requests.
type Builder struct {
	nonces NonceSource
}

// NewBuilder creates a builder
func NewBuilder(nonces NonceSource) *Builder {
	return &Builder{nonces: nonces}
}

// BuildForEstimate builds a message for a gas quote. Nonce and gas are
// placeholders and nothing remote is called.
func (b *Builder) BuildForEstimate(from address.Address, req MessageRequest) *fil.Message {
	return &fil.Message{
		To:         req.To,
		From:       from,
		Nonce:      0,
		Value:      valueOrZero(req.Value),
		GasLimit:   0,
		GasFeeCap:  big.Zero(),
		GasPremium: big.Zero(),
		Method:     fil.MethodSend,
	}
}

// BuildForSigning builds a message that will be signed. It performs exactly
// one nonce lookup; a lookup failure fails the build.
func (b *Builder) BuildForSigning(ctx context.Context, from address.Address, req MessageRequest) (*fil.Message, error) {
	nonce, err := b.nonces.GetNonce(ctx, from)
	if err != nil {
		return nil, err
	}

	return &fil.Message{
		To:         req.To,
		From:       from,
		Nonce:      nonce,
		Value:      valueOrZero(req.Value),
		GasLimit:   req.GasLimit.OrElse(0),
		GasFeeCap:  req.GasFeeCap.OrElse(big.Zero()),
		GasPremium: req.GasPremium.OrElse(big.Zero()),
		Method:     fil.MethodSend,
	}, nil
}

func valueOrZero(v abi.TokenAmount) abi.TokenAmount {
	if v.Nil() {
		return big.Zero()
	}
	return v
}
