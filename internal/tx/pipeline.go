package tx

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/filecoin-project/go-address"
	"github.com/google/uuid"
	"github.com/yolodolo42/filsign/internal/fil"
	"github.com/yolodolo42/filsign/internal/wallet"
	"go.uber.org/zap"
)

// ErrGasIncomplete is returned when gas is missing and estimation is off, or
// when the node returned gas values that are still placeholders.
var ErrGasIncomplete = errors.New("gas limit, premium and fee cap must all be set")

// KeyProvider resolves the key material of the account selected by a
// WalletContext. Implementations serialize Resolve per account until the
// returned KeyPair is wiped, which is what keeps nonces from colliding.
type KeyProvider interface {
	Resolve(ctx context.Context, wctx wallet.WalletContext) (*wallet.KeyPair, error)
	Address(ctx context.Context, wctx wallet.WalletContext) (address.Address, error)
}

// ChainNode is the subset of a Lotus node the pipeline talks to.
type ChainNode interface {
	NonceSource
	GasOracle
}

// ConfirmationGate shows a summary and returns the user's decision. It must
// eventually return, and must return false when the prompt is abandoned.
type ConfirmationGate interface {
	Ask(ctx context.Context, wctx wallet.WalletContext, summary string) bool
}

// CryptoSigner produces Filecoin signatures.
type CryptoSigner interface {
	Sign(msg *fil.Message, key *wallet.KeyPair) (*fil.SignedMessage, error)
	SignRaw(data []byte, key *wallet.KeyPair) ([]byte, error)
}

// Recorder persists terminal attempt outcomes.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}

// AttemptKind distinguishes structured and raw signing.
type AttemptKind string

const (
	AttemptMessage AttemptKind = "message"
	AttemptRaw     AttemptKind = "raw"
)

// Attempt is the record of one signing attempt. It never carries key
// material.
type Attempt struct {
	ID        string
	Kind      AttemptKind
	Network   fil.Network
	Account   string
	From      address.Address
	State     State
	Message   *fil.Message // nil for raw attempts
	Cid       string
	Error     string
	CreatedAt time.Time
}

// PipelineOption customizes a Pipeline
type PipelineOption func(*Pipeline)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithPolicy enables a pre-confirmation policy check.
func WithPolicy(policy Policy) PipelineOption {
	return func(p *Pipeline) { p.policy = policy }
}

// WithRecorder records terminal outcomes.
func WithRecorder(r Recorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = r }
}

// WithEstimateGasIfAbsent toggles gas estimation on the signing path. When
// off, SignMessage requires all three gas fields from the caller.
func WithEstimateGasIfAbsent(on bool) PipelineOption {
	return func(p *Pipeline) { p.estimateGasIfAbsent = on }
}

// Pipeline turns transfer requests into confirmed, signed messages. It holds
// no per-attempt state, so one Pipeline can serve concurrent callers.
type Pipeline struct {
	keys    KeyProvider
	gate    ConfirmationGate
	signer  CryptoSigner
	builder *Builder
	gas     *GasEstimator

	estimateGasIfAbsent bool
	policy              Policy
	recorder            Recorder
	logger              *zap.Logger
	now                 func() time.Time
}

// NewPipeline wires the pipeline. Gas estimation on the signing path is on by
// default.
func NewPipeline(keys KeyProvider, node ChainNode, gate ConfirmationGate, signer CryptoSigner, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		keys:                keys,
		gate:                gate,
		signer:              signer,
		builder:             NewBuilder(node),
		gas:                 NewGasEstimator(node),
		estimateGasIfAbsent: true,
		logger:              zap.NewNop(),
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// QuoteGas estimates gas for req with the quote budget. It resolves only the
// sender address and never prompts or signs.
func (p *Pipeline) QuoteGas(ctx context.Context, wctx wallet.WalletContext, req MessageRequest) (*fil.GasEstimate, error) {
	from, err := p.keys.Address(ctx, wctx)
	if err != nil {
		return nil, err
	}

	msg := p.builder.BuildForEstimate(from, req)
	est, err := p.gas.Estimate(ctx, msg, QuoteMaxFee)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("gas quoted",
		zap.String("from", fil.FormatAddress(wctx.Network, from)),
		zap.Int64("gas_limit", est.GasLimit),
		zap.String("gas_premium", est.GasPremium.String()),
		zap.String("gas_fee_cap", est.GasFeeCap.String()),
	)
	return &est, nil
}

// SignMessage builds, prices, confirms and signs a transfer. It returns
// (nil, nil) when the user rejects. Collaborator errors are returned as is.
func (p *Pipeline) SignMessage(ctx context.Context, wctx wallet.WalletContext, req MessageRequest) (*fil.SignedMessage, error) {
	kp, err := p.keys.Resolve(ctx, wctx)
	if err != nil {
		return nil, err
	}
	defer kp.Wipe()

	at := p.newAttempt(AttemptMessage, wctx, kp.Address)
	log := p.logger.With(zap.String("attempt", at.ID))

	msg, err := p.builder.BuildForSigning(ctx, kp.Address, req)
	if err != nil {
		return nil, p.fail(ctx, log, at, err)
	}
	at.Message = msg
	p.transition(log, at, StateBuilt)

	if p.estimateGasIfAbsent {
		if _, err := p.gas.Ensure(ctx, msg, SigningMaxFee); err != nil {
			return nil, p.fail(ctx, log, at, err)
		}
	}
	if !HasGas(msg) {
		return nil, p.fail(ctx, log, at, ErrGasIncomplete)
	}
	p.transition(log, at, StateGasResolved)

	if err := p.policy.Check(msg); err != nil {
		return nil, p.fail(ctx, log, at, err)
	}

	summary := RenderSummary(wctx, msg, kp.Address)
	p.transition(log, at, StateAwaitingConfirmation)

	if !p.confirm(ctx, wctx, summary) {
		p.finish(ctx, log, at, StateRejected)
		return nil, nil
	}

	signed, err := p.signer.Sign(msg, kp)
	if err != nil {
		return nil, p.fail(ctx, log, at, err)
	}
	if c, err := signed.Cid(); err == nil {
		at.Cid = c.String()
	}
	p.finish(ctx, log, at, StateSigned)
	return signed, nil
}

// SignRawMessage confirms and signs an already serialized message, returning
// the hex signature. It returns ("", nil) when the user rejects.
func (p *Pipeline) SignRawMessage(ctx context.Context, wctx wallet.WalletContext, raw []byte) (string, error) {
	kp, err := p.keys.Resolve(ctx, wctx)
	if err != nil {
		return "", err
	}
	defer kp.Wipe()

	at := p.newAttempt(AttemptRaw, wctx, kp.Address)
	if c, err := fil.CborCid(raw); err == nil {
		at.Cid = c.String()
	}
	log := p.logger.With(zap.String("attempt", at.ID))

	summary := RenderRawSummary(wctx, raw, kp.Address)
	p.transition(log, at, StateAwaitingConfirmation)

	if !p.confirm(ctx, wctx, summary) {
		p.finish(ctx, log, at, StateRejected)
		return "", nil
	}

	sig, err := p.signer.SignRaw(raw, kp)
	if err != nil {
		return "", p.fail(ctx, log, at, err)
	}
	p.finish(ctx, log, at, StateSigned)
	return hex.EncodeToString(sig), nil
}

// confirm runs the gate on its own goroutine and waits for either its answer
// or cancellation. Cancellation counts as a rejection.
func (p *Pipeline) confirm(ctx context.Context, wctx wallet.WalletContext, summary string) bool {
	decision := make(chan bool, 1)
	go func() {
		decision <- p.gate.Ask(ctx, wctx, summary)
	}()

	select {
	case ok := <-decision:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) newAttempt(kind AttemptKind, wctx wallet.WalletContext, from address.Address) *Attempt {
	return &Attempt{
		ID:        uuid.NewString(),
		Kind:      kind,
		Network:   wctx.Network,
		Account:   wctx.Account,
		From:      from,
		CreatedAt: p.now(),
	}
}

func (p *Pipeline) transition(log *zap.Logger, at *Attempt, s State) {
	at.State = s
	fields := []zap.Field{
		zap.String("kind", string(at.Kind)),
		zap.Stringer("state", s),
		zap.String("from", fil.FormatAddress(at.Network, at.From)),
	}
	if at.Message != nil {
		fields = append(fields,
			zap.String("to", fil.FormatAddress(at.Network, at.Message.To)),
			zap.Uint64("nonce", at.Message.Nonce),
			zap.Int64("gas_limit", at.Message.GasLimit),
		)
	}
	log.Debug("signing attempt", fields...)
}

func (p *Pipeline) finish(ctx context.Context, log *zap.Logger, at *Attempt, s State) {
	p.transition(log, at, s)
	if at.Cid == "" && at.Message != nil {
		if c, err := at.Message.Cid(); err == nil {
			at.Cid = c.String()
		}
	}
	if p.recorder == nil {
		return
	}
	// cancelled prompts are still recorded
	if err := p.recorder.Record(context.WithoutCancel(ctx), *at); err != nil {
		log.Warn("failed to record signing attempt", zap.Error(err))
	}
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, at *Attempt, err error) error {
	at.Error = err.Error()
	p.finish(ctx, log, at, StateFailed)
	return err
}
