package tx

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/yolodolo42/filsign/internal/fil"
	"github.com/yolodolo42/filsign/internal/wallet"
)

// Test private key (DO NOT use in production - this is a well-known test key)
const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type fakeKeys struct {
	mu       sync.Mutex
	err      error
	resolves int
	lookups  int
	issued   []*wallet.KeyPair
}

func (f *fakeKeys) keyPair() (*wallet.KeyPair, error) {
	priv, err := crypto.HexToECDSA(testPrivateKey)
	if err != nil {
		return nil, err
	}
	return wallet.NewKeyPair(priv)
}

func (f *fakeKeys) Resolve(ctx context.Context, wctx wallet.WalletContext) (*wallet.KeyPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves++
	if f.err != nil {
		return nil, f.err
	}
	kp, err := f.keyPair()
	if err != nil {
		return nil, err
	}
	f.issued = append(f.issued, kp)
	return kp, nil
}

func (f *fakeKeys) Address(ctx context.Context, wctx wallet.WalletContext) (address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return address.Undef, f.err
	}
	kp, err := f.keyPair()
	if err != nil {
		return address.Undef, err
	}
	defer kp.Wipe()
	return kp.Address, nil
}

type priceCall struct {
	gasLimit int64
	maxFee   abi.TokenAmount
}

type fakeNode struct {
	mu sync.Mutex

	nonce    uint64
	limit    int64
	premium  abi.TokenAmount
	feeCap   abi.TokenAmount
	nonceErr error
	limitErr error
	priceErr error

	calls      []string
	priceCalls []priceCall
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		nonce:   5,
		limit:   1000,
		premium: abi.NewTokenAmount(2),
		feeCap:  abi.NewTokenAmount(10),
	}
}

func (f *fakeNode) GetNonce(ctx context.Context, addr address.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "nonce")
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	return f.nonce, nil
}

func (f *fakeNode) EstimateGasLimit(ctx context.Context, msg *fil.Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "limit")
	if f.limitErr != nil {
		return 0, f.limitErr
	}
	return f.limit, nil
}

func (f *fakeNode) EstimateGasPrice(ctx context.Context, msg *fil.Message, maxFee abi.TokenAmount) (fil.GasPrice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "price")
	f.priceCalls = append(f.priceCalls, priceCall{gasLimit: msg.GasLimit, maxFee: maxFee})
	if f.priceErr != nil {
		return fil.GasPrice{}, f.priceErr
	}
	return fil.GasPrice{GasPremium: f.premium, GasFeeCap: f.feeCap}, nil
}

func (f *fakeNode) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeNode) gasCalls() int {
	n := 0
	for _, c := range f.callLog() {
		if c == "limit" || c == "price" {
			n++
		}
	}
	return n
}

type fakeGate struct {
	mu        sync.Mutex
	answer    bool
	block     chan struct{} // when set, Ask waits on it and ignores ctx
	summaries []string
}

func (f *fakeGate) Ask(ctx context.Context, wctx wallet.WalletContext, summary string) bool {
	f.mu.Lock()
	f.summaries = append(f.summaries, summary)
	block := f.block
	answer := f.answer
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return answer
}

func (f *fakeGate) asked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.summaries...)
}

type fakeSigner struct {
	mu    sync.Mutex
	inner *wallet.FilecoinSigner
	err   error
	signs int
	raws  int
	keys  []*wallet.KeyPair
}

func newFakeSigner() *fakeSigner {
	return &fakeSigner{inner: wallet.NewFilecoinSigner()}
}

func (f *fakeSigner) Sign(msg *fil.Message, key *wallet.KeyPair) (*fil.SignedMessage, error) {
	f.mu.Lock()
	f.signs++
	f.keys = append(f.keys, key)
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.inner.Sign(msg, key)
}

func (f *fakeSigner) SignRaw(data []byte, key *wallet.KeyPair) ([]byte, error) {
	f.mu.Lock()
	f.raws++
	f.keys = append(f.keys, key)
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.inner.SignRaw(data, key)
}

func (f *fakeSigner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signs + f.raws
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (f *fakeRecorder) Record(ctx context.Context, a Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeRecorder) last() Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.attempts) == 0 {
		return Attempt{}
	}
	return f.attempts[len(f.attempts)-1]
}
