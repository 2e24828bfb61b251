package fil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/go-state-types/big"
	"github.com/filecoin-project/go-state-types/builtin"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/crypto/blake2b"
)

// MethodSend is the method number of a plain value transfer.
const MethodSend = builtin.MethodSend

// Message is an unsigned Filecoin message. Every field is concrete; callers
// use zero values as "not yet resolved" placeholders.
type Message struct {
	Version    uint64
	To         address.Address
	From       address.Address
	Nonce      uint64
	Value      abi.TokenAmount
	GasLimit   int64
	GasFeeCap  abi.TokenAmount
	GasPremium abi.TokenAmount
	Method     abi.MethodNum
	Params     []byte
}

// GasEstimate holds the three pricing values a node returns for a message.
type GasEstimate struct {
	GasLimit   int64
	GasPremium abi.TokenAmount
	GasFeeCap  abi.TokenAmount
}

// MaxFee is the most a message can spend on gas: fee cap times limit.
func (g GasEstimate) MaxFee() abi.TokenAmount {
	if g.GasFeeCap.Nil() {
		return big.Zero()
	}
	return big.Mul(g.GasFeeCap, big.NewInt(g.GasLimit))
}

// GasPrice is the premium and fee cap a node proposes for a message.
type GasPrice struct {
	GasPremium abi.TokenAmount
	GasFeeCap  abi.TokenAmount
}

// SignedMessage is a message together with its secp256k1 signature.
type SignedMessage struct {
	Message   Message
	Signature crypto.Signature
}

// Gas returns the message's current gas values.
func (m *Message) Gas() GasEstimate {
	return GasEstimate{
		GasLimit:   m.GasLimit,
		GasPremium: m.GasPremium,
		GasFeeCap:  m.GasFeeCap,
	}
}

// SetGas overwrites all three gas fields.
func (m *Message) SetGas(g GasEstimate) {
	m.GasLimit = g.GasLimit
	m.GasPremium = g.GasPremium
	m.GasFeeCap = g.GasFeeCap
}

// MarshalCBOR writes the message as the 10-element DAG-CBOR tuple the chain
// hashes and signs.
func (m *Message) MarshalCBOR(w io.Writer) error {
	if m == nil {
		_, err := w.Write(cbg.CborNull)
		return err
	}

	cw := cbg.NewCborWriter(w)
	if err := cw.WriteMajorTypeHeader(cbg.MajArray, 10); err != nil {
		return err
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajUnsignedInt, m.Version); err != nil {
		return err
	}
	if err := m.To.MarshalCBOR(cw); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if err := m.From.MarshalCBOR(cw); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajUnsignedInt, m.Nonce); err != nil {
		return err
	}
	if err := m.Value.MarshalCBOR(cw); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	if m.GasLimit >= 0 {
		if err := cw.WriteMajorTypeHeader(cbg.MajUnsignedInt, uint64(m.GasLimit)); err != nil {
			return err
		}
	} else {
		if err := cw.WriteMajorTypeHeader(cbg.MajNegativeInt, uint64(-m.GasLimit-1)); err != nil {
			return err
		}
	}
	if err := m.GasFeeCap.MarshalCBOR(cw); err != nil {
		return fmt.Errorf("gas fee cap: %w", err)
	}
	if err := m.GasPremium.MarshalCBOR(cw); err != nil {
		return fmt.Errorf("gas premium: %w", err)
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajUnsignedInt, uint64(m.Method)); err != nil {
		return err
	}
	if err := cw.WriteMajorTypeHeader(cbg.MajByteString, uint64(len(m.Params))); err != nil {
		return err
	}
	if _, err := cw.Write(m.Params); err != nil {
		return err
	}
	return nil
}

// Serialize returns the DAG-CBOR encoding of the message.
func (m *Message) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.MarshalCBOR(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Cid returns the content identifier of the serialized message. For
// secp256k1 accounts this is what gets signed.
func (m *Message) Cid() (cid.Cid, error) {
	data, err := m.Serialize()
	if err != nil {
		return cid.Undef, err
	}
	return CborCid(data)
}

// MarshalCBOR writes the signed message as a (message, signature) tuple.
func (sm *SignedMessage) MarshalCBOR(w io.Writer) error {
	cw := cbg.NewCborWriter(w)
	if err := cw.WriteMajorTypeHeader(cbg.MajArray, 2); err != nil {
		return err
	}
	if err := sm.Message.MarshalCBOR(cw); err != nil {
		return err
	}
	return sm.Signature.MarshalCBOR(cw)
}

// Serialize returns the DAG-CBOR encoding of the signed message.
func (sm *SignedMessage) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := sm.MarshalCBOR(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Cid returns the on-chain identifier of the signed message. BLS messages
// are addressed by the unsigned message CID; every other signature type by
// the CID of the signed envelope.
func (sm *SignedMessage) Cid() (cid.Cid, error) {
	if sm.Signature.Type == crypto.SigTypeBLS {
		return sm.Message.Cid()
	}
	data, err := sm.Serialize()
	if err != nil {
		return cid.Undef, err
	}
	return CborCid(data)
}

// CborCid computes a CIDv1 (dag-cbor, blake2b-256) over already serialized
// bytes.
func CborCid(data []byte) (cid.Cid, error) {
	digest := blake2b.Sum256(data)
	mh, err := multihash.Encode(digest[:], multihash.BLAKE2B_MIN+31)
	if err != nil {
		return cid.Undef, fmt.Errorf("encode multihash: %w", err)
	}
	return cid.NewCidV1(cid.DagCBOR, mh), nil
}
