package wallet

import (
	"crypto/ecdsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/crypto"
	"github.com/yolodolo42/filsign/internal/fil"
	"golang.org/x/crypto/blake2b"
)

// SignatureLength is R || S || V with V in {0, 1}.
const SignatureLength = 65

// FilecoinSigner produces secp256k1 signatures in the Filecoin convention:
// the signed digest is blake2b-256 of the CID bytes of the payload.
type FilecoinSigner struct{}

// NewFilecoinSigner creates a signer
func NewFilecoinSigner() *FilecoinSigner {
	return &FilecoinSigner{}
}

// Sign signs the CID of msg.
func (s *FilecoinSigner) Sign(msg *fil.Message, key *KeyPair) (*fil.SignedMessage, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrSigning)
	}
	if msg.From != key.Address {
		return nil, fmt.Errorf("%w: message sender %s does not match key %s", ErrSigning, msg.From, key.Address)
	}

	c, err := msg.Cid()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	sig, err := signPayload(c.Bytes(), key)
	if err != nil {
		return nil, err
	}

	return &fil.SignedMessage{
		Message: *msg,
		Signature: crypto.Signature{
			Type: crypto.SigTypeSecp256k1,
			Data: sig,
		},
	}, nil
}

// SignRaw signs an already serialized message. The blob is addressed by its
// dag-cbor CID exactly as a structured message would be.
func (s *FilecoinSigner) SignRaw(data []byte, key *KeyPair) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrSigning)
	}

	c, err := fil.CborCid(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signPayload(c.Bytes(), key)
}

func signPayload(payload []byte, key *KeyPair) ([]byte, error) {
	digest := blake2b.Sum256(payload)

	var sig []byte
	err := key.withPrivateKey(func(priv *ecdsa.PrivateKey) error {
		var err error
		sig, err = ethcrypto.Sign(digest[:], priv)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return sig, nil
}

// Verify checks that sig over payload (CID bytes) recovers to addr.
func Verify(sig, payload []byte, addr address.Address) error {
	if len(sig) != SignatureLength {
		return fmt.Errorf("invalid signature length %d", len(sig))
	}
	digest := blake2b.Sum256(payload)

	pub, err := ethcrypto.Ecrecover(digest[:], sig)
	if err != nil {
		return fmt.Errorf("recover public key: %w", err)
	}
	recovered, err := fil.NewSecp256k1Address(pub)
	if err != nil {
		return err
	}
	if recovered != addr {
		return fmt.Errorf("signature is from %s, not %s", recovered, addr)
	}
	return nil
}
