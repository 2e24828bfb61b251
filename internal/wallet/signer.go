package wallet

import (
	"crypto/ecdsa"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/filecoin-project/go-address"
	"github.com/yolodolo42/filsign/internal/fil"
)

var (
	ErrNoActiveAccount = errors.New("no active account configured")
	ErrSigning         = errors.New("signing failed")
	ErrKeyWiped        = errors.New("key material has been wiped")
)

// ProviderType names a key provider backend
type ProviderType string

const (
	ProviderTypeKeystore ProviderType = "keystore"
	ProviderTypeVault    ProviderType = "vault"
)

// WalletContext selects the account and network for one operation. It is
// owned by the caller and never modified here.
type WalletContext struct {
	Network fil.Network
	Account string
}

// KeyPair is the key material of one account, borrowed for a single
// operation. The private key is unexported so reflection based encoders
// (including zap.Any) cannot reach it.
type KeyPair struct {
	Address   address.Address
	PublicKey []byte // 65-byte uncompressed secp256k1 point

	mu      sync.RWMutex
	key     *ecdsa.PrivateKey // nil once wiped
	release func()
}

// NewKeyPair derives the public key and f1 address of key.
func NewKeyPair(key *ecdsa.PrivateKey) (*KeyPair, error) {
	pub := crypto.FromECDSAPub(&key.PublicKey)
	addr, err := fil.NewSecp256k1Address(pub)
	if err != nil {
		return nil, err
	}
	return &KeyPair{
		Address:   addr,
		PublicKey: pub,
		key:       key,
	}, nil
}

// withPrivateKey runs fn with the private key held under a read lock.
func (k *KeyPair) withPrivateKey(fn func(*ecdsa.PrivateKey) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.key == nil {
		return ErrKeyWiped
	}
	return fn(k.key)
}

// Wipe zeroes the private scalar and releases any per-account lock the
// provider attached. Safe to call more than once.
func (k *KeyPair) Wipe() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key != nil {
		words := k.key.D.Bits()
		for i := range words {
			words[i] = 0
		}
		k.key.D.SetInt64(0)
		k.key = nil
	}
	if k.release != nil {
		k.release()
		k.release = nil
	}
}

// Wiped reports whether Wipe has been called.
func (k *KeyPair) Wiped() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key == nil
}

// String renders only the public address.
func (k *KeyPair) String() string {
	return k.Address.String()
}

// Account is a key known to a provider, as shown by `wallet list`.
type Account struct {
	ID           string       `json:"id"`
	ProviderType ProviderType `json:"provider_type"`
	Location     string       `json:"location"`
}
