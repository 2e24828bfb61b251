package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/filecoin-project/go-address"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidKey      = errors.New("invalid private key")
)

// KeystoreManager manages the encrypted keystore directory. Keys are stored
// in the go-ethereum v3 format; the secp256k1 scalar is the same one Filecoin
// f1 addresses are derived from.
type KeystoreManager struct {
	ks      *keystore.KeyStore
	dataDir string
}

// KeystoreOption customizes a KeystoreManager
type KeystoreOption func(*keystoreOptions)

type keystoreOptions struct {
	scryptN int
	scryptP int
}

// WithLightScrypt uses cheap scrypt parameters. Only meant for tests.
func WithLightScrypt() KeystoreOption {
	return func(o *keystoreOptions) {
		o.scryptN = keystore.LightScryptN
		o.scryptP = keystore.LightScryptP
	}
}

// NewKeystoreManager creates a new keystore manager rooted at dataDir/keystore
func NewKeystoreManager(dataDir string, opts ...KeystoreOption) (*KeystoreManager, error) {
	keystoreDir := filepath.Join(dataDir, "keystore")
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}

	// StandardScryptN and StandardScryptP are secure defaults
	o := keystoreOptions{scryptN: keystore.StandardScryptN, scryptP: keystore.StandardScryptP}
	for _, opt := range opts {
		opt(&o)
	}
	ks := keystore.NewKeyStore(keystoreDir, o.scryptN, o.scryptP)

	return &KeystoreManager{
		ks:      ks,
		dataDir: dataDir,
	}, nil
}

// CreateAccount creates a new account with the given password
func (km *KeystoreManager) CreateAccount(password string) (accounts.Account, error) {
	return km.ks.NewAccount(password)
}

// ImportKey imports a hex private key and encrypts it with the password
func (km *KeystoreManager) ImportKey(privateKeyHex string, password string) (accounts.Account, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return accounts.Account{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return km.ks.ImportECDSA(privateKey, password)
}

// ListAccounts returns all accounts in the keystore
func (km *KeystoreManager) ListAccounts() []Account {
	raw := km.ks.Accounts()
	out := make([]Account, 0, len(raw))
	for _, acc := range raw {
		out = append(out, Account{
			ID:           acc.Address.Hex(),
			ProviderType: ProviderTypeKeystore,
			Location:     acc.URL.Path,
		})
	}
	return out
}

func (km *KeystoreManager) find(id string) (*accounts.Account, error) {
	if !common.IsHexAddress(id) {
		return nil, fmt.Errorf("%w: %q is not a keystore account id", ErrAccountNotFound, id)
	}
	target := common.HexToAddress(id)
	for _, acc := range km.ks.Accounts() {
		if acc.Address == target {
			return &acc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
}

// Unlock decrypts the key of account id. The keystore itself is left locked;
// the returned KeyPair is the only copy of the plaintext key.
func (km *KeystoreManager) Unlock(id, password string) (*KeyPair, error) {
	acc, err := km.find(id)
	if err != nil {
		return nil, err
	}

	keyJSON, err := os.ReadFile(acc.URL.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}

	return NewKeyPair(key.PrivateKey)
}

// PassphraseFunc supplies the passphrase for a keystore account, typically by
// prompting on the terminal.
type PassphraseFunc func(account string) (string, error)

// KeystoreProvider resolves key pairs from a KeystoreManager.
//
// Concurrent Resolve calls for the same account are serialized: the second
// caller waits until the first KeyPair is wiped.
type KeystoreProvider struct {
	km         *KeystoreManager
	passphrase PassphraseFunc
	locks      accountLocks
}

// NewKeystoreProvider creates a provider
func NewKeystoreProvider(km *KeystoreManager, passphrase PassphraseFunc) *KeystoreProvider {
	return &KeystoreProvider{km: km, passphrase: passphrase}
}

// Resolve unlocks the active account of wctx.
func (p *KeystoreProvider) Resolve(ctx context.Context, wctx WalletContext) (*KeyPair, error) {
	if wctx.Account == "" {
		return nil, ErrNoActiveAccount
	}
	if _, err := p.km.find(wctx.Account); err != nil {
		return nil, err
	}

	release, err := p.locks.acquire(ctx, strings.ToLower(wctx.Account))
	if err != nil {
		return nil, err
	}

	password, err := p.passphrase(wctx.Account)
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	kp, err := p.km.Unlock(wctx.Account, password)
	if err != nil {
		release()
		return nil, err
	}
	kp.release = release
	return kp, nil
}

// Address resolves the account's f1 address and wipes the key immediately.
func (p *KeystoreProvider) Address(ctx context.Context, wctx WalletContext) (address.Address, error) {
	kp, err := p.Resolve(ctx, wctx)
	if err != nil {
		return address.Undef, err
	}
	defer kp.Wipe()
	return kp.Address, nil
}

// Accounts lists keystore accounts
func (p *KeystoreProvider) Accounts() []Account {
	return p.km.ListAccounts()
}
