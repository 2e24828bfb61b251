package wallet

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/filecoin-project/go-address"
	"github.com/hashicorp/vault/api"
)

// VaultConfig locates hex-encoded secp256k1 keys in a KV v2 secrets engine.
// The key of an account lives at Mount/Path/<account> (or Mount/Path when no
// account is set) under Field.
type VaultConfig struct {
	Address string
	Token   string
	Mount   string
	Path    string
	Field   string
}

// VaultProvider resolves key pairs from HashiCorp Vault. Like
// KeystoreProvider it serializes Resolve per account.
type VaultProvider struct {
	client *api.Client
	mount  string
	path   string
	field  string
	locks  accountLocks
}

// NewVaultProvider creates a Vault client from cfg
func NewVaultProvider(cfg VaultConfig) (*VaultProvider, error) {
	vc := api.DefaultConfig()
	if cfg.Address != "" {
		vc.Address = cfg.Address
	}

	client, err := api.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}
	field := cfg.Field
	if field == "" {
		field = "private_key"
	}

	return &VaultProvider{
		client: client,
		mount:  mount,
		path:   strings.Trim(cfg.Path, "/"),
		field:  field,
	}, nil
}

func (p *VaultProvider) secretPath(account string) (string, error) {
	switch {
	case account == "" && p.path == "":
		return "", ErrNoActiveAccount
	case account == "":
		return p.path, nil
	default:
		return path.Join(p.path, account), nil
	}
}

// Resolve reads and parses the account's key.
func (p *VaultProvider) Resolve(ctx context.Context, wctx WalletContext) (*KeyPair, error) {
	secretPath, err := p.secretPath(wctx.Account)
	if err != nil {
		return nil, err
	}

	release, err := p.locks.acquire(ctx, secretPath)
	if err != nil {
		return nil, err
	}

	kp, err := p.read(ctx, secretPath)
	if err != nil {
		release()
		return nil, err
	}
	kp.release = release
	return kp, nil
}

func (p *VaultProvider) read(ctx context.Context, secretPath string) (*KeyPair, error) {
	secret, err := p.client.KVv2(p.mount).Get(ctx, secretPath)
	if errors.Is(err, api.ErrSecretNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrAccountNotFound, p.mount, secretPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s from vault: %w", p.mount, secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrAccountNotFound, p.mount, secretPath)
	}

	raw, ok := secret.Data[p.field].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: field %q missing at %s/%s", ErrInvalidKey, p.field, p.mount, secretPath)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return NewKeyPair(key)
}

// Address resolves the account's f1 address and wipes the key immediately.
func (p *VaultProvider) Address(ctx context.Context, wctx WalletContext) (address.Address, error) {
	kp, err := p.Resolve(ctx, wctx)
	if err != nil {
		return address.Undef, err
	}
	defer kp.Wipe()
	return kp.Address, nil
}

// Accounts lists the secrets under the configured path
func (p *VaultProvider) Accounts(ctx context.Context) ([]Account, error) {
	listPath := path.Join(p.mount, "metadata", p.path)
	secret, err := p.client.Logical().ListWithContext(ctx, listPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", listPath, err)
	}
	if secret == nil || secret.Data["keys"] == nil {
		return nil, nil
	}

	keys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected format for keys from vault")
	}

	out := make([]Account, 0, len(keys))
	for _, k := range keys {
		name, ok := k.(string)
		if !ok || strings.HasSuffix(name, "/") {
			continue
		}
		out = append(out, Account{
			ID:           name,
			ProviderType: ProviderTypeVault,
			Location:     path.Join(p.mount, p.path, name),
		})
	}
	return out, nil
}
