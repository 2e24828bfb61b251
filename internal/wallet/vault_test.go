package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeVault serves KV v2 reads for the given secrets, keyed by path below
// the "secret" mount.
func newFakeVault(t *testing.T, secrets map[string]map[string]interface{}) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		tokens []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		tokens = append(tokens, r.Header.Get("X-Vault-Token"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasPrefix(r.URL.Path, "/v1/secret/data/"):
			data, ok := secrets[strings.TrimPrefix(r.URL.Path, "/v1/secret/data/")]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"errors":[]}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"data": data,
					"metadata": map[string]interface{}{
						"created_time":  "2024-01-01T00:00:00Z",
						"deletion_time": "",
						"destroyed":     false,
						"version":       1,
					},
				},
			})
		case strings.HasPrefix(r.URL.Path, "/v1/secret/metadata/"):
			prefix := strings.TrimPrefix(r.URL.Path, "/v1/secret/metadata/")
			prefix = strings.TrimSuffix(prefix, "/") + "/"
			var keys []string
			for p := range secrets {
				if strings.HasPrefix(p, prefix) {
					keys = append(keys, strings.TrimPrefix(p, prefix))
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"keys": keys},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tokens...)
	}
}

func newTestVaultProvider(t *testing.T, url string) *VaultProvider {
	t.Helper()
	p, err := NewVaultProvider(VaultConfig{
		Address: url,
		Token:   "test-token",
		Path:    "filsign",
	})
	require.NoError(t, err)
	return p
}

func TestVaultProvider(t *testing.T) {
	priv, err := crypto.HexToECDSA(testPrivateKey)
	require.NoError(t, err)
	want, err := NewKeyPair(priv)
	require.NoError(t, err)

	srv, tokens := newFakeVault(t, map[string]map[string]interface{}{
		"filsign/main":   {"private_key": "0x" + testPrivateKey},
		"filsign/broken": {"private_key": "zz"},
		"filsign/empty":  {"other": "x"},
	})

	t.Run("resolves the account key", func(t *testing.T) {
		p := newTestVaultProvider(t, srv.URL)

		kp, err := p.Resolve(context.Background(), WalletContext{Account: "main"})
		require.NoError(t, err)
		defer kp.Wipe()

		assert.Equal(t, want.Address, kp.Address)
		assert.Equal(t, want.PublicKey, kp.PublicKey)
		assert.Contains(t, tokens(), "test-token")
	})

	t.Run("address wipes the key", func(t *testing.T) {
		p := newTestVaultProvider(t, srv.URL)

		addr, err := p.Address(context.Background(), WalletContext{Account: "main"})
		require.NoError(t, err)
		assert.Equal(t, want.Address, addr)

		// lease was released by the wipe
		kp, err := p.Resolve(context.Background(), WalletContext{Account: "main"})
		require.NoError(t, err)
		kp.Wipe()
	})

	t.Run("missing secret is ErrAccountNotFound", func(t *testing.T) {
		p := newTestVaultProvider(t, srv.URL)
		_, err := p.Resolve(context.Background(), WalletContext{Account: "nope"})
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("bad key material is ErrInvalidKey", func(t *testing.T) {
		p := newTestVaultProvider(t, srv.URL)

		_, err := p.Resolve(context.Background(), WalletContext{Account: "broken"})
		assert.ErrorIs(t, err, ErrInvalidKey)

		_, err = p.Resolve(context.Background(), WalletContext{Account: "empty"})
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("no account and no path is ErrNoActiveAccount", func(t *testing.T) {
		p, err := NewVaultProvider(VaultConfig{Address: srv.URL})
		require.NoError(t, err)

		_, err = p.Resolve(context.Background(), WalletContext{})
		assert.ErrorIs(t, err, ErrNoActiveAccount)
	})

	t.Run("lists accounts", func(t *testing.T) {
		p := newTestVaultProvider(t, srv.URL)

		accounts, err := p.Accounts(context.Background())
		require.NoError(t, err)

		ids := make(map[string]bool)
		for _, a := range accounts {
			ids[a.ID] = true
			assert.Equal(t, ProviderTypeVault, a.ProviderType)
		}
		assert.True(t, ids["main"])
		assert.Len(t, accounts, 3)
	})
}
