package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/filsign/internal/chain"
	"github.com/yolodolo42/filsign/internal/config"
	"github.com/yolodolo42/filsign/internal/journal"
	"github.com/yolodolo42/filsign/internal/logger"
	"github.com/yolodolo42/filsign/internal/tx"
	"github.com/yolodolo42/filsign/internal/ui"
	"github.com/yolodolo42/filsign/internal/wallet"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// PassphraseEnv supplies the keystore passphrase when no terminal is
// attached.
const PassphraseEnv = "FILSIGN_PASSPHRASE"

// accountSource is a KeyProvider that can also enumerate its accounts.
type accountSource interface {
	tx.KeyProvider
	Accounts(ctx context.Context) ([]wallet.Account, error)
}

type keystoreSource struct {
	*wallet.KeystoreProvider
}

func (s keystoreSource) Accounts(context.Context) ([]wallet.Account, error) {
	return s.KeystoreProvider.Accounts(), nil
}

// app is the wired object graph behind one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	wctx    wallet.WalletContext
	keys    accountSource
	client  *chain.Client
	journal *journal.Store
	stdin   io.Reader
	stderr  io.Writer
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.v)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Log.Debug, Quiet: !cfg.Log.Debug})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{
		cfg:    cfg,
		logger: log,
		wctx:   wallet.WalletContext{Network: cfg.NetworkPrefix(), Account: cfg.Account},
		stdin:  cmd.InOrStdin(),
		stderr: cmd.ErrOrStderr(),
	}

	switch cfg.KeyProvider {
	case config.KeyProviderVault:
		vp, err := wallet.NewVaultProvider(wallet.VaultConfig{
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
			Mount:   cfg.Vault.Mount,
			Path:    cfg.Vault.Path,
			Field:   cfg.Vault.Field,
		})
		if err != nil {
			return nil, err
		}
		a.keys = vp
	default:
		km, err := wallet.NewKeystoreManager(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize keystore: %w", err)
		}
		a.keys = keystoreSource{wallet.NewKeystoreProvider(km, a.passphrase(cmd.Context()))}
	}

	return a, nil
}

// chainClient dials lazily; commands that never touch the chain never
// open a connection.
func (a *app) chainClient() *chain.Client {
	if a.client == nil {
		network := chain.NetworkFor(a.cfg.NetworkPrefix(), a.cfg.RPC.URLs).
			ExpectStateName(a.cfg.RPC.NetworkName)
		var opts []chain.ClientOption
		if a.cfg.RPC.Token != "" {
			opts = append(opts, chain.WithToken(a.cfg.RPC.Token))
		}
		a.client = chain.NewClient(network, a.logger, opts...)
	}
	return a.client
}

// pipeline wires the signing pipeline. yes forces acceptance of every
// confirmation.
func (a *app) pipeline(yes bool) (*tx.Pipeline, error) {
	policy, err := tx.NewPolicy(a.cfg.Policy.MaxValue, a.cfg.Policy.AllowTo, a.cfg.Policy.DenyTo)
	if err != nil {
		return nil, err
	}

	opts := []tx.PipelineOption{
		tx.WithLogger(a.logger),
		tx.WithPolicy(policy),
		tx.WithEstimateGasIfAbsent(a.cfg.EstimateGas),
	}

	if a.cfg.Journal.Enabled && a.journal == nil {
		store, err := journal.Open(a.cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		a.journal = store
	}
	if a.journal != nil {
		opts = append(opts, tx.WithRecorder(a.journal))
	}

	return tx.NewPipeline(a.keys, a.chainClient(), a.gate(yes), wallet.NewFilecoinSigner(), opts...), nil
}

func (a *app) gate(yes bool) tx.ConfirmationGate {
	if yes {
		return ui.StaticGate{Answer: true}
	}
	switch a.cfg.Confirm {
	case config.ConfirmAuto:
		return ui.StaticGate{Answer: true}
	case config.ConfirmDeny:
		return ui.StaticGate{Answer: false}
	}
	if !a.interactive() {
		a.logger.Warn("no terminal attached, rejecting confirmation; pass --yes to sign non-interactively")
		return ui.StaticGate{Answer: false}
	}
	return ui.NewTerminalGate(a.stdin, a.stderr, a.logger)
}

func (a *app) interactive() bool {
	f, ok := a.stdin.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) passphrase(ctx context.Context) wallet.PassphraseFunc {
	return func(account string) (string, error) {
		if pw, ok := os.LookupEnv(PassphraseEnv); ok {
			return pw, nil
		}
		if !a.interactive() {
			return "", fmt.Errorf("no terminal attached; set %s", PassphraseEnv)
		}
		return ui.ReadPassphrase(ctx, a.stdin, a.stderr, "Passphrase for "+account+":")
	}
}

func (a *app) Close() {
	if a.client != nil {
		a.client.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close journal", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
