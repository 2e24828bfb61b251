package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/filsign/internal/fil"
	"github.com/yolodolo42/filsign/internal/ui"
	"github.com/yolodolo42/filsign/internal/wallet"
)

func newWalletCmd(opts *rootOptions) *cobra.Command {
	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Inspect and select signing accounts",
	}

	walletCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List available accounts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWalletList(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "address",
			Short: "Print the Filecoin address of the active account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWalletAddress(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "pubkey",
			Short: "Print the uncompressed public key of the active account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWalletPubkey(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "use [account]",
			Short: "Select the active account",
			Long:  "Select the active account and save it to the config file. Without an argument an interactive list is shown.",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runWalletUse(cmd, opts, args)
			},
		},
	)
	return walletCmd
}

func runWalletList(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.keys.Accounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No accounts found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d account(s):\n\n", len(accounts))
	for i, acc := range accounts {
		marker := ""
		if strings.EqualFold(acc.ID, a.cfg.Account) {
			marker = " (active)"
		}
		fmt.Fprintf(w, "%d. %s%s\n", i+1, acc.ID, marker)
	}
	return nil
}

func runWalletAddress(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	addr, err := a.keys.Address(cmd.Context(), a.wctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), fil.FormatAddress(a.wctx.Network, addr))
	return nil
}

func runWalletPubkey(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	kp, err := a.keys.Resolve(cmd.Context(), a.wctx)
	if err != nil {
		return err
	}
	pub := hex.EncodeToString(kp.PublicKey)
	kp.Wipe()

	fmt.Fprintln(cmd.OutOrStdout(), "0x"+pub)
	return nil
}

func runWalletUse(cmd *cobra.Command, opts *rootOptions, args []string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.keys.Accounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	var chosen string
	if len(args) == 1 {
		for _, acc := range accounts {
			if strings.EqualFold(acc.ID, args[0]) {
				chosen = acc.ID
				break
			}
		}
		if chosen == "" {
			return fmt.Errorf("%w: %s", wallet.ErrAccountNotFound, args[0])
		}
	} else {
		if !a.interactive() {
			return fmt.Errorf("no terminal attached; pass the account as an argument")
		}
		items := make([]ui.SelectorItem, 0, len(accounts))
		for _, acc := range accounts {
			items = append(items, ui.SelectorItem{
				ID:          acc.ID,
				Description: string(acc.ProviderType),
				Current:     strings.EqualFold(acc.ID, a.cfg.Account),
			})
		}
		chosen, err = ui.Select(cmd.Context(), a.stdin, a.stderr, "Select account", items)
		if err != nil {
			return err
		}
		if chosen == "" {
			return nil
		}
	}

	path := opts.configPath(a.cfg)
	if err := saveAccount(path, chosen); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Active account: %s\n", chosen)
	return nil
}

// saveAccount updates only the account key of the config file at path, so
// values that came from flags or the environment are not persisted.
func saveAccount(path, account string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	v.Set("account", account)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
