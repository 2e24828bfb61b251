package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yolodolo42/filsign/internal/config"
)

// rootOptions is the state shared by every command of one invocation.
type rootOptions struct {
	cfgFile string
	v       *viper.Viper
}

// NewRootCmd builds the filsign command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "filsign",
		Short: "Prepare and sign Filecoin messages",
		Long: `filsign prepares Filecoin transfer messages, prices their gas against a
Lotus node and signs them with a locally held secp256k1 key.

Every signature requires an explicit confirmation of the final message.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.filsign/config.yaml)")
	flags.String("network", "", "network: mainnet (f) or calibration (t)")
	flags.StringSlice("rpc-url", nil, "Lotus JSON-RPC endpoint (repeatable)")
	flags.String("account", "", "account to sign with")
	flags.Bool("debug", false, "enable debug logging")
	_ = opts.v.BindPFlag("network", flags.Lookup("network"))
	_ = opts.v.BindPFlag("rpc.urls", flags.Lookup("rpc-url"))
	_ = opts.v.BindPFlag("account", flags.Lookup("account"))
	_ = opts.v.BindPFlag("log.debug", flags.Lookup("debug"))

	rootCmd.AddCommand(
		newQuoteCmd(opts),
		newSignCmd(opts),
		newSignRawCmd(opts),
		newWalletCmd(opts),
		newConfigCmd(opts),
		newHistoryCmd(opts),
	)
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) initConfig() error {
	config.SetDefaults(o.v)

	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else {
		dataDir, err := config.DefaultDataDir()
		if err != nil {
			return err
		}
		if dir := o.v.GetString("data_dir"); dir != "" {
			dataDir = dir
		}
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config directory: %v\n", err)
		}

		o.v.AddConfigPath(dataDir)
		o.v.AddConfigPath(".")
		o.v.SetConfigType("yaml")
		o.v.SetConfigName("config")
	}

	if err := o.v.ReadInConfig(); err != nil {
		// a missing default config file is fine; an explicit one is not
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || o.cfgFile != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// configPath is where persistent changes such as `wallet use` are written.
func (o *rootOptions) configPath(cfg *config.Config) string {
	if used := o.v.ConfigFileUsed(); used != "" {
		return used
	}
	if o.cfgFile != "" {
		return o.cfgFile
	}
	return filepath.Join(cfg.DataDir, "config.yaml")
}
