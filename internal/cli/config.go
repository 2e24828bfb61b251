package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/filsign/internal/config"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.v)
			if err != nil {
				return err
			}

			settings := opts.v.AllSettings()
			settings["data_dir"] = cfg.DataDir
			settings["rpc"] = map[string]any{"urls": cfg.RPC.URLs, "token": cfg.RPC.Token}
			if j, ok := settings["journal"].(map[string]any); ok {
				j["path"] = cfg.Journal.Path
			}

			out, err := yaml.Marshal(config.Redact(settings))
			if err != nil {
				return fmt.Errorf("failed to render config: %w", err)
			}
			w := cmd.OutOrStdout()
			if used := opts.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(w, "# %s\n", used)
			}
			_, err = w.Write(out)
			return err
		},
	})
	return configCmd
}
