package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/filsign/internal/config"
	"github.com/yolodolo42/filsign/internal/journal"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent signing attempts from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.v)
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("journal is disabled")
			}

			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(w, "No signing attempts recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tKIND\tSTATE\tFROM\tCID")
			for _, e := range entries {
				cid := e.Cid
				if cid == "" {
					cid = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Kind, e.State, e.From, cid)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")
	return cmd
}
