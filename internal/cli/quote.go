package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/filsign/internal/fil"
	"github.com/yolodolo42/filsign/internal/tx"
)

type quoteOutput struct {
	GasLimit   int64  `json:"GasLimit"`
	GasPremium string `json:"GasPremium"`
	GasFeeCap  string `json:"GasFeeCap"`
	MaxFee     string `json:"MaxFee"`
}

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	var (
		in      tx.RequestInput
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Estimate gas for a transfer without signing",
		Example: `  filsign quote --to f1abc... --value 0.5FIL
  filsign quote --to t01234 --value 1000 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := tx.ParseRequest(in)
			if err != nil {
				return err
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.pipeline(false)
			if err != nil {
				return err
			}
			est, err := p.QuoteGas(cmd.Context(), a.wctx, req)
			if err != nil {
				return fmt.Errorf("failed to estimate gas: %w", err)
			}

			out := quoteOutput{
				GasLimit:   est.GasLimit,
				GasPremium: est.GasPremium.String(),
				GasFeeCap:  est.GasFeeCap.String(),
				MaxFee:     fil.FormatFIL(est.MaxFee()),
			}
			w := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintf(w, "gas limit:   %d\n", out.GasLimit)
			fmt.Fprintf(w, "gas premium: %s attoFIL\n", out.GasPremium)
			fmt.Fprintf(w, "gas fee cap: %s attoFIL\n", out.GasFeeCap)
			fmt.Fprintf(w, "max fee:     %s FIL\n", out.MaxFee)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.To, "to", "", "destination address")
	cmd.Flags().StringVar(&in.Value, "value", "0", "amount in attoFIL, or FIL with a FIL suffix")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
