package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yolodolo42/filsign/internal/tx"
)

func newSignCmd(opts *rootOptions) *cobra.Command {
	var (
		in  tx.RequestInput
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Build, confirm and sign a transfer message",
		Long: `Build a transfer message, fill its nonce and any missing gas values from
the node, show the final message for confirmation and sign it.

Gas values of 0 are treated as not provided. The signed message is printed
as Lotus JSON; a rejected confirmation prints "rejected".`,
		Example: `  filsign sign --to f1abc... --value 0.5FIL
  filsign sign --to t01234 --value 1000 --gas-limit 600000 --gas-premium 100000 --gas-fee-cap 200000`,
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

			p, err := a.pipeline(yes)
			if err != nil {
				return err
			}
			signed, err := p.SignMessage(cmd.Context(), a.wctx, req)
			if err != nil {
				return fmt.Errorf("failed to sign message: %w", err)
			}
			if signed == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "rejected")
				return nil
			}

			out, err := signed.ToJSON(a.wctx.Network)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if link := a.chainClient().Network().MessageURL(out.CID.Root); link != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "explorer: %s\n", link)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&in.To, "to", "", "destination address")
	flags.StringVar(&in.Value, "value", "0", "amount in attoFIL, or FIL with a FIL suffix")
	flags.StringVar(&in.GasLimit, "gas-limit", "", "gas limit (estimated when omitted)")
	flags.StringVar(&in.GasPremium, "gas-premium", "", "gas premium in attoFIL (estimated when omitted)")
	flags.StringVar(&in.GasFeeCap, "gas-fee-cap", "", "gas fee cap in attoFIL (estimated when omitted)")
	flags.BoolVarP(&yes, "yes", "y", false, "sign without asking for confirmation")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSignRawCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "sign-raw <hex|->",
		Short: "Confirm and sign an already serialized message",
		Long: `Sign a CBOR-serialized Filecoin message given as hex, or read from stdin
when the argument is "-". Prints the hex signature, or "rejected".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRawArg(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.pipeline(yes)
			if err != nil {
				return err
			}
			sig, err := p.SignRawMessage(cmd.Context(), a.wctx, raw)
			if err != nil {
				return fmt.Errorf("failed to sign message: %w", err)
			}
			if sig == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "rejected")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "sign without asking for confirmation")
	return cmd
}

func readRawArg(arg string, stdin io.Reader) ([]byte, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		arg = string(data)
	}
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "0x")
	if arg == "" {
		return nil, fmt.Errorf("message is empty")
	}
	raw, err := hex.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("message must be hex: %w", err)
	}
	return raw, nil
}
