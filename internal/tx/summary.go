package tx

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/yolodolo42/filsign/internal/fil"
	"github.com/yolodolo42/filsign/internal/wallet"
)

// RenderSummary describes msg for confirmation. msg must hold final values.
func RenderSummary(wctx wallet.WalletContext, msg *fil.Message, account address.Address) string {
	n := wctx.Network
	var b strings.Builder
	b.WriteString("Do you want to sign message\n\n")
	fmt.Fprintf(&b, "from: %s\n", fil.FormatAddress(n, msg.From))
	fmt.Fprintf(&b, "to: %s\n", fil.FormatAddress(n, msg.To))
	fmt.Fprintf(&b, "value: %s FIL\n", fil.FormatFIL(msg.Value))
	fmt.Fprintf(&b, "nonce: %d\n", msg.Nonce)
	fmt.Fprintf(&b, "gas limit: %d\n", msg.GasLimit)
	fmt.Fprintf(&b, "gas fee cap: %s attoFIL\n", amountOrZero(msg.GasFeeCap))
	fmt.Fprintf(&b, "gas premium: %s attoFIL\n", amountOrZero(msg.GasPremium))
	fmt.Fprintf(&b, "max fee: %s FIL\n\n", fil.FormatFIL(msg.Gas().MaxFee()))
	fmt.Fprintf(&b, "with account %s?", fil.FormatAddress(n, account))
	return b.String()
}

// RenderRawSummary describes a raw payload for confirmation. The whole
// payload is echoed; a signature covers every byte of it.
func RenderRawSummary(wctx wallet.WalletContext, raw []byte, account address.Address) string {
	var b strings.Builder
	b.WriteString("Do you want to sign message\n\n")
	b.WriteString(hex.EncodeToString(raw))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "payload: %d bytes\n", len(raw))
	fmt.Fprintf(&b, "with account %s?", fil.FormatAddress(wctx.Network, account))
	return b.String()
}

func amountOrZero(v abi.TokenAmount) string {
	if v.Nil() {
		return "0"
	}
	return v.String()
}
