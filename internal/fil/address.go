package fil

import (
	"fmt"

	"github.com/filecoin-project/go-address"
)

// Network is the single-character address prefix of a Filecoin network.
type Network string

const (
	Mainnet Network = "f"
	Testnet Network = "t"
)

// ParseNetwork accepts "f"/"t" as well as the common long names.
func ParseNetwork(s string) (Network, error) {
	switch s {
	case "f", "mainnet":
		return Mainnet, nil
	case "t", "testnet", "calibration", "calibrationnet":
		return Testnet, nil
	default:
		return "", fmt.Errorf("unknown network: %q", s)
	}
}

// FormatAddress renders addr with the prefix of network n, independent of the
// process-wide default used by go-address.
func FormatAddress(n Network, addr address.Address) string {
	if addr.Empty() {
		return "<empty>"
	}
	s := addr.String()
	if n == "" {
		return s
	}
	return string(n) + s[1:]
}

// ParseAddress parses an f- or t-prefixed address string.
func ParseAddress(s string) (address.Address, error) {
	addr, err := address.NewFromString(s)
	if err != nil {
		return address.Undef, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}

// NewSecp256k1Address derives the f1/t1 address of an uncompressed 65-byte
// secp256k1 public key.
func NewSecp256k1Address(pubkey []byte) (address.Address, error) {
	addr, err := address.NewSecp256k1Address(pubkey)
	if err != nil {
		return address.Undef, fmt.Errorf("derive address: %w", err)
	}
	return addr, nil
}
