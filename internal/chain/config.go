package chain

import (
	"slices"
	"strings"

	"github.com/yolodolo42/filsign/internal/fil"
)

// NetworkConfig describes a Filecoin network and the Lotus endpoints serving it.
type NetworkConfig struct {
	Name string `yaml:"name"`
	// Prefix is the address prefix used when rendering addresses for this network.
	Prefix fil.Network `yaml:"prefix"`
	// StateName is what Filecoin.StateNetworkName reports; endpoints answering
	// anything else are skipped. Empty disables the check.
	StateName   string   `yaml:"state_name"`
	RPCURLs     []string `yaml:"rpc_urls"`
	ExplorerURL string   `yaml:"explorer_url"`
	IsTestnet   bool     `yaml:"is_testnet"`
}

// DefaultNetworks returns the built-in network configurations
func DefaultNetworks() map[string]*NetworkConfig {
	return map[string]*NetworkConfig{
		"mainnet": {
			Name:        "Filecoin Mainnet",
			Prefix:      fil.Mainnet,
			StateName:   "mainnet",
			RPCURLs:     []string{"https://api.node.glif.io/rpc/v1", "https://filecoin.chainup.net/rpc/v1"},
			ExplorerURL: "https://filfox.info",
			IsTestnet:   false,
		},
		"calibration": {
			Name:        "Filecoin Calibration",
			Prefix:      fil.Testnet,
			StateName:   "calibrationnet",
			RPCURLs:     []string{"https://api.calibration.node.glif.io/rpc/v1"},
			ExplorerURL: "https://calibration.filfox.info",
			IsTestnet:   true,
		},
	}
}

// NetworkFor returns a copy of the default configuration for prefix n with
// rpcURLs replacing the built-in endpoints when non-empty. Custom endpoints
// may serve any network of that prefix (a local devnet reports its own
// name), so the network name check and the explorer are dropped unless the
// URLs are the built-in ones. Callers pin a name with ExpectStateName.
func NetworkFor(n fil.Network, rpcURLs []string) *NetworkConfig {
	cfg := *defaultFor(n)
	if len(rpcURLs) > 0 && !slices.Equal(rpcURLs, cfg.RPCURLs) {
		cfg.RPCURLs = append([]string(nil), rpcURLs...)
		cfg.StateName = ""
		cfg.ExplorerURL = ""
	}
	return &cfg
}

// ExpectStateName pins the name endpoints must report. Empty leaves the
// current expectation in place. Pinning the built-in name of the prefix
// restores its explorer.
func (c *NetworkConfig) ExpectStateName(name string) *NetworkConfig {
	if name == "" {
		return c
	}
	c.StateName = name
	if def := defaultFor(c.Prefix); def.StateName == name {
		c.ExplorerURL = def.ExplorerURL
	}
	return c
}

// MessageURL links to msgCid on the network's explorer, or returns "" when
// the network has none.
func (c *NetworkConfig) MessageURL(msgCid string) string {
	if c.ExplorerURL == "" || msgCid == "" {
		return ""
	}
	return strings.TrimSuffix(c.ExplorerURL, "/") + "/en/message/" + msgCid
}

func defaultFor(n fil.Network) *NetworkConfig {
	if n == fil.Testnet {
		return DefaultNetworks()["calibration"]
	}
	return DefaultNetworks()["mainnet"]
}
