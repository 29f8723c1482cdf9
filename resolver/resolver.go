package resolver

import (
	"errors"
	"fmt"
	"strings"

	"crosschainctl/registry"
)

// Source records which step of the precedence chain produced a binding.
type Source string

const (
	SourceOverride          Source = "override"
	SourceRegistryByName    Source = "registry-by-name"
	SourceRegistryByChainID Source = "registry-by-chainid"
)

var ErrNoGatewayFound = errors.New("no gateway found")

// Binding is the gateway address resolved for one dispatch attempt.
type Binding struct {
	Network string `json:"network"`
	ChainID uint64 `json:"chainId,omitempty"` // 0 when unknown
	Address string `json:"address"`
	Source  Source `json:"source"`
}

type ResolutionError struct {
	Network string
	ChainID uint64
	Err     error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve gateway for network %q chainId=%d: %s", e.Network, e.ChainID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// entryChainID is the chain id the registry lists for the gateway named
// network at addr, or 0.
func entryChainID(reg registry.Registry, network, addr string) uint64 {
	for _, e := range reg.Entries() {
		if e.Type == registry.TypeGateway && strings.EqualFold(e.ChainName, network) && e.Address == addr {
			return e.ChainID
		}
	}
	return 0
}

// Resolve picks the gateway address for a network. The first non-empty
// result of override, registry lookup by name, and registry lookup by
// chain id wins. A registry match carries the chain id of its entry.
// Nothing is cached between calls.
func Resolve(reg registry.Registry, network string, chainID uint64, explicitOverride string) (Binding, error) {
	b := Binding{Network: network, ChainID: chainID}

	if override := strings.TrimSpace(explicitOverride); override != "" {
		b.Address = override
		b.Source = SourceOverride
		return b, nil
	}

	if reg != nil {
		if addr, ok := reg.GetAddress(registry.TypeGateway, network); ok && addr != "" {
			b.Address = addr
			b.Source = SourceRegistryByName
			if id := entryChainID(reg, network, addr); id != 0 {
				b.ChainID = id
			}
			return b, nil
		}

		if chainID != 0 {
			for _, e := range reg.Entries() {
				if e.Type == registry.TypeGateway && e.ChainID == chainID && e.Address != "" {
					b.Address = e.Address
					b.Source = SourceRegistryByChainID
					return b, nil
				}
			}
		}
	}

	return Binding{}, &ResolutionError{Network: network, ChainID: chainID, Err: ErrNoGatewayFound}
}
