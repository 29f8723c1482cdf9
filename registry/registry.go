package registry

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	yaml "gopkg.in/yaml.v2"

	"crosschainctl/types"
)

// entry type tag of gateway contracts
const TypeGateway = "gateway"

// Entry is one deployed protocol contract on one network.
type Entry struct {
	ChainName string `yaml:"chain_name" json:"chainName"`
	ChainID   uint64 `yaml:"chain_id" json:"chainId"`
	Type      string `yaml:"type" json:"type"`
	Address   string `yaml:"address" json:"address"`
	Category  string `yaml:"category,omitempty" json:"category,omitempty"`
}

// Registry is a read-only view of known contract addresses.
type Registry interface {
	// GetAddress looks an entry up by type and symbolic network name.
	GetAddress(entryType, networkName string) (string, bool)
	// Entries returns every entry in registry order.
	Entries() []Entry
}

type file struct {
	Testnet []Entry `yaml:"testnet"`
	Mainnet []Entry `yaml:"mainnet"`
}

// Snapshot is an immutable Registry loaded at one point in time.
type Snapshot struct {
	entries []Entry
}

func NewSnapshot(entries []Entry) *Snapshot {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return &Snapshot{entries: cp}
}

// Parse decodes a registry document. Testnet entries come before mainnet
// entries. Entries whose address is not an EVM address are dropped.
func Parse(data []byte) (*Snapshot, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("cannot decode registry: %w", err)
	}

	entries := make([]Entry, 0, len(f.Testnet)+len(f.Mainnet))
	for _, e := range f.Testnet {
		if e.Category == "" {
			e.Category = "testnet"
		}
		entries = append(entries, e)
	}
	for _, e := range f.Mainnet {
		if e.Category == "" {
			e.Category = "mainnet"
		}
		entries = append(entries, e)
	}

	kept := entries[:0]
	for i, e := range entries {
		if e.Type == "" {
			return nil, fmt.Errorf("registry entry %d (%s): missing type", i, e.ChainName)
		}
		// non-EVM chains (Solana, Bitcoin) share the table
		if !types.ValidAddress(e.Address) {
			log.Warn("Skipping registry entry without EVM address", "index", i, "chain", e.ChainName, "type", e.Type, "address", e.Address)
			continue
		}
		kept = append(kept, e)
	}

	return &Snapshot{entries: kept}, nil
}

func (s *Snapshot) GetAddress(entryType, networkName string) (string, bool) {
	if networkName == "" {
		return "", false
	}
	for _, e := range s.entries {
		if e.Type == entryType && strings.EqualFold(e.ChainName, networkName) {
			return e.Address, true
		}
	}
	return "", false
}

func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// FileSource reads the registry file again on every Snapshot call so that
// edits are picked up without a restart.
type FileSource struct {
	Path string
}

func (f FileSource) Snapshot() (*Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot read registry file %s: %w", f.Path, err)
	}
	return Parse(data)
}
