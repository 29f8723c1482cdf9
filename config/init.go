package config

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"

	"crosschainctl/contracts"
	"crosschainctl/types"
)

// reading config error is fatal, and exits main thread
func processError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(2)
}

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return fmt.Errorf("cannot decode %s: %w", path, err)
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	return envconfig.Process("", cfg)
}

// Load reads the YAML file at path (a missing file is fine), overlays the
// environment and validates the result.
func Load(path string) (*Configuration, error) {
	cfg := Default()

	if path != "" {
		if err := readFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if err := readEnv(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init is Load for main: any error ends the process.
func Init(path string) *Configuration {
	cfg, err := Load(path)
	if err != nil {
		processError(err)
	}
	return cfg
}

func (c *Configuration) normalize() {
	c.Network = strings.TrimSpace(c.Network)
	c.Gateway.Override = strings.TrimSpace(c.Gateway.Override)
	c.PrivateKey = strings.TrimPrefix(strings.TrimSpace(c.PrivateKey), "0x")
	c.Operator = strings.TrimSpace(c.Operator)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	rpcs := c.RPCList[:0]
	for _, url := range c.RPCList {
		if url = strings.TrimSpace(url); url != "" {
			rpcs = append(rpcs, url)
		}
	}
	c.RPCList = rpcs
}

// Validate reports every problem at once.
func (c *Configuration) Validate() error {
	var result *multierror.Error

	if c.Network == "" {
		result = multierror.Append(result, errors.New("network: required"))
	}
	if len(c.RPCList) == 0 {
		result = multierror.Append(result, errors.New("rpc_list: at least one endpoint required"))
	}
	if c.RegistryFile == "" && c.Gateway.Override == "" {
		result = multierror.Append(result, errors.New("registry_file or gateway.evm (GATEWAY_EVM) required"))
	}
	if c.ConfirmTimeout <= 0 {
		result = multierror.Append(result, errors.New("confirm_timeout: must be positive"))
	}

	checkAddr := func(field, value string) {
		if value != "" && !types.ValidAddress(value) {
			result = multierror.Append(result, fmt.Errorf("%s: invalid address %q", field, value))
		}
	}
	checkAddr("gateway.evm", c.Gateway.Override)
	checkAddr("operator", c.Operator)
	checkAddr("contracts.nft", c.Contracts.NFT)
	checkAddr("contracts.manager", c.Contracts.Manager)
	checkAddr("contracts.receiver", c.Contracts.Receiver)
	checkAddr("gateway.revert.revert_address", c.Gateway.Revert.RevertAddress)
	checkAddr("gateway.revert.abort_address", c.Gateway.Revert.AbortAddress)

	if c.Gateway.Revert.CallOnRevert && (c.Gateway.Revert.RevertAddress == "" ||
		common.HexToAddress(c.Gateway.Revert.RevertAddress) == (common.Address{})) {
		result = multierror.Append(result, errors.New("gateway.revert: call_on_revert requires a non-zero revert_address"))
	}

	if _, err := c.Value(); err != nil {
		result = multierror.Append(result, err)
	}

	for i, inv := range c.Invariants {
		if inv.Subject == "" {
			result = multierror.Append(result, fmt.Errorf("invariants[%d]: subject required", i))
		}
		if !types.ValidAddress(inv.Contract) {
			result = multierror.Append(result, fmt.Errorf("invariants[%d]: invalid contract %q", i, inv.Contract))
		}
		switch inv.Expected {
		case AliasOperator:
		case AliasManager:
			if c.Contracts.Manager == "" {
				result = multierror.Append(result, fmt.Errorf("invariants[%d]: expected %q but contracts.manager is not set", i, AliasManager))
			}
		default:
			if !types.ValidAddress(inv.Expected) {
				result = multierror.Append(result, fmt.Errorf("invariants[%d]: invalid expected controller %q", i, inv.Expected))
			}
		}
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "crit":
	default:
		result = multierror.Append(result, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}

	return result.ErrorOrNil()
}

// Value is the native amount attached to gateway calls.
func (c *Configuration) Value() (*big.Int, error) {
	if c.Gateway.ValueWei == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(c.Gateway.ValueWei, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("gateway.value_wei: %q is not a non-negative integer", c.Gateway.ValueWei)
	}
	return v, nil
}

// RevertOptions converts the configured defaults into gateway form.
func (c *Configuration) RevertOptions() contracts.RevertOptions {
	r := c.Gateway.Revert
	opts := contracts.RevertOptions{
		CallOnRevert:     r.CallOnRevert,
		RevertMessage:    []byte{},
		OnRevertGasLimit: new(big.Int).SetUint64(r.OnRevertGasLimit),
	}
	if r.RevertAddress != "" {
		opts.RevertAddress = common.HexToAddress(r.RevertAddress)
	}
	if r.AbortAddress != "" {
		opts.AbortAddress = common.HexToAddress(r.AbortAddress)
	}
	if r.RevertMessage != "" {
		if b, err := hexutil.Decode(r.RevertMessage); err == nil {
			opts.RevertMessage = b
		} else {
			opts.RevertMessage = []byte(r.RevertMessage)
		}
	}
	return opts
}
