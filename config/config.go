package config

import (
	"time"
)

type RevertDefaults struct {
	RevertAddress    string `yaml:"revert_address"`
	CallOnRevert     bool   `yaml:"call_on_revert"`
	AbortAddress     string `yaml:"abort_address"`
	RevertMessage    string `yaml:"revert_message"`
	OnRevertGasLimit uint64 `yaml:"on_revert_gas_limit"`
}

// Invariant is an extra authority invariant. Expected is an address or one
// of the aliases "operator" and "manager".
type Invariant struct {
	Subject  string `yaml:"subject"`
	Contract string `yaml:"contract"`
	Expected string `yaml:"expected"`
}

type Configuration struct {
	// target network selection
	Network      string   `yaml:"network" envconfig:"NETWORK"`
	ChainID      uint64   `yaml:"chain_id" envconfig:"CHAIN_ID"`
	RPCList      []string `yaml:"rpc_list" envconfig:"RPC_LIST"`
	RegistryFile string   `yaml:"registry_file" envconfig:"REGISTRY_FILE"`

	// important private stuff, environment only in production
	PrivateKey string `yaml:"private_key" envconfig:"PRIVATE_KEY"`
	// operator address for read-only use; derived from the key when empty
	Operator string `yaml:"operator" envconfig:"OPERATOR"`

	ConfirmTimeout time.Duration `yaml:"confirm_timeout" envconfig:"CONFIRM_TIMEOUT"`

	Gateway struct {
		Override string         `yaml:"evm" envconfig:"EVM"`
		ValueWei string         `yaml:"value_wei" envconfig:"VALUE_WEI"`
		Revert   RevertDefaults `yaml:"revert" ignored:"true"`
	} `yaml:"gateway"`

	Contracts struct {
		NFT      string `yaml:"nft" envconfig:"NFT"`
		Manager  string `yaml:"manager" envconfig:"MANAGER"`
		Receiver string `yaml:"receiver" envconfig:"RECEIVER"` // defaults to Manager
	} `yaml:"contracts"`

	Invariants []Invariant `yaml:"invariants" ignored:"true"`

	Server struct {
		ListenAddr     string        `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
		RedisHost      string        `yaml:"redis_host" envconfig:"REDIS_HOST"`
		RedisPort      int           `yaml:"redis_port" envconfig:"REDIS_PORT"`
		VerifyInterval time.Duration `yaml:"verify_interval" envconfig:"VERIFY_INTERVAL"`
		TrackInterval  time.Duration `yaml:"track_interval" envconfig:"TRACK_INTERVAL"`
	} `yaml:"server"`

	Logging struct {
		Level string `yaml:"level" envconfig:"LEVEL"`
		Color bool   `yaml:"color" envconfig:"COLOR"`
	} `yaml:"logging"`
}

const (
	AliasOperator = "operator"
	AliasManager  = "manager"
)

func Default() *Configuration {
	cfg := &Configuration{
		ConfirmTimeout: 2 * time.Minute,
	}
	cfg.Gateway.ValueWei = "0"
	cfg.Server.ListenAddr = ":8080"
	cfg.Server.RedisHost = "127.0.0.1"
	cfg.Server.RedisPort = 6379
	cfg.Server.VerifyInterval = 5 * time.Minute
	cfg.Server.TrackInterval = 10 * time.Second
	cfg.Logging.Level = "info"
	return cfg
}

// ReceiverAddress is the destination contract of dispatched calls.
func (c *Configuration) ReceiverAddress() string {
	if c.Contracts.Receiver != "" {
		return c.Contracts.Receiver
	}
	return c.Contracts.Manager
}
