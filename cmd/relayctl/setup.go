package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"

	"crosschainctl/EVMRPC"
	"crosschainctl/config"
	"crosschainctl/registry"
)

var levels = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

type runtime struct {
	cfg *config.Configuration
	log log.Logger
}

func setup(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, log: setupLogging(cfg, os.Stderr)}, nil
}

func setupLogging(cfg *config.Configuration, w io.Writer) log.Logger {
	lvl, ok := levels[cfg.Logging.Level]
	if !ok {
		lvl = log.LevelInfo
	}
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(w, lvl, cfg.Logging.Color))
	log.SetDefault(logger)
	return logger
}

// registry loads a fresh view of the registry file; without one configured
// only the explicit override can resolve.
func (rt *runtime) registry() (registry.Registry, error) {
	if rt.cfg.RegistryFile == "" {
		return registry.NewSnapshot(nil), nil
	}
	snap, err := registry.FileSource{Path: rt.cfg.RegistryFile}.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// resolveRegistry tolerates an unreadable registry when an explicit
// override makes it irrelevant.
func (rt *runtime) resolveRegistry() (registry.Registry, error) {
	reg, err := rt.registry()
	if err != nil && rt.cfg.Gateway.Override == "" {
		return nil, err
	}
	if err != nil {
		rt.log.Warn("Registry unavailable, using the explicit gateway override", "err", err)
	}
	return reg, nil
}

func (rt *runtime) operator() (common.Address, error) {
	if rt.cfg.Operator != "" {
		return common.HexToAddress(rt.cfg.Operator), nil
	}
	if rt.cfg.PrivateKey == "" {
		return common.Address{}, errors.New("operator address unknown: set operator or PRIVATE_KEY")
	}
	key, err := EVMRPC.ParsePrivateKey(rt.cfg.PrivateKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func (rt *runtime) signer(ctx context.Context) (*EVMRPC.Signer, error) {
	s, err := EVMRPC.NewSigner(ctx, rt.cfg.RPCList, rt.cfg.PrivateKey, rt.cfg.ChainID, rt.log)
	if err != nil {
		return nil, err
	}
	if rt.cfg.Operator != "" && common.HexToAddress(rt.cfg.Operator) != s.Address() {
		rt.log.Warn("Configured operator differs from the signing key", "operator", rt.cfg.Operator, "signer", s.Address())
	}
	return s, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
