package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"crosschainctl/EVMRPC"
	"crosschainctl/authority"
	"crosschainctl/dispatcher"
	"crosschainctl/redis"
	"crosschainctl/resolver"
	"crosschainctl/types"
	"crosschainctl/verifier"
	"crosschainctl/workers"
	"crosschainctl/workers/handlers"
)

var (
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "target network name, defaults to the configured network",
	}
	chainIDFlag = &cli.Uint64Flag{
		Name:  "chain-id",
		Usage: "chain id fallback, defaults to the configured chain id unless --network is given",
	}
	subjectFlag = &cli.StringFlag{
		Name:  "subject",
		Usage: "only handle the invariant with this subject",
	}
)

// target is the network to resolve. The configured chain id only applies
// to the configured network.
func target(c *cli.Context, rt *runtime) (string, uint64) {
	network, chainID := rt.cfg.Network, rt.cfg.ChainID
	if c.IsSet(networkFlag.Name) {
		network, chainID = c.String(networkFlag.Name), 0
	}
	if c.IsSet(chainIDFlag.Name) {
		chainID = c.Uint64(chainIDFlag.Name)
	}
	return network, chainID
}

var resolveCommand = &cli.Command{
	Name:  "resolve",
	Usage: "print the gateway binding for a network",
	Flags: []cli.Flag{
		networkFlag,
		chainIDFlag,
	},
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		reg, err := rt.resolveRegistry()
		if err != nil {
			return err
		}

		network, chainID := target(c, rt)
		binding, err := resolver.Resolve(reg, network, chainID, rt.cfg.Gateway.Override)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, binding)
	},
}

type dispatchResult struct {
	Calldata     string                       `json:"calldata"`
	Handle       *dispatcher.SubmissionHandle `json:"handle,omitempty"`
	TrackingHint string                       `json:"trackingHint,omitempty"`
	Status       string                       `json:"status,omitempty"`
	BlockNumber  uint64                       `json:"blockNumber,omitempty"`
}

var dispatchCommand = &cli.Command{
	Name:  "dispatch",
	Usage: "submit the gateway call for an intent",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "intent-file", Usage: "JSON intent or interpreter response", Required: true},
		networkFlag,
		chainIDFlag,
		&cli.BoolFlag{Name: "dry-run", Usage: "build and print the call without submitting"},
		&cli.BoolFlag{Name: "await", Usage: "wait for the source-chain receipt"},
		&cli.BoolFlag{Name: "track", Usage: "record the submission for the tracker", Value: true},
	},
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(c.String("intent-file"))
		if err != nil {
			return err
		}
		in, err := types.DecodeIntent(data)
		if err != nil {
			return err
		}

		network, chainID := target(c, rt)
		reg, err := rt.resolveRegistry()
		if err != nil {
			return err
		}
		binding, resolveErr := resolver.Resolve(reg, network, chainID, rt.cfg.Gateway.Override)
		if resolveErr != nil {
			// the dispatcher reports the missing binding after checking the intent
			rt.log.Warn("Gateway not resolved", "network", network, "err", resolveErr)
			binding = resolver.Binding{Network: network, ChainID: chainID}
		}

		value, err := rt.cfg.Value()
		if err != nil {
			return err
		}
		d := dispatcher.New(rt.log, dispatcher.Config{DefaultRevert: rt.cfg.RevertOptions(), Value: value})
		receiver := common.HexToAddress(rt.cfg.ReceiverAddress())

		if c.Bool("dry-run") {
			call, err := d.Build(in, binding, receiver)
			if err != nil {
				return withResolutionCause(err, resolveErr)
			}
			calldata, err := call.Calldata()
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, dispatchResult{Calldata: hexutil.Encode(calldata)})
		}

		signer, err := rt.signer(c.Context)
		if err != nil {
			return err
		}
		call, handle, err := d.Dispatch(c.Context, in, binding, receiver, signer)
		if err != nil {
			return withResolutionCause(err, resolveErr)
		}
		calldata, err := call.Calldata()
		if err != nil {
			return err
		}
		result := dispatchResult{
			Calldata:     hexutil.Encode(calldata),
			Handle:       handle,
			TrackingHint: handle.TrackingHint(),
			Status:       types.SubmissionSubmitted,
		}

		var store *redis.Store
		record := handle.Record()
		if c.Bool("track") {
			store = redis.New(rt.cfg.Server.RedisHost, rt.cfg.Server.RedisPort, rt.log)
			defer store.Close()
			// the call is already broadcast, losing the record is not fatal
			if err := store.UpsertSubmission(record); err != nil {
				rt.log.Warn("Submission not recorded for tracking", "id", handle.ID, "tx", handle.TxHash, "err", err)
				store = nil
			}
		}

		if c.Bool("await") {
			receipt, err := d.AwaitSubmission(c.Context, handle, signer, rt.cfg.ConfirmTimeout)
			if receipt != nil {
				result.BlockNumber = receipt.BlockNumber.Uint64()
				result.Status = types.SubmissionConfirmed
				if receipt.Status != ethtypes.ReceiptStatusSuccessful {
					result.Status = types.SubmissionReverted
				}
				if store != nil {
					record.Status = result.Status
					record.BlockNumber = result.BlockNumber
					if err := store.ChangeSubmissionStatus(record, types.SubmissionSubmitted); err != nil {
						rt.log.Warn("Submission status not updated", "id", handle.ID, "err", err)
					}
				}
			}
			if err != nil {
				if perr := printJSON(c.App.Writer, result); perr != nil {
					rt.log.Error("Cannot print dispatch result", "err", perr)
				}
				return err
			}
		}

		return printJSON(c.App.Writer, result)
	},
}

// withResolutionCause attaches the resolver's error to an unresolved
// binding rejection so callers see the network and chain id that failed.
func withResolutionCause(err, resolveErr error) error {
	var derr *dispatcher.DispatchError
	if resolveErr != nil && errors.As(err, &derr) && derr.Cause == nil && errors.Is(derr.Kind, dispatcher.ErrUnresolvedBinding) {
		derr.Cause = resolveErr
	}
	return err
}

type checkResult struct {
	Record authority.Record `json:"record"`
	Status authority.Status `json:"status"`
	Error  string           `json:"error,omitempty"`
}

var checkCommand = &cli.Command{
	Name:  "check",
	Usage: "classify the live controller of every configured invariant",
	Flags: []cli.Flag{subjectFlag},
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		operator, err := rt.operator()
		if err != nil {
			return err
		}

		checker := authority.NewChecker(EVMRPC.NewReader(rt.cfg.RPCList), rt.log)
		var results []checkResult
		for _, rec := range filterRecords(authorityRecords(rt.cfg, operator), c.String(subjectFlag.Name)) {
			checked, status, err := checker.Check(c.Context, rec)
			res := checkResult{Record: checked, Status: status}
			if err != nil {
				res.Error = err.Error()
			}
			results = append(results, res)
		}
		return printJSON(c.App.Writer, results)
	},
}

var remediateCommand = &cli.Command{
	Name:  "remediate",
	Usage: "hand authority still held by the operator to the expected controller",
	Flags: []cli.Flag{subjectFlag},
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		signer, err := rt.signer(c.Context)
		if err != nil {
			return err
		}

		remediator := authority.NewRemediator(signer, rt.cfg.ConfirmTimeout, rt.log)
		var (
			outcomes []authority.Outcome
			result   *multierror.Error
		)
		for _, rec := range filterRecords(authorityRecords(rt.cfg, signer.Address()), c.String(subjectFlag.Name)) {
			outcome, err := remediator.Remediate(c.Context, rec)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			outcomes = append(outcomes, outcome)
		}

		if err := printJSON(c.App.Writer, outcomes); err != nil {
			return err
		}
		return result.ErrorOrNil()
	},
}

var verifyCommand = &cli.Command{
	Name:  "verify",
	Usage: "report whether every authority invariant holds; never submits",
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		operator, err := rt.operator()
		if err != nil {
			return err
		}

		report := verifier.New(EVMRPC.NewReader(rt.cfg.RPCList), rt.log).VerifyAll(c.Context, authorityRecords(rt.cfg, operator))
		if err := printJSON(c.App.Writer, report); err != nil {
			return err
		}
		if !report.AllAligned {
			return cli.Exit("deployment has misaligned invariants", 1)
		}
		return nil
	},
}

var balanceCommand = &cli.Command{
	Name:  "balance",
	Usage: "show the configured collection and a holder's balance",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "holder", Usage: "holder address, defaults to the operator"},
	},
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		if rt.cfg.Contracts.NFT == "" {
			return errors.New("contracts.nft is not configured")
		}

		var holder common.Address
		if h := c.String("holder"); h != "" {
			if !types.ValidAddress(h) {
				return fmt.Errorf("invalid holder address %q", h)
			}
			holder = common.HexToAddress(h)
		} else if holder, err = rt.operator(); err != nil {
			return err
		}

		col, err := verifier.InspectCollection(c.Context, EVMRPC.NewReader(rt.cfg.RPCList), common.HexToAddress(rt.cfg.Contracts.NFT), holder)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, col)
	},
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the read-only API with the verification and tracking workers",
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		operator, err := rt.operator()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		// without persistence do not continue
		store := redis.New(rt.cfg.Server.RedisHost, rt.cfg.Server.RedisPort, rt.log)
		defer store.Close()
		if err := store.Ping(); err != nil {
			return fmt.Errorf("redis unavailable: %w", err)
		}

		reader := EVMRPC.NewReader(rt.cfg.RPCList)
		v := verifier.New(reader, rt.log)
		records := authorityRecords(rt.cfg, operator)

		go workers.NewTracker(store, reader, rt.log).Run(ctx, rt.cfg.Server.TrackInterval)
		go workers.NewVerifyWorker(v, store, records, rt.log).Run(ctx, rt.cfg.Server.VerifyInterval)

		h := &handlers.Handlers{
			Store:    store,
			Verifier: v,
			Reader:   reader,
			Registry: rt.registry,
			Override: rt.cfg.Gateway.Override,
			Records:  records,
			Log:      rt.log,
		}
		if rt.cfg.Contracts.NFT != "" {
			h.NFT = common.HexToAddress(rt.cfg.Contracts.NFT)
		}

		return workers.Worker_HTTP(ctx, rt.cfg.Server.ListenAddr, workers.NewRouter(h), rt.log)
	},
}
