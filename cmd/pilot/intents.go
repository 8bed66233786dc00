package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldpilot/internal/chain"
	"yieldpilot/internal/config"
	"yieldpilot/internal/model"
	"yieldpilot/internal/workflow"
)

// withApp loads configuration, builds the app and runs fn under a
// signal-aware context.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app, cfg config.Config, logger *zap.Logger) error) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a, cfg, logger)
}

func requireOwner(a *app) (common.Address, error) {
	if a.owner == (common.Address{}) {
		return common.Address{}, fmt.Errorf("owner address is required")
	}
	return a.owner, nil
}

func optionalAddress(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return common.Address{}, nil
	}
	return chain.ParseAddress(raw)
}

func printResult(res *model.WorkflowResult, err error) error {
	if res != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(res); encErr != nil {
			return encErr
		}
	}
	return err
}

func runPlan(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, cfg config.Config, _ *zap.Logger) error {
		owner, err := requireOwner(a)
		if err != nil {
			return err
		}
		asset, _ := cmd.Flags().GetString("asset")
		amt, _ := cmd.Flags().GetString("amount")
		names, _ := cmd.Flags().GetStringSlice("chains")
		chains := cfg.Chains
		if len(names) > 0 {
			chains = make([]model.Chain, 0, len(names))
			for _, name := range names {
				chains = append(chains, model.LookupChain(name))
			}
		}
		return printResult(a.svc.Plan(ctx, workflow.PlanRequest{
			Owner:  owner,
			Asset:  asset,
			Amount: amt,
			Chains: chains,
		}))
	})
}

func venueArgs(cmd *cobra.Command) (protocol string, c model.Chain, asset, market, amt string, execute bool) {
	protocol, _ = cmd.Flags().GetString("protocol")
	name, _ := cmd.Flags().GetString("chain")
	asset, _ = cmd.Flags().GetString("asset")
	market, _ = cmd.Flags().GetString("market")
	amt, _ = cmd.Flags().GetString("amount")
	execute, _ = cmd.Flags().GetBool("execute")
	return protocol, model.LookupChain(name), asset, market, amt, execute
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, _ config.Config, _ *zap.Logger) error {
		owner, err := requireOwner(a)
		if err != nil {
			return err
		}
		protocol, c, asset, market, amt, execute := venueArgs(cmd)
		return printResult(a.svc.Deposit(ctx, workflow.DepositRequest{
			Owner:    owner,
			Protocol: protocol,
			Chain:    c,
			Asset:    asset,
			Market:   market,
			Amount:   amt,
			Execute:  execute,
		}))
	})
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, _ config.Config, _ *zap.Logger) error {
		owner, err := requireOwner(a)
		if err != nil {
			return err
		}
		recipient, err := optionalAddress(cmd, "recipient")
		if err != nil {
			return err
		}
		protocol, c, asset, market, amt, execute := venueArgs(cmd)
		return printResult(a.svc.Withdraw(ctx, workflow.WithdrawRequest{
			Owner:     owner,
			Recipient: recipient,
			Protocol:  protocol,
			Chain:     c,
			Asset:     asset,
			Market:    market,
			Amount:    amt,
			Execute:   execute,
		}))
	})
}

func routeArgs(cmd *cobra.Command) (from, to, amt string, execute bool) {
	from, _ = cmd.Flags().GetString("from")
	to, _ = cmd.Flags().GetString("to")
	amt, _ = cmd.Flags().GetString("amount")
	execute, _ = cmd.Flags().GetBool("execute")
	return from, to, amt, execute
}

func runSwap(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, cfg config.Config, _ *zap.Logger) error {
		owner, err := requireOwner(a)
		if err != nil {
			return err
		}
		recipient, err := optionalAddress(cmd, "recipient")
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("chain")
		from, to, amt, execute := routeArgs(cmd)
		return printResult(a.svc.Swap(ctx, workflow.SwapRequest{
			Owner:       owner,
			Recipient:   recipient,
			Chain:       model.LookupChain(name),
			From:        from,
			To:          to,
			Amount:      amt,
			SlippageBps: cfg.SlippageBps,
			Execute:     execute,
		}))
	})
}

func runBridge(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, cfg config.Config, _ *zap.Logger) error {
		owner, err := requireOwner(a)
		if err != nil {
			return err
		}
		recipient, err := optionalAddress(cmd, "recipient")
		if err != nil {
			return err
		}
		fromChain, _ := cmd.Flags().GetString("from-chain")
		toChain, _ := cmd.Flags().GetString("to-chain")
		from, to, amt, execute := routeArgs(cmd)
		return printResult(a.svc.Bridge(ctx, workflow.BridgeRequest{
			Owner:       owner,
			Recipient:   recipient,
			FromChain:   model.LookupChain(fromChain),
			ToChain:     model.LookupChain(toChain),
			From:        from,
			To:          to,
			Amount:      amt,
			SlippageBps: cfg.SlippageBps,
			Execute:     execute,
		}))
	})
}
