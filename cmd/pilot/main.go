package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pilot",
		Short:        "Yield deposits, swaps and bridges with approval-gated execution",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	addCommonFlags(root.PersistentFlags())

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Rank yield venues for an asset and preview the best deposit",
		RunE:  runPlan,
	}
	planCmd.Flags().String("asset", "", "asset symbol or address")
	planCmd.Flags().String("amount", "", "amount in human units")
	planCmd.Flags().StringSlice("chains", nil, "chains to scan (comma-separated, default: every chain with an rpc)")
	root.AddCommand(planCmd)

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit into a yield venue",
		RunE:  runDeposit,
	}
	addVenueFlags(depositCmd.Flags())
	root.AddCommand(depositCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw from a yield venue (amount accepts max or all)",
		RunE:  runWithdraw,
	}
	addVenueFlags(withdrawCmd.Flags())
	withdrawCmd.Flags().String("recipient", "", "recipient of withdrawn funds (default: owner)")
	root.AddCommand(withdrawCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one token for another on a chain",
		RunE:  runSwap,
	}
	swapCmd.Flags().String("chain", "", "chain name or id")
	addRouteFlags(swapCmd.Flags())
	root.AddCommand(swapCmd)

	bridgeCmd := &cobra.Command{
		Use:   "bridge",
		Short: "Move a token to another chain",
		RunE:  runBridge,
	}
	bridgeCmd.Flags().String("from-chain", "", "source chain")
	bridgeCmd.Flags().String("to-chain", "", "destination chain")
	addRouteFlags(bridgeCmd.Flags())
	root.AddCommand(bridgeCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the intents over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().String("listen", ":8080", "listen address")
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.StringSlice("rpc", nil, "rpc endpoints as chain=url (comma-separated)")
	flags.String("owner", "", "wallet address that signs and holds funds")
	flags.String("signer-url", "", "remote signing service base URL")
	flags.String("signer-token", "", "bearer token for the signing service")
	flags.Duration("signer-timeout", 30*time.Second, "signing service timeout")
	flags.String("lifi-url", "https://li.quest/v1", "LiFi API base URL")
	flags.String("debridge-url", "https://dln.debridge.finance/v1.0", "deBridge DLN API base URL")
	flags.String("llama-url", "https://yields.llama.fi", "DeFiLlama yields API base URL")
	flags.Float64("min-tvl-usd", 1_000_000, "ignore yield pools smaller than this")
	flags.Duration("quote-timeout", 20*time.Second, "per-source quote timeout")
	flags.Duration("http-timeout", 15*time.Second, "HTTP and RPC read timeout")
	flags.Int("max-retries", 3, "maximum retry attempts for reads")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Int("slippage-bps", 50, "slippage tolerance in basis points")
	flags.String("journal", "./data/journal.jsonl", "JSONL journal path (empty disables)")
	flags.String("pg-dsn", "", "Postgres DSN for the journal (overrides --journal)")
	flags.String("nats-url", "", "NATS URL for result events")
	flags.String("nats-subject", "yieldpilot.results", "NATS subject prefix")
	flags.String("venues-file", "", "YAML venue table overrides")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func addVenueFlags(flags *pflag.FlagSet) {
	flags.String("protocol", "aave-v3", "venue: aave-v3, compound-v3 or metamorpho")
	flags.String("chain", "", "chain name or id")
	flags.String("asset", "", "asset symbol or address")
	flags.String("market", "", "market or vault symbol (default: the venue's market for the asset)")
	flags.String("amount", "", "amount in human units")
	flags.Bool("execute", false, "submit transactions instead of previewing")
}

func addRouteFlags(flags *pflag.FlagSet) {
	flags.String("from", "", "source asset symbol or address")
	flags.String("to", "", "destination asset symbol or address")
	flags.String("amount", "", "amount in human units")
	flags.String("recipient", "", "recipient on the destination chain (default: owner)")
	flags.Bool("execute", false, "submit transactions instead of previewing")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
