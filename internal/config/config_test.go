package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"yieldpilot/internal/model"
)

func TestLoadDefaultsAndFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("rpc", nil, "")
	flags.Int("slippage-bps", 50, "")
	if err := flags.Parse([]string{"--rpc", "arb=https://arb.example,eth=https://eth.example", "--slippage-bps", "30"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC[model.Arbitrum] != "https://arb.example" || cfg.RPC[model.Ethereum] != "https://eth.example" {
		t.Fatalf("unexpected rpc map: %v", cfg.RPC)
	}
	if len(cfg.Chains) != 2 || cfg.Chains[0] != model.Ethereum || cfg.Chains[1] != model.Arbitrum {
		t.Fatalf("chains should follow rpc map in chain-id order, got %v", cfg.Chains)
	}
	if cfg.SlippageBps != 30 {
		t.Fatalf("expected slippage 30, got %d", cfg.SlippageBps)
	}
	if cfg.QuoteTimeout != 20*time.Second || cfg.Listen != ":8080" || cfg.MaxRetries != 3 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pilot.yaml")
	content := "rpc:\n  base: https://base.example\nchains: [base, optimism]\nowner: \"0x1111111111111111111111111111111111111111\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PILOT_SIGNER_URL", "https://signer.example")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC[model.Base] != "https://base.example" {
		t.Fatalf("unexpected rpc map: %v", cfg.RPC)
	}
	if len(cfg.Chains) != 2 || cfg.Chains[1] != model.Optimism {
		t.Fatalf("unexpected chains: %v", cfg.Chains)
	}
	if cfg.SignerURL != "https://signer.example" {
		t.Fatalf("env not applied: %q", cfg.SignerURL)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	if err := flags.Parse([]string{"--rpc", "solana=https://x"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := Load("", flags); err == nil {
		t.Fatalf("expected unsupported chain error")
	}

	flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("slippage-bps", 0, "")
	if err := flags.Parse([]string{"--slippage-bps", "10000"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := Load("", flags); err == nil {
		t.Fatalf("expected slippage error")
	}
}

func TestParseStringMap(t *testing.T) {
	got := parseStringMap("base=https://a, eth = https://b ,broken,=x")
	if len(got) != 2 || got["base"] != "https://a" || got["eth"] != "https://b" {
		t.Fatalf("unexpected map: %v", got)
	}
}
