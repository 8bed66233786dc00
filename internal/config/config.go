package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"yieldpilot/internal/model"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPC    map[model.Chain]string
	Chains []model.Chain
	Owner  string

	SignerURL     string
	SignerToken   string
	SignerTimeout time.Duration

	LiFiURL      string
	DeBridgeURL  string
	LlamaURL     string
	MinTVLUSD    float64
	QuoteTimeout time.Duration
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	SlippageBps  int

	Journal     string
	PGDSN       string
	NATSURL     string
	NATSSubject string
	VenuesFile  string
	Listen      string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("signer-timeout", 30*time.Second)
	v.SetDefault("lifi-url", "https://li.quest/v1")
	v.SetDefault("debridge-url", "https://dln.debridge.finance/v1.0")
	v.SetDefault("llama-url", "https://yields.llama.fi")
	v.SetDefault("min-tvl-usd", 1_000_000.0)
	v.SetDefault("quote-timeout", 20*time.Second)
	v.SetDefault("http-timeout", 15*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("slippage-bps", 50)
	v.SetDefault("journal", "./data/journal.jsonl")
	v.SetDefault("nats-subject", "yieldpilot.results")
	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	rpc, err := parseRPC(getStringMap(v, "rpc"))
	if err != nil {
		return Config{}, err
	}
	chains, err := parseChains(getStringSlice(v, "chains"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPC:           rpc,
		Chains:        chains,
		Owner:         v.GetString("owner"),
		SignerURL:     v.GetString("signer-url"),
		SignerToken:   v.GetString("signer-token"),
		SignerTimeout: v.GetDuration("signer-timeout"),
		LiFiURL:       v.GetString("lifi-url"),
		DeBridgeURL:   v.GetString("debridge-url"),
		LlamaURL:      v.GetString("llama-url"),
		MinTVLUSD:     v.GetFloat64("min-tvl-usd"),
		QuoteTimeout:  v.GetDuration("quote-timeout"),
		HTTPTimeout:   v.GetDuration("http-timeout"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		SlippageBps:   v.GetInt("slippage-bps"),
		Journal:       v.GetString("journal"),
		PGDSN:         v.GetString("pg-dsn"),
		NATSURL:       v.GetString("nats-url"),
		NATSSubject:   v.GetString("nats-subject"),
		VenuesFile:    v.GetString("venues-file"),
		Listen:        v.GetString("listen"),
		LogLevel:      v.GetString("log-level"),
	}
	if cfg.SlippageBps <= 0 || cfg.SlippageBps >= 10_000 {
		return Config{}, fmt.Errorf("slippage-bps must be between 1 and 9999, got %d", cfg.SlippageBps)
	}
	if len(cfg.Chains) == 0 {
		cfg.Chains = configuredChains(cfg.RPC)
	}

	return cfg, nil
}

func parseRPC(raw map[string]string) (map[model.Chain]string, error) {
	out := make(map[model.Chain]string, len(raw))
	for name, url := range raw {
		c, err := model.ParseChain(name)
		if err != nil {
			return nil, fmt.Errorf("rpc: %w", err)
		}
		out[c] = url
	}
	return out, nil
}

func parseChains(names []string) ([]model.Chain, error) {
	out := make([]model.Chain, 0, len(names))
	for _, name := range names {
		c, err := model.ParseChain(name)
		if err != nil {
			return nil, fmt.Errorf("chains: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// configuredChains lists chains with an RPC endpoint in chain-id order.
func configuredChains(rpc map[model.Chain]string) []model.Chain {
	out := make([]model.Chain, 0, len(rpc))
	for c := range rpc {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	default:
		return map[string]string{}
	}
}

// parseStringMap reads "key=value,key=value".
func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
