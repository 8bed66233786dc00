package venue

import (
	"fmt"
	"sort"
	"strings"

	"yieldpilot/internal/model"
)

// Protocol identifiers.
const (
	AaveV3     = "aave-v3"
	CompoundV3 = "compound-v3"
	MetaMorpho = "metamorpho"
)

var aliases = map[string]string{
	"aave":     AaveV3,
	"aavev3":   AaveV3,
	"compound": CompoundV3,
	"comet":    CompoundV3,
	"morpho":   MetaMorpho,
	"erc4626":  MetaMorpho,
}

// Registry maps protocol identifiers to adapters. It is read-only after
// construction.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, adapter := range adapters {
		r.adapters[adapter.Protocol()] = adapter
	}
	return r
}

// DefaultRegistry wires the three built-in adapters to tables.
func DefaultRegistry(tables Tables) *Registry {
	return NewRegistry(
		NewFixedPool(AaveV3, tables),
		NewIsolatedMarket(CompoundV3, tables),
		NewStandardVault(MetaMorpho, tables),
	)
}

// Normalize maps an alias such as "aave" to its protocol identifier.
func Normalize(protocol string) string {
	key := strings.ToLower(strings.TrimSpace(protocol))
	if id, ok := aliases[key]; ok {
		return id
	}
	return key
}

// Adapter returns the adapter for protocol.
func (r *Registry) Adapter(protocol string) (Adapter, error) {
	id := Normalize(protocol)
	adapter, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrVenueUnavailable, protocol)
	}
	return adapter, nil
}

// AdapterOn returns the adapter for protocol if it is deployed on chain.
func (r *Registry) AdapterOn(protocol string, chain model.Chain) (Adapter, error) {
	adapter, err := r.Adapter(protocol)
	if err != nil {
		return nil, err
	}
	if !r.Supports(adapter.Protocol(), chain) {
		return nil, unavailable(adapter.Protocol(), chain, "")
	}
	return adapter, nil
}

// Supports reports whether protocol has any deployment on chain.
func (r *Registry) Supports(protocol string, chain model.Chain) bool {
	adapter, ok := r.adapters[Normalize(protocol)]
	if !ok {
		return false
	}
	for _, c := range adapter.Chains() {
		if c == chain {
			return true
		}
	}
	return false
}

// Protocols lists registered protocol identifiers in sorted order.
func (r *Registry) Protocols() []string {
	out := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
